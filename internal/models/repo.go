package models

import "time"

// RepositoryInfo describes one repository known to the server.
type RepositoryInfo struct {
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	DefaultBranch string    `json:"defaultBranch,omitempty"`
	HasCommits    bool      `json:"hasCommits"`
	LastChange    time.Time `json:"lastChange,omitempty"`
}

// RepositoriesResponse lists all repositories.
type RepositoriesResponse struct {
	Repositories []RepositoryInfo `json:"repositories"`
}
