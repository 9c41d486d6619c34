package models

import "time"

// LineMatch is one matching line within a file.
type LineMatch struct {
	File       string `json:"file"`
	LineNumber int    `json:"lineNumber"`
	Line       string `json:"line"`
}

// SearchFilesResult groups the content matches found in one repository at
// one revision.
type SearchFilesResult struct {
	Repository string      `json:"repository"`
	Revision   string      `json:"revision"`
	Matches    []LineMatch `json:"matches"`
}

// SearchFilesResponse is the payload for one content-search query. TotalCount
// counts line matches across all results; LimitHit reports truncation by the
// request limit.
type SearchFilesResponse struct {
	Query      string              `json:"query"`
	TotalCount int                 `json:"totalCount"`
	LimitHit   bool                `json:"limitHit"`
	Results    []SearchFilesResult `json:"results"`
}

// NewSearchFilesResponse returns an empty response for the given query.
func NewSearchFilesResponse(query string) *SearchFilesResponse {
	return &SearchFilesResponse{
		Query:   query,
		Results: []SearchFilesResult{},
	}
}

// CommitAuthor identifies who authored a commit.
type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CommitMatch is one commit whose message or author matched the query.
type CommitMatch struct {
	Repository string       `json:"repository"`
	SHA        string       `json:"sha"`
	Author     CommitAuthor `json:"author"`
	Date       time.Time    `json:"date"`
	Message    string       `json:"message"`
}

// SearchCommitsResponse is the payload for one commit-search query.
type SearchCommitsResponse struct {
	Query      string        `json:"query"`
	TotalCount int           `json:"totalCount"`
	LimitHit   bool          `json:"limitHit"`
	Results    []CommitMatch `json:"results"`
}

// NewSearchCommitsResponse returns an empty response for the given query.
func NewSearchCommitsResponse(query string) *SearchCommitsResponse {
	return &SearchCommitsResponse{
		Query:   query,
		Results: []CommitMatch{},
	}
}
