package models

// ResourceStats reports process and disk usage of the server.
type ResourceStats struct {
	CPUCount      int     `json:"cpuCount"`
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryRSS     int64   `json:"memoryRss"`
	MemoryPercent float64 `json:"memoryPercent"`
	DiskTotal     int64   `json:"diskTotal"`
	DiskUsed      int64   `json:"diskUsed"`
	DiskPercent   float64 `json:"diskPercent"`
}

// StatusResponse reports server liveness and resource usage.
type StatusResponse struct {
	Uptime          float64       `json:"uptime"`
	IdleTime        float64       `json:"idleTime"`
	RepositoryCount int           `json:"repositoryCount"`
	Resources       ResourceStats `json:"resources"`
}
