package gitstore

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/gitscout/gitscout/internal/models"
)

// Status reports server uptime, idle time, repository count and resource
// usage of the server process.
func (s *Store) Status(ctx context.Context) (*models.StatusResponse, error) {
	_, span := s.tracer.Start(ctx, "status")
	defer span.End()

	s.mu.RLock()
	startTime := s.startTime
	lastQueryTime := s.lastQueryTime
	s.mu.RUnlock()

	names, err := s.repositoryNames()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := time.Now()
	return &models.StatusResponse{
		Uptime:          now.Sub(startTime).Seconds(),
		IdleTime:        now.Sub(lastQueryTime).Seconds(),
		RepositoryCount: len(names),
		Resources:       s.resourceStats(),
	}, nil
}

// resourceStats gathers process and disk usage via gopsutil. Failures
// degrade to zero values rather than failing the status query.
func (s *Store) resourceStats() models.ResourceStats {
	stats := models.ResourceStats{CPUCount: runtime.NumCPU()}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		s.logger.Warnf("Failed to get process info: %v", err)
		return stats
	}

	if cpuPercent, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpuPercent
	} else {
		s.logger.Warnf("Failed to get CPU percent: %v", err)
	}
	if memInfo, err := proc.MemoryInfo(); err == nil {
		stats.MemoryRSS = int64(memInfo.RSS)
	} else {
		s.logger.Warnf("Failed to get memory info: %v", err)
	}
	if memPercent, err := proc.MemoryPercent(); err == nil {
		stats.MemoryPercent = float64(memPercent)
	} else {
		s.logger.Warnf("Failed to get memory percent: %v", err)
	}
	if usage, err := disk.Usage(s.root); err == nil {
		stats.DiskTotal = int64(usage.Total)
		stats.DiskUsed = int64(usage.Used)
		stats.DiskPercent = usage.UsedPercent
	} else {
		s.logger.Warnf("Failed to get disk usage for %s: %v", s.root, err)
	}
	return stats
}
