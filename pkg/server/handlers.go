package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/gitscout/gitscout/pkg/gitstore"
	"github.com/gitscout/gitscout/pkg/telemetry"
)

// handleAlive handles health check requests
func (s *Server) handleAlive(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "not initialized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleRepos handles repository listing requests
func (s *Server) handleRepos(c *gin.Context) {
	tracer := otel.Tracer("gitscout")
	ctx, span := tracer.Start(c.Request.Context(), "handle_repos")
	defer span.End()

	resp, err := s.store.ListRepositories(ctx)
	if err != nil {
		span.RecordError(err)
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleFiles handles tree listing requests
func (s *Server) handleFiles(c *gin.Context) {
	tracer := otel.Tracer("gitscout")
	ctx, span := tracer.Start(c.Request.Context(), "handle_files")
	defer span.End()

	repo := c.Query("repo")
	if repo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repo query parameter is required"})
		return
	}

	resp, err := s.store.ListFiles(ctx, repo, c.Query("revision"), c.Query("path"))
	if err != nil {
		span.RecordError(err)
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleFile handles single file fetch requests
func (s *Server) handleFile(c *gin.Context) {
	tracer := otel.Tracer("gitscout")
	ctx, span := tracer.Start(c.Request.Context(), "handle_file")
	defer span.End()

	repo := c.Query("repo")
	if repo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repo query parameter is required"})
		return
	}
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path query parameter is required"})
		return
	}

	resp, err := s.store.ReadFile(ctx, repo, c.Query("revision"), path)
	if err != nil {
		span.RecordError(err)
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleFind handles find-files requests
func (s *Server) handleFind(c *gin.Context) {
	tracer := otel.Tracer("gitscout")
	ctx, span := tracer.Start(c.Request.Context(), "handle_find")
	defer span.End()

	pattern := c.Query("pathPattern")
	if pattern == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pathPattern query parameter is required"})
		return
	}
	limit, ok := s.queryLimit(c)
	if !ok {
		return
	}

	resp, err := s.store.FindFiles(ctx, pattern, queryRepos(c), c.Query("revision"), limit)
	if err != nil {
		span.RecordError(err)
		s.writeStoreError(c, err)
		return
	}

	if s.config.Telemetry.Enabled {
		telemetry.ReportJSON(ctx, s.logger, "find_files_response", resp)
	}
	c.JSON(http.StatusOK, resp)
}

// handleSearchFiles handles content search requests
func (s *Server) handleSearchFiles(c *gin.Context) {
	tracer := otel.Tracer("gitscout")
	ctx, span := tracer.Start(c.Request.Context(), "handle_search_files")
	defer span.End()

	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query query parameter is required"})
		return
	}
	limit, ok := s.queryLimit(c)
	if !ok {
		return
	}

	resp, err := s.store.SearchFiles(ctx, query, queryRepos(c), c.Query("revision"), limit)
	if err != nil {
		span.RecordError(err)
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleSearchCommits handles commit search requests
func (s *Server) handleSearchCommits(c *gin.Context) {
	tracer := otel.Tracer("gitscout")
	ctx, span := tracer.Start(c.Request.Context(), "handle_search_commits")
	defer span.End()

	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query query parameter is required"})
		return
	}
	limit, ok := s.queryLimit(c)
	if !ok {
		return
	}

	resp, err := s.store.SearchCommits(ctx, query, queryRepos(c), limit)
	if err != nil {
		span.RecordError(err)
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleStatus handles server status requests
func (s *Server) handleStatus(c *gin.Context) {
	tracer := otel.Tracer("gitscout")
	ctx, span := tracer.Start(c.Request.Context(), "handle_status")
	defer span.End()

	resp, err := s.store.Status(ctx)
	if err != nil {
		span.RecordError(err)
		s.writeStoreError(c, err)
		return
	}
	s.logger.Infof("Status endpoint response: uptime=%.2fs, idle_time=%.2fs", resp.Uptime, resp.IdleTime)
	c.JSON(http.StatusOK, resp)
}

// queryRepos collects the repos filter, accepting both repeated and
// comma-separated values.
func queryRepos(c *gin.Context) []string {
	var repos []string
	for _, value := range c.QueryArray("repos") {
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				repos = append(repos, name)
			}
		}
	}
	return repos
}

// queryLimit parses the optional limit parameter. A zero return with ok set
// means the store should apply its default.
func (s *Server) queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit query parameter must be a positive integer, got %q", raw)})
		return 0, false
	}
	return limit, true
}

// writeStoreError maps store errors to HTTP status codes
func (s *Server) writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gitstore.ErrRepositoryNotFound),
		errors.Is(err, gitstore.ErrRevisionNotFound),
		errors.Is(err, gitstore.ErrPathNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, gitstore.ErrInvalidPattern),
		errors.Is(err, gitstore.ErrNotAFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Errorf("Query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
