package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitscout/gitscout/internal/models"
	"github.com/gitscout/gitscout/pkg/config"
	"github.com/gitscout/gitscout/pkg/server"
)

const apiKey = "test-key"

func setupTestServer(t *testing.T) *server.Server {
	reposDir := t.TempDir()

	initTestRepo(t, filepath.Join(reposDir, "alpha"), map[string]string{
		"README.md":     "# Alpha\nhello world\n",
		"main.go":       "package main\n",
		"docs/guide.md": "usage notes\n",
	})
	initTestRepo(t, filepath.Join(reposDir, "beta"), map[string]string{
		"README.md": "# Beta\n",
	})

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:          8080,
			ReposDir:      reposDir,
			SessionAPIKey: apiKey,
		},
		Search: config.SearchConfig{
			DefaultLimit: 100,
			MaxLimit:     1000,
			MaxFileSize:  512 * 1024,
		},
		Telemetry: config.TelemetryConfig{
			Enabled: false,
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	srv, err := server.New(cfg, logger)
	require.NoError(t, err, "Failed to create server")
	return srv
}

func initTestRepo(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	sig := &object.Signature{Name: "Test Author", Email: "test@example.com", When: time.Now()}
	_, err = wt.Commit("initial commit", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
}

func createAuthenticatedRequest(method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Session-API-Key", apiKey)
	return req, nil
}

func doRequest(t *testing.T, srv *server.Server, path string, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	target := server.APIBasePath + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := createAuthenticatedRequest(http.MethodGet, target, nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rr, req)
	return rr
}

func TestHandleAlive_Success(t *testing.T) {
	srv := setupTestServer(t)

	req, err := createAuthenticatedRequest(http.MethodGet, "/alive", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "Handler returned wrong status code")

	var resp map[string]interface{}
	err = json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err, "Failed to unmarshal response")
	assert.Equal(t, "ok", resp["status"])
}

func TestHandleRepos_Success(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/repos", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.RepositoriesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Repositories, 2)
	assert.Equal(t, "alpha", resp.Repositories[0].Name)
	assert.Equal(t, "beta", resp.Repositories[1].Name)
	assert.True(t, resp.Repositories[0].HasCommits)
}

func TestHandleFind_Success(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/find", url.Values{
		"pathPattern": {"*"},
		"repos":       {"alpha"},
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.FindFilesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "*", resp.Pattern)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "alpha", resp.Results[0].Repository)
	assert.Equal(t, []string{"README.md", "main.go"}, resp.Results[0].Files)
	assert.Equal(t, 2, resp.TotalCount)
	assert.False(t, resp.LimitHit)
}

func TestHandleFind_LimitHit(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/find", url.Values{
		"pathPattern": {"**"},
		"repos":       {"alpha"},
		"limit":       {"2"},
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.FindFilesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalCount)
	assert.True(t, resp.LimitHit)
}

func TestHandleFind_MissingPattern(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/find", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "pathPattern")
}

func TestHandleFind_InvalidLimit(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/find", url.Values{
		"pathPattern": {"*"},
		"limit":       {"zero"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleFind_UnknownRepository(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/find", url.Values{
		"pathPattern": {"*"},
		"repos":       {"missing"},
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "missing")
}

func TestHandleFind_CommaSeparatedRepos(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/find", url.Values{
		"pathPattern": {"README.md"},
		"repos":       {"alpha,beta"},
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.FindFilesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.TotalCount)
}

func TestHandleFiles_Success(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/files", url.Values{"repo": {"alpha"}})
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.TreeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "alpha", resp.Repository)
	assert.NotEmpty(t, resp.Entries)
}

func TestHandleFiles_MissingRepo(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/files", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "repo")
}

func TestHandleFile_Success(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/file", url.Values{
		"repo": {"alpha"},
		"path": {"docs/guide.md"},
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.FileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "usage notes\n", resp.Content)
	assert.Equal(t, "utf-8", resp.Encoding)
	assert.False(t, resp.Binary)
}

func TestHandleFile_NotFound(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/file", url.Values{
		"repo": {"alpha"},
		"path": {"nope.txt"},
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleSearchFiles_Success(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/search/files", url.Values{"query": {"hello"}})
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.SearchFilesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "alpha", resp.Results[0].Repository)
	require.Len(t, resp.Results[0].Matches, 1)
	assert.Equal(t, "README.md", resp.Results[0].Matches[0].File)
	assert.Equal(t, 2, resp.Results[0].Matches[0].LineNumber)
}

func TestHandleSearchFiles_MissingQuery(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/search/files", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "query")
}

func TestHandleSearchCommits_Success(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/search/commits", url.Values{"query": {"initial"}})
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.SearchCommitsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalCount)
	for _, match := range resp.Results {
		assert.Len(t, match.SHA, 40)
		assert.Equal(t, "Test Author", match.Author.Name)
		assert.Equal(t, "initial commit", match.Message)
	}
}

func TestHandleStatus_Success(t *testing.T) {
	srv := setupTestServer(t)

	rr := doRequest(t, srv, "/status", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, resp.Uptime, 0.0)
	assert.Equal(t, 2, resp.RepositoryCount)
	assert.GreaterOrEqual(t, resp.Resources.CPUCount, 1)
}

func TestMissingAPIKey(t *testing.T) {
	srv := setupTestServer(t)

	req, err := http.NewRequest(http.MethodGet, server.APIBasePath+"/repos", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code, "Handler returned wrong status code for missing API Key")
}
