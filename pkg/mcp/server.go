package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/gitscout/gitscout/pkg/gitstore"
)

// Server exposes the repository store as MCP tools so agent clients can run
// the same queries the HTTP API answers.
type Server struct {
	logger    *logrus.Logger
	store     *gitstore.Store
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server using the mcp-go library
func NewServer(logger *logrus.Logger, store *gitstore.Store) *Server {
	mcpServer := server.NewMCPServer(
		"gitscout",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		logger:    logger,
		store:     store,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s
}

// Mount registers the SSE transport endpoints on the gin engine under
// basePath ({basePath}/sse and {basePath}/message).
func (s *Server) Mount(engine *gin.Engine, basePath string) {
	sse := server.NewSSEServer(s.mcpServer, server.WithBasePath(basePath))
	handler := gin.WrapH(sse)
	engine.GET(basePath+"/sse", handler)
	engine.POST(basePath+"/message", handler)
}

// registerTools registers the repository query tools
func (s *Server) registerTools() {
	listReposTool := mcp.NewTool("list_repositories",
		mcp.WithDescription("List the git repositories served by this instance"),
	)
	s.mcpServer.AddTool(listReposTool, s.handleListRepositories)

	findFilesTool := mcp.NewTool("find_files",
		mcp.WithDescription("Find files by glob pattern across repositories (* and ? stay within a path segment, ** crosses directories)"),
		mcp.WithString("pathPattern",
			mcp.Required(),
			mcp.Description("Glob pattern to match file paths against"),
		),
		mcp.WithString("repos",
			mcp.Description("Comma-separated repository names (all repositories when empty)"),
		),
		mcp.WithString("revision",
			mcp.Description("Branch, tag or commit to search (HEAD when empty)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of file paths to return"),
		),
	)
	s.mcpServer.AddTool(findFilesTool, s.handleFindFiles)

	searchFilesTool := mcp.NewTool("search_files",
		mcp.WithDescription("Search file contents for a case-insensitive substring across repositories"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to search for"),
		),
		mcp.WithString("repos",
			mcp.Description("Comma-separated repository names (all repositories when empty)"),
		),
		mcp.WithString("revision",
			mcp.Description("Branch, tag or commit to search (HEAD when empty)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of matching lines to return"),
		),
	)
	s.mcpServer.AddTool(searchFilesTool, s.handleSearchFiles)

	searchCommitsTool := mcp.NewTool("search_commits",
		mcp.WithDescription("Search commit messages and authors across repositories"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to search for"),
		),
		mcp.WithString("repos",
			mcp.Description("Comma-separated repository names (all repositories when empty)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of commits to return"),
		),
	)
	s.mcpServer.AddTool(searchCommitsTool, s.handleSearchCommits)

	readFileTool := mcp.NewTool("read_file",
		mcp.WithDescription("Read one file from a repository at a revision"),
		mcp.WithString("repo",
			mcp.Required(),
			mcp.Description("Repository name"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path within the repository"),
		),
		mcp.WithString("revision",
			mcp.Description("Branch, tag or commit to read from (HEAD when empty)"),
		),
	)
	s.mcpServer.AddTool(readFileTool, s.handleReadFile)
}

// Tool handler methods

func (s *Server) handleListRepositories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.store.ListRepositories(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list repositories: %v", err)), nil
	}
	return jsonToolResult(resp)
}

func (s *Server) handleFindFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := request.RequireString("pathPattern")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("pathPattern parameter error: %v", err)), nil
	}

	resp, err := s.store.FindFiles(ctx, pattern,
		splitRepos(request.GetString("repos", "")),
		request.GetString("revision", ""),
		request.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("find failed: %v", err)), nil
	}
	return jsonToolResult(resp)
}

func (s *Server) handleSearchFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query parameter error: %v", err)), nil
	}

	resp, err := s.store.SearchFiles(ctx, query,
		splitRepos(request.GetString("repos", "")),
		request.GetString("revision", ""),
		request.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonToolResult(resp)
}

func (s *Server) handleSearchCommits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query parameter error: %v", err)), nil
	}

	resp, err := s.store.SearchCommits(ctx, query,
		splitRepos(request.GetString("repos", "")),
		request.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonToolResult(resp)
}

func (s *Server) handleReadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repo parameter error: %v", err)), nil
	}
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("path parameter error: %v", err)), nil
	}

	resp, err := s.store.ReadFile(ctx, repo, request.GetString("revision", ""), path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read file: %v", err)), nil
	}
	if resp.Binary {
		return jsonToolResult(resp)
	}
	return mcp.NewToolResultText(resp.Content), nil
}

func jsonToolResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func splitRepos(value string) []string {
	var repos []string
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			repos = append(repos, name)
		}
	}
	return repos
}
