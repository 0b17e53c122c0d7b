package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arkiven4/autowatch/internal/config"
	"github.com/arkiven4/autowatch/internal/store"
)

// Server exposes the autowatch configuration and store as read-only MCP
// tools, so an AI assistant can inspect what the supervisor is doing.
type Server struct {
	cfg   *config.Config
	store store.Store
}

// NewServer creates the MCP server wrapper.
func NewServer(cfg *config.Config, s store.Store) *Server {
	return &Server{cfg: cfg, store: s}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("autowatch", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.statusTool())
	srv.AddTool(s.listFailuresTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// autowatch_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("autowatch_list_projects",
		mcp.WithDescription("List all supervised projects. Returns a JSON array with name, repo path, watched branch, script, and retry policy."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type projectOut struct {
		Name         string `json:"name"`
		RepoPath     string `json:"repo_path"`
		Branch       string `json:"branch"`
		Script       string `json:"script"`
		GitHubRepo   string `json:"github_repo,omitempty"`
		MaxRetries   int    `json:"max_retries"`
		RetryDelay   string `json:"retry_delay"`
		StartupGrace string `json:"startup_grace"`
	}

	out := make([]projectOut, len(s.cfg.Projects))
	for i, p := range s.cfg.Projects {
		out[i] = projectOut{
			Name:         p.Name,
			RepoPath:     p.RepoPath,
			Branch:       p.Branch,
			Script:       p.Script,
			GitHubRepo:   p.GitHubRepo,
			MaxRetries:   p.MaxRetries,
			RetryDelay:   p.RetryDelay.String(),
			StartupGrace: p.StartupGrace.String(),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal projects: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// autowatch_status
func (s *Server) statusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("autowatch_status",
		mcp.WithDescription("Get the latest supervision status for every project: lifecycle phase, detail string, and last update time."),
	)
	return tool, s.handleStatus
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statuses, err := s.store.ListStatuses(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list statuses: %v", err)), nil
	}

	type statusOut struct {
		Project   string `json:"project"`
		Phase     string `json:"phase"`
		Detail    string `json:"detail"`
		UpdatedAt string `json:"updated_at"`
	}

	out := make([]statusOut, len(statuses))
	for i, st := range statuses {
		out[i] = statusOut{
			Project:   st.Project,
			Phase:     string(st.Phase),
			Detail:    st.Detail,
			UpdatedAt: st.UpdatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal statuses: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// autowatch_failures
func (s *Server) listFailuresTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("autowatch_failures",
		mcp.WithDescription("List recent failure records, newest first. Each record carries the failure title, log file name, issue URL if one was filed, and timestamp."),
		mcp.WithString("project", mcp.Description("Filter by project name")),
		mcp.WithNumber("limit", mcp.Description("Maximum records to return (default 20)")),
	)
	return tool, s.handleListFailures
}

func (s *Server) handleListFailures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := request.GetString("project", "")
	limit := request.GetInt("limit", 20)

	failures, err := s.store.ListFailures(ctx, project, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list failures: %v", err)), nil
	}

	type failureOut struct {
		ID        string `json:"id"`
		Project   string `json:"project"`
		Title     string `json:"title"`
		LogFile   string `json:"log_file,omitempty"`
		IssueURL  string `json:"issue_url,omitempty"`
		CreatedAt string `json:"created_at"`
	}

	out := make([]failureOut, len(failures))
	for i, f := range failures {
		out[i] = failureOut{
			ID:        f.ID,
			Project:   f.Project,
			Title:     f.Title,
			LogFile:   f.LogFile,
			IssueURL:  f.IssueURL,
			CreatedAt: f.CreatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal failures: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
