package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiven4/autowatch/internal/config"
	"github.com/arkiven4/autowatch/internal/models"
	"github.com/arkiven4/autowatch/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		TickInterval:  5 * time.Second,
		FetchInterval: time.Minute,
		Projects: []config.Project{
			{
				Name:         "detector",
				RepoPath:     "/srv/cbm_vale",
				Branch:       "main",
				Script:       "run.sh",
				GitHubRepo:   "arkiven4/cbm_vale",
				MaxRetries:   3,
				RetryDelay:   10 * time.Second,
				StartupGrace: 60 * time.Second,
			},
		},
	}
	return NewServer(cfg, st), st
}

func callRequest(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	return result.Content[0].(mcpgo.TextContent).Text
}

func TestHandleListProjects(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleListProjects(context.Background(), callRequest("autowatch_list_projects", nil))
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "detector", out[0]["name"])
	assert.Equal(t, "/srv/cbm_vale", out[0]["repo_path"])
	assert.Equal(t, "10s", out[0]["retry_delay"])
	assert.Equal(t, float64(3), out[0]["max_retries"])
}

func TestHandleStatus(t *testing.T) {
	s, st := newTestServer(t)

	require.NoError(t, st.UpsertStatus(context.Background(), &models.StatusSnapshot{
		Project:   "detector",
		Phase:     models.PhaseRunning,
		Detail:    "running",
		UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}))

	result, err := s.handleStatus(context.Background(), callRequest("autowatch_status", nil))
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "running", out[0]["phase"])
	assert.Equal(t, "2026-08-01T12:00:00Z", out[0]["updated_at"])
}

func TestHandleListFailures(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.CreateFailure(ctx, &models.FailureRecord{
		Project: "detector", Title: "Startup failure", CreatedAt: base,
	}))
	require.NoError(t, st.CreateFailure(ctx, &models.FailureRecord{
		Project: "dashboard", Title: "Max retries reached", CreatedAt: base.Add(time.Minute),
	}))

	result, err := s.handleListFailures(context.Background(),
		callRequest("autowatch_failures", map[string]any{"project": "detector"}))
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "detector", out[0]["project"])
	assert.Equal(t, "Startup failure", out[0]["title"])

	// Unfiltered, newest first.
	result, err = s.handleListFailures(context.Background(),
		callRequest("autowatch_failures", map[string]any{"limit": 10}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "dashboard", out[0]["project"])
}

func TestMCPServer_RegistersTools(t *testing.T) {
	s, _ := newTestServer(t)
	srv := s.MCPServer()
	require.NotNil(t, srv)
}
