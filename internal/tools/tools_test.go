package tools_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sprjihoon/pdf01/internal/config"
	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/history"
	"github.com/sprjihoon/pdf01/internal/service"
	"github.com/sprjihoon/pdf01/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// connect starts a server over in-memory transports and returns a client session.
func connect(t *testing.T, deps *tools.Dependencies) *mcp.ClientSession {
	t.Helper()
	server := tools.NewServer("0.0.1-test", deps)
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err, "client should connect successfully")
	t.Cleanup(func() { session.Close() })
	return session
}

func newDeps(t *testing.T) (*tools.Dependencies, string) {
	t.Helper()
	hist, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	dir := t.TempDir()
	store := document.NewMemoryStore()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	for i, doc := range []struct {
		name  string
		pages []string
	}{
		{"orders_2024-04-01.pdf", []string{"주문 A-123456", "B-654321"}},
		{"orders_2024-04-20.pdf", []string{"cover", "주문 A-123456"}},
	} {
		path := filepath.Join(dir, doc.name)
		require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
		mod := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(path, mod, mod))
		store.Put(document.NewMemory(path, doc.pages))
	}

	cfg := config.Default()
	cfg.Search.Folder = dir
	svc, err := service.NewSearchService(cfg, store, nil, hist, nil, testLogger())
	require.NoError(t, err)

	return &tools.Dependencies{Search: svc, History: hist, Logger: testLogger()}, dir
}

func callText(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content should be TextContent")
	return text.Text, result.IsError
}

func TestTools(t *testing.T) {
	deps, dir := newDeps(t)
	session := connect(t, deps)

	t.Run("tools/list", func(t *testing.T) {
		result, err := session.ListTools(context.Background(), nil)
		require.NoError(t, err)
		var names []string
		for _, tool := range result.Tools {
			names = append(names, tool.Name)
		}
		assert.ElementsMatch(t, []string{"ping", "find_order", "index_folder", "match_pages", "recent_searches"}, names)
	})

	t.Run("ping", func(t *testing.T) {
		text, isErr := callText(t, session, "ping", map[string]any{})
		assert.False(t, isErr)
		assert.Equal(t, "pong", text)

		text, _ = callText(t, session, "ping", map[string]any{"echo": "hello"})
		assert.Equal(t, "hello", text)
	})

	t.Run("find_order", func(t *testing.T) {
		text, isErr := callText(t, session, "find_order", map[string]any{"identifier": "a-123456"})
		require.False(t, isErr, text)

		var out tools.FindOrderOutput
		require.NoError(t, json.Unmarshal([]byte(text), &out))
		assert.True(t, out.Found)
		assert.Equal(t, filepath.Join(dir, "orders_2024-04-20.pdf"), out.Result.Best.Path)
		assert.Equal(t, []int{2}, out.Result.Best.Pages)
		assert.Equal(t, 2, out.Scanned)
	})

	t.Run("find_order without identifier", func(t *testing.T) {
		text, isErr := callText(t, session, "find_order", map[string]any{"identifier": ""})
		assert.True(t, isErr)
		assert.Contains(t, text, "Identifier cannot be empty")
	})

	t.Run("index_folder", func(t *testing.T) {
		text, isErr := callText(t, session, "index_folder", map[string]any{})
		require.False(t, isErr, text)

		var out struct {
			Results []struct {
				Identifier string `json:"identifier"`
			} `json:"results"`
			Total int `json:"total"`
		}
		require.NoError(t, json.Unmarshal([]byte(text), &out))
		assert.Equal(t, 2, out.Total)
		require.Len(t, out.Results, 1)
		assert.Equal(t, "A123456", out.Results[0].Identifier)
	})

	t.Run("index_folder limit", func(t *testing.T) {
		_, isErr := callText(t, session, "index_folder", map[string]any{"limit": 501})
		assert.True(t, isErr)
	})

	t.Run("match_pages", func(t *testing.T) {
		text, isErr := callText(t, session, "match_pages", map[string]any{
			"identifiers": []string{"B-654321", "A-123456"},
			"pages":       []string{"A-123456", "B-654321"},
		})
		require.False(t, isErr, text)

		var out struct {
			Order   []int `json:"order"`
			Matched int   `json:"matched"`
		}
		require.NoError(t, json.Unmarshal([]byte(text), &out))
		assert.Equal(t, []int{1, 0}, out.Order)
		assert.Equal(t, 2, out.Matched)
	})

	t.Run("recent_searches", func(t *testing.T) {
		text, isErr := callText(t, session, "recent_searches", map[string]any{"limit": 5})
		require.False(t, isErr, text)

		var entries []history.SearchEntry
		require.NoError(t, json.Unmarshal([]byte(text), &entries))
		require.NotEmpty(t, entries)
		assert.Equal(t, "A123456", entries[0].Identifier)
	})
}

func TestRecentSearches_NoHistory(t *testing.T) {
	deps, _ := newDeps(t)
	deps.History = nil
	session := connect(t, deps)

	text, isErr := callText(t, session, "recent_searches", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, "History is not enabled")
}
