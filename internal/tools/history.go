package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RecentSearchesInput defines the input schema for the recent_searches tool.
type RecentSearchesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max entries 1-100, default 20"`
}

// NewRecentSearchesHandler creates the recent_searches tool handler.
func NewRecentSearchesHandler(deps *Dependencies) mcp.ToolHandlerFor[RecentSearchesInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RecentSearchesInput) (*mcp.CallToolResult, any, error) {
		if deps.History == nil {
			return ErrorResult("History is not enabled", "Set PDFMATCH_HISTORY_DB"), nil, nil
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			return ErrorResult("Limit must be 1-100", "Reduce limit value"), nil, nil
		}

		entries, err := deps.History.RecentSearches(ctx, limit)
		if err != nil {
			deps.Logger.Error("recent_searches failed", "error", err)
			return ErrorResult("Failed to read history", "History database may be unavailable"), nil, nil
		}
		return JSONResult(entries), nil, nil
	}
}
