package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sprjihoon/pdf01/internal/models"
)

// FindOrderInput defines the input schema for the find_order tool.
type FindOrderInput struct {
	Identifier string `json:"identifier" jsonschema:"The order number to look up"`
	Folder     string `json:"folder,omitempty" jsonschema:"Folder to search, default from config"`
}

// FindOrderOutput is the JSON body of a find_order result.
type FindOrderOutput struct {
	Found    bool                 `json:"found"`
	Result   *models.SearchResult `json:"result,omitempty"`
	Scanned  int                  `json:"scanned"`
	Failures int                  `json:"failures"`
}

// NewFindOrderHandler creates the find_order tool handler.
func NewFindOrderHandler(deps *Dependencies) mcp.ToolHandlerFor[FindOrderInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FindOrderInput) (*mcp.CallToolResult, any, error) {
		if input.Identifier == "" {
			return ErrorResult("Identifier cannot be empty", "Provide an order number"), nil, nil
		}

		result, rep, err := deps.Search.Find(ctx, input.Folder, input.Identifier, nil)
		if err != nil {
			deps.Logger.Error("find_order failed", "identifier", input.Identifier, "error", err)
			return ErrorResult(fmt.Sprintf("Search failed: %v", err), "Check the folder path"), nil, nil
		}

		deps.Logger.Info("find_order completed", "identifier", input.Identifier, "found", result != nil, "scanned", rep.Scanned)
		return JSONResult(FindOrderOutput{
			Found:    result != nil,
			Result:   result,
			Scanned:  rep.Scanned,
			Failures: len(rep.Failures),
		}), nil, nil
	}
}

// IndexFolderInput defines the input schema for the index_folder tool.
type IndexFolderInput struct {
	Folder string `json:"folder,omitempty" jsonschema:"Folder to index, default from config"`
	All    bool   `json:"all,omitempty" jsonschema:"Include order numbers found in a single document"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results 1-500, default 100"`
}

// NewIndexFolderHandler creates the index_folder tool handler.
func NewIndexFolderHandler(deps *Dependencies) mcp.ToolHandlerFor[IndexFolderInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexFolderInput) (*mcp.CallToolResult, any, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 100
		}
		if limit > 500 {
			return ErrorResult("Limit must be 1-500", "Reduce limit value"), nil, nil
		}

		results, rep, err := deps.Search.FindAll(ctx, input.Folder, nil)
		if err != nil {
			deps.Logger.Error("index_folder failed", "folder", input.Folder, "error", err)
			return ErrorResult(fmt.Sprintf("Index failed: %v", err), "Check the folder path"), nil, nil
		}

		out := make([]models.SearchResult, 0, min(limit, len(results)))
		for _, r := range results {
			if len(out) == limit {
				break
			}
			if input.All || len(r.All) > 1 {
				out = append(out, r)
			}
		}

		deps.Logger.Info("index_folder completed", "scanned", rep.Scanned, "identifiers", len(results), "returned", len(out))
		return JSONResult(map[string]any{
			"results":  out,
			"total":    len(results),
			"scanned":  rep.Scanned,
			"failures": len(rep.Failures),
		}), nil, nil
	}
}
