package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sprjihoon/pdf01/internal/matcher"
	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/parser"
)

// MatchPagesInput defines the input schema for the match_pages tool.
type MatchPagesInput struct {
	Identifiers []string `json:"identifiers" jsonschema:"Order numbers in list order"`
	Pages       []string `json:"pages" jsonschema:"Text of each page in document order"`
	Fuzzy       bool     `json:"fuzzy,omitempty" jsonschema:"Accept near-miss order numbers"`
}

// NewMatchPagesHandler creates the match_pages tool handler.
func NewMatchPagesHandler(deps *Dependencies) mcp.ToolHandlerFor[MatchPagesInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input MatchPagesInput) (*mcp.CallToolResult, any, error) {
		if len(input.Identifiers) == 0 {
			return ErrorResult("Identifiers cannot be empty", "Provide the order list"), nil, nil
		}

		extractor := deps.Extractor
		if extractor == nil {
			extractor = &parser.Extractor{}
		}
		threshold := deps.Threshold
		if threshold == 0 {
			threshold = matcher.DefaultThreshold
		}

		recs := models.RecordsFromIdentifiers(input.Identifiers)
		pages := make([]models.Page, len(input.Pages))
		for i, text := range input.Pages {
			pages[i] = extractor.Page(i, text)
		}

		a := matcher.Engine{UseFuzzy: input.Fuzzy, Threshold: threshold}.Assign(recs, pages)
		matched := a.MatchedCount()
		deps.Logger.Info("match_pages completed", "records", len(recs), "pages", len(pages), "matched", matched)

		return JSONResult(map[string]any{
			"order":     matcher.FinalOrder(a, len(recs)),
			"labels":    matcher.Labels(recs, a),
			"details":   a.Details,
			"matched":   matched,
			"unmatched": len(recs) - matched,
		}), nil, nil
	}
}
