// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/sprjihoon/pdf01/internal/history"
	"github.com/sprjihoon/pdf01/internal/parser"
	"github.com/sprjihoon/pdf01/internal/service"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Search    *service.SearchService
	History   *history.Store // nil disables recent_searches
	Extractor *parser.Extractor
	Threshold float64
	Logger    *slog.Logger
}
