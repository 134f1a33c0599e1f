package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// slowCallThreshold is the duration above which calls are logged at WARN level.
// Folder scans are expected to take seconds.
const slowCallThreshold = 5 * time.Second

// maxParamLogLen bounds logged call parameters.
const maxParamLogLen = 200

// NewServer creates an MCP server with call logging and every tool registered.
func NewServer(version string, deps *Dependencies) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pdfmatch",
		Version: version,
	}, nil)
	server.AddReceivingMiddleware(LoggingMiddleware(deps.Logger))
	RegisterAll(server, deps)
	return server
}

// Serve runs server on stdio and blocks until disconnect or ctx is cancelled.
func Serve(ctx context.Context, server *mcp.Server, logger *slog.Logger) error {
	logger.Info("starting MCP server", "transport", "stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

// LoggingMiddleware logs every call with its duration. Slow calls are logged
// at WARN level and params are truncated.
func LoggingMiddleware(logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			attrs := []any{
				"method", method,
				"duration_ms", duration.Milliseconds(),
			}
			if params := req.GetParams(); params != nil {
				attrs = append(attrs, "params", truncate(fmt.Sprintf("%+v", params), maxParamLogLen))
			}

			switch {
			case err != nil:
				attrs = append(attrs, "error", err.Error())
				logger.Error("request failed", attrs...)
			case duration > slowCallThreshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Debug("request completed", attrs...)
			}
			return result, err
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
