package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// serialize runs one tool call at a time and logs each call's outcome.
// Tool handlers assume no other mutation runs while they do.
func serialize(logger *log.Logger) server.ToolHandlerMiddleware {
	var mu sync.Mutex
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			mu.Lock()
			defer mu.Unlock()

			start := time.Now()
			res, err := next(ctx, req)
			took := time.Since(start)
			switch {
			case err != nil:
				logger.Error("tool failed", "tool", req.Params.Name, "took", took, "err", err)
			case res != nil && res.IsError:
				logger.Warn("tool returned error", "tool", req.Params.Name, "took", took)
			default:
				logger.Debug("tool done", "tool", req.Params.Name, "took", took)
			}
			return res, err
		}
	}
}
