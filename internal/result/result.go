// Package result builds the JSON tool results shared by every tool package.
//
// Each result is a JSON object with a "status" field. The object is returned
// as text content and again as structured content. Failures keep the same
// shape, set IsError and add "code" and "message".
package result

import (
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"github.com/mark3labs/mcp-go/mcp"
)

// Status values carried by tool results.
const (
	StatusSuccess  = "success"
	StatusCreated  = "created"
	StatusUpdated  = "updated"
	StatusClosed   = "closed"
	StatusDeleted  = "deleted"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// Fields is the payload of a result.
type Fields map[string]any

// JSON returns a successful result with status and fields.
func JSON(status string, fields Fields) *mcp.CallToolResult {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["status"] = status
	text, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultStructured(body, string(text))
}

// Error converts err into an error result carrying its apperr code.
func Error(err error) *mcp.CallToolResult {
	r := JSON(apperr.Status(err), Fields{
		"code":    apperr.Code(err),
		"message": err.Error(),
	})
	r.IsError = true
	return r
}

// Invalid is shorthand for an invalid_argument error result.
func Invalid(format string, args ...any) *mcp.CallToolResult {
	return Error(apperr.Invalid(format, args...))
}
