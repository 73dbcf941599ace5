// Package mcptool exposes the execution engine as an MCP tool server.
//
// Agents talk to it over stdio and get one tool, code_run, which accepts the
// same language spellings as the HTTP API and returns the program's output.
package mcptool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sakif/classroom/internal/executor"
)

const (
	ToolName = "code_run"

	// maxOutput caps the text handed back to the agent.
	maxOutput = 4000
)

// Handler runs code_run calls against an executor.
type Handler struct {
	exec   executor.Executor
	logger *slog.Logger
}

// NewHandler returns a code_run handler backed by exec.
func NewHandler(exec executor.Executor, logger *slog.Logger) *Handler {
	return &Handler{exec: exec, logger: logger}
}

// NewServer builds an MCP server with the code_run tool registered.
func NewServer(exec executor.Executor, version string, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("classroom-code-runner", version)
	h := NewHandler(exec, logger)
	s.AddTool(Tool(), h.HandleCodeRun)
	return s
}

// Tool describes code_run. The description lists every accepted spelling.
func Tool() mcp.Tool {
	var names []string
	for _, l := range executor.Languages() {
		names = append(names, l.Aliases...)
	}
	accepted := strings.Join(names, ", ")

	return mcp.Tool{
		Name:        ToolName,
		Description: fmt.Sprintf("Compile and run a program. Supported languages: %s.", accepted),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": "Programming language (" + accepted + ")",
				},
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute",
				},
			},
			Required: []string{"language", "code"},
		},
	}
}

// HandleCodeRun executes the submitted program.
//
// Program failures come back as tool results with IsError set; the Go error
// is reserved for the executor itself failing.
func (h *Handler) HandleCodeRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	language := request.GetString("language", "")
	code := request.GetString("code", "")
	if strings.TrimSpace(language) == "" || code == "" {
		return errResult("error: 'language' and 'code' are required"), nil
	}

	res, err := h.exec.Execute(ctx, executor.ExecutionRequest{Language: language, Code: code})
	if err != nil {
		h.logger.Error("code_run failed", slog.String("language", language), slog.String("error", err.Error()))
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	h.logger.Info("code_run finished",
		slog.String("language", language),
		slog.Bool("success", res.Success),
		slog.String("kind", string(res.Kind)),
		slog.Int64("duration_ms", res.ExecutionTimeMs),
	)

	if !res.Success {
		return errResult(truncate(fmt.Sprintf("%s: %s", res.Kind, res.Error))), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: truncate(res.Output)}},
	}, nil
}

// truncate cuts text to at most maxOutput bytes without splitting a rune.
func truncate(text string) string {
	if len(text) <= maxOutput {
		return text
	}
	cut := maxOutput
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n... (output truncated)"
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
