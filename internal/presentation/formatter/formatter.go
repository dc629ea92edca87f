// Package formatter renders TcAutomation.exe results as the text returned to
// MCP clients.
package formatter

import (
	"fmt"
	"strings"

	"twincat-mcp/internal/domain/result"
	"twincat-mcp/internal/tools/catalog"
)

// Markers used across the rendered output.
const (
	MarkSuccess  = "✅"
	MarkFailure  = "❌"
	MarkWarnings = "⚠️ Warnings:"
	MarkErrors   = "🔴 Errors:"
	MarkInfo     = "📋"
	MarkDryRun   = "🔍 DRY RUN: "
)

const (
	unknown      = "Unknown"
	unknownError = "Unknown error"
)

// RenderFunc renders one tool's envelope. args are the validated request
// arguments; renderers use them only for fallbacks and request-level flags.
type RenderFunc func(args catalog.Arguments, env result.Envelope) string

// ToolFormatter maps tool names to renderers.
type ToolFormatter struct {
	renderers map[string]RenderFunc
}

// NewToolFormatter returns a formatter knowing every TwinCAT tool.
func NewToolFormatter() *ToolFormatter {
	return &ToolFormatter{
		renderers: map[string]RenderFunc{
			catalog.ToolBuild:     Build,
			catalog.ToolGetInfo:   Info,
			catalog.ToolClean:     Clean,
			catalog.ToolSetTarget: SetTarget,
			catalog.ToolActivate:  Activate,
			catalog.ToolRestart:   Restart,
			catalog.ToolDeploy:    Deploy,
		},
	}
}

// Renderer returns the renderer for tool, or Generic when the tool is unknown.
func (f *ToolFormatter) Renderer(tool string) RenderFunc {
	if fn, ok := f.renderers[tool]; ok {
		return fn
	}
	return Generic
}

// Render formats env for tool without request context.
func (f *ToolFormatter) Render(tool string, env result.Envelope) string {
	return f.RenderCall(tool, nil, env)
}

// RenderCall formats env for tool, using args for request-level flags.
func (f *ToolFormatter) RenderCall(tool string, args catalog.Arguments, env result.Envelope) string {
	return f.Renderer(tool)(args, env)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// failureDetail is the text shown after "<Verb> failed: ".
func failureDetail(env result.Envelope) string {
	return orDefault(env.Detail(), unknownError)
}

func writeDiagnostics(b *strings.Builder, header string, diags []result.Diagnostic, source func(result.Diagnostic) string) {
	if len(diags) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(header)
	b.WriteString("\n")
	for _, d := range diags {
		fmt.Fprintf(b, "  - %s:%s: %s\n", source(d), d.Line, d.Description)
	}
}

func buildSource(d result.Diagnostic) string {
	return d.Source()
}

func deploySource(d result.Diagnostic) string {
	if d.File != "" {
		return d.File
	}
	return d.FileName
}

// writeStderr appends captured stderr to a failure message.
func writeStderr(b *strings.Builder, env result.Envelope) {
	stderr := strings.TrimRight(env.Stderr, "\r\n")
	if strings.TrimSpace(stderr) == "" {
		return
	}
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\nStderr:\n")
	b.WriteString(stderr)
	b.WriteString("\n")
}

func failure(verb string, env result.Envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed: %s", MarkFailure, verb, failureDetail(env))
	writeStderr(&b, env)
	return b.String()
}
