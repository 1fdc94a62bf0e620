// Package display renders index lookups for terminal consumption.
package display

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/reqtrace/reqtrace/internal/scanner"
	"github.com/reqtrace/reqtrace/internal/tracer"
	"github.com/reqtrace/reqtrace/internal/types"
)

// Formatter formats references and index summaries for display
type Formatter struct {
	options FormatterOptions
}

// FormatterOptions controls output formatting
type FormatterOptions struct {
	Format    string // "text", "json"
	ShowLinks bool   // Append editor deep links to each reference
	Root      string // Workspace root, used for editor links
}

// NewFormatter creates a new formatter
func NewFormatter(options FormatterOptions) *Formatter {
	return &Formatter{options: options}
}

// FormatReferences renders every reference recorded for one requirement.
func (f *Formatter) FormatReferences(requirement string, refs []types.CodeReference) string {
	if f.options.Format == "json" {
		return marshal(map[string]interface{}{
			"requirement": requirement,
			"references":  refs,
		})
	}

	if len(refs) == 0 {
		return fmt.Sprintf("No references found for %s\n", requirement)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%d references)\n", requirement, len(refs)))
	for _, ref := range refs {
		sb.WriteString(fmt.Sprintf("  %s:%d  %s", ref.File, ref.Line, ref.Symbol))
		if ref.Kind == types.KindTest {
			sb.WriteString("  [test]")
		}
		sb.WriteString("\n")
		if f.options.ShowLinks {
			sb.WriteString("    " + EditorLink(f.options.Root, ref.File, ref.Line) + "\n")
		}
	}
	return sb.String()
}

// FormatRequirements renders the reverse lookup for one file.
func (f *Formatter) FormatRequirements(file string, requirements []string) string {
	if f.options.Format == "json" {
		return marshal(map[string]interface{}{
			"file":         file,
			"requirements": requirements,
		})
	}

	if len(requirements) == 0 {
		return fmt.Sprintf("No requirements reference %s\n", file)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%d requirements)\n", file, len(requirements)))
	for _, requirement := range requirements {
		sb.WriteString("  " + requirement + "\n")
	}
	return sb.String()
}

// FormatScan renders the result of a full workspace scan.
func (f *Formatter) FormatScan(stats scanner.Stats, requirements int) string {
	if f.options.Format == "json" {
		return marshal(map[string]interface{}{
			"stats":        stats,
			"requirements": requirements,
		})
	}

	return fmt.Sprintf("Scanned %d files in %s: %d references across %d requirements (%d skipped)\n",
		stats.FilesScanned, stats.Duration.Round(time.Millisecond), stats.References,
		requirements, stats.FilesSkipped)
}

// FormatStatus renders the index health summary.
func (f *Formatter) FormatStatus(st tracer.Status) string {
	if f.options.Format == "json" {
		return marshal(st)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Index: %s\n", st.IndexPath))
	sb.WriteString(fmt.Sprintf("  %d requirements, %d references\n", st.Requirements, st.References))
	if len(st.MissingFiles) > 0 {
		sb.WriteString(fmt.Sprintf("  %d referenced files missing on disk (rescan recommended):\n", len(st.MissingFiles)))
		for _, file := range st.MissingFiles {
			sb.WriteString("    " + file + "\n")
		}
	}
	return sb.String()
}

// EditorLink builds a deep link that opens file:line in a workspace-bound
// editor session. The payload shape is what vscode-remote understands.
func EditorLink(root, file string, line int) string {
	target := fmt.Sprintf("vscode-remote:///%s/%s:%d:1", strings.TrimPrefix(root, "/"), file, line)
	payload := fmt.Sprintf(`[["gotoLineMode","true"],["openFile",%q]]`, target)
	return "http://localhost:8080/?folder=" + url.QueryEscape(root) + "&payload=" + url.QueryEscape(payload)
}

func marshal(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data) + "\n"
}
