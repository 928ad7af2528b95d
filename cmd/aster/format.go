package main

import (
	"fmt"
	"os"
	"strings"

	"aster/internal/extract"
	"aster/internal/output"
	"aster/internal/query"
	"aster/internal/resource"
)

// emit renders resp on stdout in the format selected by --format. Text
// output is the human string the command built; json and yaml render the
// response struct deterministically.
func emit(resp interface{}, human string) error {
	format, err := output.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	if format == output.FormatText {
		fmt.Print(human)
		return nil
	}
	return output.Render(os.Stdout, format, resp)
}

func mustEmit(resp interface{}, human string) {
	if err := emit(resp, human); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// formatIdentifier renders an identifier the way Android code refers to
// it, @type/name.
func formatIdentifier(id resource.Identifier) string {
	return "@" + id.Type + "/" + id.Name
}

// formatSite renders one source location as path:line:column.
func formatSite(s query.Site) string {
	return fmt.Sprintf("%s:%d:%d", s.Path, s.Line, s.Column)
}

// DiagnosticCLI is the CLI rendering of one non-fatal problem.
type DiagnosticCLI struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func convertDiagnostics(diags []extract.Diagnostic) []DiagnosticCLI {
	if len(diags) == 0 {
		return nil
	}
	out := make([]DiagnosticCLI, 0, len(diags))
	for _, d := range diags {
		out = append(out, DiagnosticCLI{
			Path:    d.Path,
			Line:    d.Line,
			Code:    string(d.Code),
			Message: d.Message,
		})
	}
	return out
}

func writeDiagnosticsText(b *strings.Builder, diags []DiagnosticCLI) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(b, "%d diagnostic(s):\n", len(diags))
	for _, d := range diags {
		if d.Line > 0 {
			fmt.Fprintf(b, "  %s:%d: %s\n", d.Path, d.Line, d.Message)
		} else {
			fmt.Fprintf(b, "  %s: %s\n", d.Path, d.Message)
		}
	}
}
