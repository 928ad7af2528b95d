package main

import (
	"strings"
	"testing"

	"aster/internal/errors"
	"aster/internal/extract"
	"aster/internal/query"
	"aster/internal/resource"
)

func TestFormatIdentifier(t *testing.T) {
	id := resource.Identifier{Type: "string", Name: "app_name"}
	if got := formatIdentifier(id); got != "@string/app_name" {
		t.Errorf("formatIdentifier = %q, want %q", got, "@string/app_name")
	}
}

func TestFormatSite(t *testing.T) {
	s := query.Site{Path: "res/values/strings.xml", Line: 12, Column: 6}
	if got := formatSite(s); got != "res/values/strings.xml:12:6" {
		t.Errorf("formatSite = %q, want %q", got, "res/values/strings.xml:12:6")
	}
}

func TestConvertDiagnostics(t *testing.T) {
	diags := []extract.Diagnostic{
		{Path: "res/values/colors.xml", Line: 14, Code: errors.NormalizationError, Message: "unknown resource type \"colour\""},
	}

	got := convertDiagnostics(diags)
	if len(got) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(got))
	}
	if got[0].Code != string(errors.NormalizationError) {
		t.Errorf("code = %q, want %q", got[0].Code, errors.NormalizationError)
	}
	if got[0].Line != 14 {
		t.Errorf("line = %d, want 14", got[0].Line)
	}
}

func TestConvertDiagnosticsEmpty(t *testing.T) {
	if got := convertDiagnostics(nil); got != nil {
		t.Errorf("expected nil for no diagnostics, got %v", got)
	}
}

func TestWriteDiagnosticsText(t *testing.T) {
	var b strings.Builder
	writeDiagnosticsText(&b, []DiagnosticCLI{
		{Path: "res/values/colors.xml", Line: 14, Message: "unknown resource type"},
		{Path: "src/Main.java", Message: "file too large"},
	})

	out := b.String()
	if !strings.Contains(out, "2 diagnostic(s):") {
		t.Errorf("missing count header in %q", out)
	}
	if !strings.Contains(out, "res/values/colors.xml:14: unknown resource type") {
		t.Errorf("missing line-numbered diagnostic in %q", out)
	}
	if !strings.Contains(out, "src/Main.java: file too large") {
		t.Errorf("missing line-less diagnostic in %q", out)
	}
}

func TestWriteDiagnosticsTextEmpty(t *testing.T) {
	var b strings.Builder
	writeDiagnosticsText(&b, nil)
	if b.Len() != 0 {
		t.Errorf("expected no output for no diagnostics, got %q", b.String())
	}
}
