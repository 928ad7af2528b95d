package main

import (
	"strings"
	"testing"
)

func TestFormatIndexReportText(t *testing.T) {
	resp := &IndexReportCLI{
		Rebuilt:         true,
		ScanRoot:        "/work/app",
		BuildID:         "9f31c2d4",
		BuiltAt:         "2026-08-23T09:12:44Z",
		FilesScanned:    214,
		FilesSkipped:    3,
		Identifiers:     1042,
		Occurrences:     3188,
		DurationSeconds: 1.25,
	}

	out := formatIndexReportText(resp)
	if !strings.Contains(out, "Indexed 214 file(s) in 1.2s (3 skipped).") {
		t.Errorf("missing summary line in %q", out)
	}
	if !strings.Contains(out, "identifiers: 1042") {
		t.Errorf("missing identifier count in %q", out)
	}
	if !strings.Contains(out, "9f31c2d4 at 2026-08-23T09:12:44Z") {
		t.Errorf("missing build line in %q", out)
	}
}

func TestFormatIndexCurrentText(t *testing.T) {
	resp := &IndexReportCLI{
		Rebuilt:      false,
		BuiltAt:      "2026-08-23T09:12:44Z",
		FilesScanned: 214,
	}

	out := formatIndexCurrentText(resp)
	if !strings.Contains(out, "Index is current (built 2026-08-23T09:12:44Z, 214 files).") {
		t.Errorf("missing current summary in %q", out)
	}
	if !strings.Contains(out, "Use --force to re-index.") {
		t.Errorf("missing force hint in %q", out)
	}
}

func TestFormatIndexCurrentTextNoMeta(t *testing.T) {
	out := formatIndexCurrentText(&IndexReportCLI{})
	if !strings.Contains(out, "Index is current. Nothing to do.") {
		t.Errorf("missing fallback summary in %q", out)
	}
}
