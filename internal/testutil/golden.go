package testutil

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aster/internal/output"
)

// updateGolden controls whether golden files are rewritten instead of
// compared. Use: go test ./... -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate reports whether golden files should be rewritten.
func ShouldUpdate() bool {
	return *updateGolden
}

// Golden compares v against the golden file at path. v is rendered as
// deterministic JSON with volatile fields (build ids, timestamps,
// durations) stripped and every occurrence of root replaced by <root>,
// so the same tree produces the same bytes on every machine. With
// -update the file is rewritten instead of compared.
func Golden(t *testing.T, root, path string, v interface{}) {
	t.Helper()

	got, err := canonical(root, v)
	if err != nil {
		t.Fatalf("cannot canonicalize golden value: %v", err)
	}

	if ShouldUpdate() {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("cannot create golden directory: %v", err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			t.Fatalf("cannot write golden file: %v", err)
		}
		t.Logf("updated golden: %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("golden file missing: %s\n\ngot:\n%s\nrun go test -update to create it", path, got)
		}
		t.Fatalf("cannot read golden file: %v", err)
	}

	if bytes.Equal(got, want) {
		return
	}
	equal, diff := output.CompareSnapshots(want, got)
	if equal {
		t.Fatalf("golden file %s is equivalent but not canonical; run go test -update", path)
	}
	t.Fatalf("golden mismatch for %s: %s\nrun go test -update to refresh", path, diff)
}

// canonical renders v as the bytes golden files store: deterministic
// indented JSON, volatile fields removed, the absolute root masked.
func canonical(root string, v interface{}) ([]byte, error) {
	raw, err := output.DeterministicEncode(v)
	if err != nil {
		return nil, err
	}
	raw = maskRoot(raw, root)

	norm, err := output.NormalizeForSnapshot(raw)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, norm, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// maskRoot replaces the JSON-escaped form of root with <root>, keeping
// golden files free of machine-specific temp paths.
func maskRoot(data []byte, root string) []byte {
	if root == "" {
		return data
	}
	quoted, err := json.Marshal(root)
	if err != nil {
		return data
	}
	escaped := string(quoted[1 : len(quoted)-1])
	masked := strings.ReplaceAll(string(data), escaped+"/", "<root>/")
	masked = strings.ReplaceAll(masked, escaped, "<root>")
	return []byte(masked)
}
