package scipexport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"aster/internal/resource"
)

func testIndex() *resource.Index {
	idx := resource.NewIndex(resource.Meta{
		ScanRoot:    "/work/app",
		LanguageTag: "java",
		BuiltAt:     time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC),
	})
	idx.Add(resource.Occurrence{
		Identifier: resource.Identifier{Type: "string", Name: "app_name"},
		Kind:       resource.KindDefinition,
		Path:       "res/values/strings.xml",
		Line:       3, Column: 5, StartByte: 52, EndByte: 90,
	})
	idx.Add(resource.Occurrence{
		Identifier: resource.Identifier{Type: "string", Name: "app_name"},
		Kind:       resource.KindUsage,
		Path:       "src/Main.java",
		Line:       12, Column: 24, StartByte: 310, EndByte: 327,
	})
	idx.Add(resource.Occurrence{
		Identifier: resource.Identifier{Type: "dimen", Name: "ghost"},
		Kind:       resource.KindUsage,
		Path:       "src/Main.java",
		Line:       14, Column: 10, StartByte: 400, EndByte: 413,
	})
	return idx
}

func TestBuildDocuments(t *testing.T) {
	out := Build(testIndex())

	if len(out.Documents) != 2 {
		t.Fatalf("documents: got %d, want 2", len(out.Documents))
	}
	if out.Documents[0].RelativePath != "res/values/strings.xml" {
		t.Errorf("first document: got %s", out.Documents[0].RelativePath)
	}
	if out.Documents[0].Language != "xml" {
		t.Errorf("language: got %s, want xml", out.Documents[0].Language)
	}
	if out.Documents[1].Language != "java" {
		t.Errorf("language: got %s, want java", out.Documents[1].Language)
	}
	if out.Metadata.ProjectRoot != "file:///work/app" {
		t.Errorf("project root: got %s", out.Metadata.ProjectRoot)
	}
	if out.Metadata.ToolInfo.Name != "aster" {
		t.Errorf("tool name: got %s", out.Metadata.ToolInfo.Name)
	}
}

func TestBuildOccurrenceRoles(t *testing.T) {
	out := Build(testIndex())

	def := out.Documents[0].Occurrences[0]
	if def.Symbol != "aster . . . string/app_name." {
		t.Errorf("symbol: got %q", def.Symbol)
	}
	if def.SymbolRoles&int32(scippb.SymbolRole_Definition) == 0 {
		t.Error("definition occurrence should carry the Definition role")
	}
	wantRange := []int32{2, 4, 42}
	for i, v := range wantRange {
		if def.Range[i] != v {
			t.Errorf("range: got %v, want %v", def.Range, wantRange)
			break
		}
	}

	var usage *scippb.Occurrence
	for _, occ := range out.Documents[1].Occurrences {
		if occ.Symbol == "aster . . . string/app_name." {
			usage = occ
		}
	}
	if usage == nil {
		t.Fatal("usage occurrence missing from src/Main.java")
	}
	if usage.SymbolRoles != 0 {
		t.Errorf("usage roles: got %d, want 0", usage.SymbolRoles)
	}
}

func TestBuildSymbolsOnDefiningDocument(t *testing.T) {
	out := Build(testIndex())

	if len(out.Documents[0].Symbols) != 1 {
		t.Fatalf("defining document symbols: got %d, want 1", len(out.Documents[0].Symbols))
	}
	if out.Documents[0].Symbols[0].DisplayName != "string/app_name" {
		t.Errorf("display name: got %s", out.Documents[0].Symbols[0].DisplayName)
	}
	if len(out.Documents[1].Symbols) != 0 {
		t.Errorf("usage-only document should carry no symbols, got %d", len(out.Documents[1].Symbols))
	}
}

func TestBuildExternalSymbolsForUndeclared(t *testing.T) {
	out := Build(testIndex())

	if len(out.ExternalSymbols) != 1 {
		t.Fatalf("external symbols: got %d, want 1", len(out.ExternalSymbols))
	}
	if out.ExternalSymbols[0].DisplayName != "dimen/ghost" {
		t.Errorf("external symbol: got %s", out.ExternalSymbols[0].DisplayName)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.scip")

	if err := WriteFile(path, testIndex()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded scippb.Index
	if err := proto.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(decoded.Documents) != 2 {
		t.Errorf("documents after round trip: got %d, want 2", len(decoded.Documents))
	}
}
