package scan

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"aster/internal/config"
	"aster/internal/errors"
	"aster/internal/manifest"
	"aster/internal/resource"
	"aster/internal/store"
	"aster/internal/version"
)

func newTestScanner(t *testing.T, cfg *config.Config, man *manifest.Manifest) *Scanner {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if man == nil {
		man = manifest.Default()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewScanner(cfg, man, logger)
	if err != nil {
		t.Fatalf("NewScanner failed: %v", err)
	}
	return s
}

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(abs), err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

func writeTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeProjectFile(t, root, "res/values/strings.xml", `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">Aster</string>
    <string name="greeting">Hello</string>
</resources>
`)
	writeProjectFile(t, root, "res/layout/activity_main.xml", `<?xml version="1.0" encoding="utf-8"?>
<LinearLayout xmlns:android="http://schemas.android.com/apk/res/android">
    <TextView
        android:id="@+id/title"
        android:text="@string/app_name" />
</LinearLayout>
`)
	writeProjectFile(t, root, "res/drawable-hdpi/icon.png", "\x89PNG fake payload")
	writeProjectFile(t, root, "src/Main.java", `package com.example;

class Main {
    int greet() {
        return R.string.greeting;
    }
}
`)
	writeProjectFile(t, root, "src/Ui.kt", `package com.example

fun greet(): Int = R.string.greeting
`)

	// Never scanned: skip directories
	writeProjectFile(t, root, "build/generated/Gen.java", `class Gen { int a = R.string.from_generated; }`)
	writeProjectFile(t, root, ".gradle/caches/Tmp.java", `class Tmp { int a = R.string.from_gradle_cache; }`)

	return root
}

func TestScanBuildsIndex(t *testing.T) {
	root := writeTestProject(t)
	s := newTestScanner(t, nil, nil)

	res, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.FilesScanned != 5 {
		t.Errorf("FilesScanned: got %d, want 5", res.FilesScanned)
	}
	if res.FilesSkipped != 0 {
		t.Errorf("FilesSkipped: got %d, want 0", res.FilesSkipped)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %+v", res.Diagnostics)
	}

	idx := res.Index
	if idx.Len() != 5 {
		t.Fatalf("identifier count: got %d, want 5 (%v)", idx.Len(), idx.Identifiers())
	}

	appName := idx.Entry(resource.Identifier{Type: "string", Name: "app_name"})
	if appName == nil || len(appName.Definitions) != 1 || len(appName.Usages) != 1 {
		t.Errorf("string/app_name: got %+v, want 1 definition and 1 usage", appName)
	}
	greeting := idx.Entry(resource.Identifier{Type: "string", Name: "greeting"})
	if greeting == nil || len(greeting.Definitions) != 1 || len(greeting.Usages) != 2 {
		t.Errorf("string/greeting: got %+v, want 1 definition and 2 usages", greeting)
	}
	layout := idx.Entry(resource.Identifier{Type: "layout", Name: "activity_main"})
	if layout == nil || len(layout.Definitions) != 1 || !layout.Definitions[0].FileBacked {
		t.Errorf("layout/activity_main: got %+v, want 1 file-backed definition", layout)
	}
	icon := idx.Entry(resource.Identifier{Type: "drawable", Name: "icon"})
	if icon == nil || len(icon.Definitions) != 1 || !icon.Definitions[0].FileBacked {
		t.Errorf("drawable/icon: got %+v, want 1 file-backed definition", icon)
	}
	title := idx.Entry(resource.Identifier{Type: "id", Name: "title"})
	if title == nil || len(title.Definitions) != 1 {
		t.Errorf("id/title: got %+v, want 1 definition", title)
	}
	if e := idx.Entry(resource.Identifier{Type: "string", Name: "from_generated"}); e != nil {
		t.Error("files under build/ should never be scanned")
	}
	if e := idx.Entry(resource.Identifier{Type: "string", Name: "from_gradle_cache"}); e != nil {
		t.Error("files under .gradle/ should never be scanned")
	}

	wantPaths := []string{
		"res/drawable-hdpi/icon.png",
		"res/layout/activity_main.xml",
		"res/values/strings.xml",
		"src/Main.java",
		"src/Ui.kt",
	}
	var gotPaths []string
	for _, fs := range res.States {
		gotPaths = append(gotPaths, fs.Path)
	}
	if !reflect.DeepEqual(gotPaths, wantPaths) {
		t.Errorf("state paths: got %v, want %v", gotPaths, wantPaths)
	}

	if idx.Meta.LanguageTag != "java" {
		t.Errorf("LanguageTag: got %s, want java", idx.Meta.LanguageTag)
	}
	if idx.Meta.FileCount != 5 {
		t.Errorf("FileCount: got %d, want 5", idx.Meta.FileCount)
	}
	if idx.Meta.BuildID == "" {
		t.Error("BuildID should be set")
	}
	if idx.Meta.ToolVersion != version.Version {
		t.Errorf("ToolVersion: got %s, want %s", idx.Meta.ToolVersion, version.Version)
	}
}

func TestScanDeterministic(t *testing.T) {
	root := writeTestProject(t)
	s := newTestScanner(t, nil, nil)

	first, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if !reflect.DeepEqual(first.Index.Occurrences(), second.Index.Occurrences()) {
		t.Error("occurrences differ between identical scans")
	}
	if !reflect.DeepEqual(first.Index.Identifiers(), second.Index.Identifiers()) {
		t.Error("identifiers differ between identical scans")
	}
	if !reflect.DeepEqual(first.States, second.States) {
		t.Error("file states differ between identical scans")
	}
}

func TestScanHonorsExcludeGlobs(t *testing.T) {
	root := writeTestProject(t)
	writeProjectFile(t, root, "res/values/generated/gen.xml",
		`<resources><string name="generated_label">x</string></resources>`)
	writeProjectFile(t, root, "src/legacy/Old.java", `class Old { int x = R.string.legacy_label; }`)

	cfg := config.DefaultConfig()
	cfg.Scan.Exclude = []string{"**/generated/**"}
	man := manifest.Default()
	man.Exclude = []string{"**/legacy/**"}
	s := newTestScanner(t, cfg, man)

	res, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, fs := range res.States {
		if strings.Contains(fs.Path, "generated") || strings.Contains(fs.Path, "legacy") {
			t.Errorf("excluded file was scanned: %s", fs.Path)
		}
	}
	if e := res.Index.Entry(resource.Identifier{Type: "string", Name: "generated_label"}); e != nil {
		t.Error("identifier from config-excluded file should not be indexed")
	}
	if e := res.Index.Entry(resource.Identifier{Type: "string", Name: "legacy_label"}); e != nil {
		t.Error("identifier from manifest-excluded file should not be indexed")
	}
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "res/values/strings.xml",
		`<resources><string name="kept">x</string></resources>`)
	writeProjectFile(t, root, "src/Big.java",
		"class Big {\n    // "+strings.Repeat("x", 4096)+"\n    int a = R.string.big_only;\n}\n")

	cfg := config.DefaultConfig()
	cfg.Scan.MaxFileSizeBytes = 1024
	s := newTestScanner(t, cfg, nil)

	res, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.FilesSkipped != 1 {
		t.Errorf("FilesSkipped: got %d, want 1", res.FilesSkipped)
	}
	if res.FilesScanned != 1 {
		t.Errorf("FilesScanned: got %d, want 1", res.FilesScanned)
	}
	if e := res.Index.Entry(resource.Identifier{Type: "string", Name: "big_only"}); e != nil {
		t.Error("identifier from oversized file should not be indexed")
	}
}

func TestScanRecordsParseFailureAndContinues(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "res/values/strings.xml",
		`<resources><string name="kept">x</string></resources>`)
	writeProjectFile(t, root, "res/values/broken.xml",
		`<resources><string name="lost">`)

	s := newTestScanner(t, nil, nil)
	res, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.FilesScanned != 2 {
		t.Errorf("FilesScanned: got %d, want 2 (parse failures stay inputs)", res.FilesScanned)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("diagnostics: got %d, want 1 (%+v)", len(res.Diagnostics), res.Diagnostics)
	}
	diag := res.Diagnostics[0]
	if diag.Path != "res/values/broken.xml" {
		t.Errorf("diagnostic path: got %s", diag.Path)
	}
	if diag.Code != errors.ExtractionError {
		t.Errorf("diagnostic code: got %s, want %s", diag.Code, errors.ExtractionError)
	}

	if e := res.Index.Entry(resource.Identifier{Type: "string", Name: "kept"}); e == nil {
		t.Error("well-formed file should still be indexed")
	}
	if e := res.Index.Entry(resource.Identifier{Type: "string", Name: "lost"}); e != nil {
		t.Error("broken file should contribute no occurrences")
	}

	// The broken file is still fingerprinted: fixing it later must
	// register as staleness.
	found := false
	for _, fs := range res.States {
		if fs.Path == "res/values/broken.xml" {
			found = true
		}
	}
	if !found {
		t.Error("parse-failed file should still be fingerprinted")
	}
}

func TestScanCancellation(t *testing.T) {
	root := writeTestProject(t)
	s := newTestScanner(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, root)
	if err == nil {
		t.Fatal("expected error from canceled scan")
	}
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
}

func TestScanMissingRoot(t *testing.T) {
	s := newTestScanner(t, nil, nil)

	_, err := s.Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing scan root")
	}
	if !errors.IsCode(err, errors.ScanRootInvalid) {
		t.Errorf("error code: got %s, want %s", errors.CodeOf(err), errors.ScanRootInvalid)
	}
}

func TestProbeMatchesScanInputs(t *testing.T) {
	root := writeTestProject(t)
	s := newTestScanner(t, nil, nil)

	res, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	probes, err := s.Probe(context.Background(), root)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}

	stored := make(map[string]store.FileState, len(res.States))
	for _, fs := range res.States {
		stored[fs.Path] = fs
	}
	fresh := store.CheckFreshness(stored, probes)
	if !fresh.Fresh {
		t.Errorf("probe directly after scan should be fresh, got reason %q", fresh.Reason)
	}

	var probePaths []string
	for _, p := range probes {
		probePaths = append(probePaths, p.Path)
	}
	sort.Strings(probePaths)
	var statePaths []string
	for _, fs := range res.States {
		statePaths = append(statePaths, fs.Path)
	}
	if !reflect.DeepEqual(probePaths, statePaths) {
		t.Errorf("probe inputs differ from scan inputs:\nprobe %v\nscan  %v", probePaths, statePaths)
	}
}

func TestNewScannerRejectsBadGlobs(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.DefaultConfig()
	cfg.Scan.Exclude = []string{"[broken"}
	_, err := NewScanner(cfg, manifest.Default(), logger)
	var ce *config.ConfigError
	if !stderrors.As(err, &ce) {
		t.Errorf("config glob error: got %v, want ConfigError", err)
	}

	man := manifest.Default()
	man.Exclude = []string{"[broken"}
	_, err = NewScanner(config.DefaultConfig(), man, logger)
	if !errors.IsCode(err, errors.ManifestError) {
		t.Errorf("manifest glob error: got %v, want %s", err, errors.ManifestError)
	}
}
