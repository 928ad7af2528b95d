package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"aster/internal/config"
	"aster/internal/errors"
	"aster/internal/manifest"
	"aster/internal/scan"
	"aster/internal/store"
	"aster/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildTestIndex scans the canned project and saves the result, the way
// the index command does.
func buildTestIndex(t *testing.T, p testutil.Project) {
	t.Helper()
	logger := discardLogger()

	s, err := scan.NewScanner(config.DefaultConfig(), manifest.Default(), logger)
	if err != nil {
		t.Fatalf("NewScanner failed: %v", err)
	}
	result, err := s.Run(context.Background(), p.Root)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	db, err := store.Open(p.Root, logger)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer db.Close()
	if err := db.SaveIndex(result.Index, result.States); err != nil {
		t.Fatalf("SaveIndex failed: %v", err)
	}
}

func TestApplyRootFlags(t *testing.T) {
	defer func() {
		flagLanguage = ""
		flagResRoot = ""
		flagSourceRoots = nil
	}()

	flagLanguage = "kotlin"
	flagResRoot = "app/src/main/res"
	flagSourceRoots = []string{"app/src/main/java", "lib/src"}

	man := manifest.Default()
	if err := applyRootFlags(man); err != nil {
		t.Fatalf("applyRootFlags failed: %v", err)
	}
	if man.Language != "kotlin" {
		t.Errorf("Language = %q, want kotlin", man.Language)
	}
	if man.ResRoot != "app/src/main/res" {
		t.Errorf("ResRoot = %q, want app/src/main/res", man.ResRoot)
	}
	if len(man.SourceRoots) != 2 || man.SourceRoots[1] != "lib/src" {
		t.Errorf("SourceRoots = %v, want the two flag values", man.SourceRoots)
	}

	flagResRoot = "../outside"
	err := applyRootFlags(manifest.Default())
	if !errors.IsCode(err, errors.ManifestError) {
		t.Errorf("escaping --res-root: got %v, want %s", err, errors.ManifestError)
	}
}

func TestApplyRootFlagsUnsetKeepsManifest(t *testing.T) {
	man := manifest.Default()
	if err := applyRootFlags(man); err != nil {
		t.Fatalf("applyRootFlags failed: %v", err)
	}
	def := manifest.Default()
	if man.Language != def.Language || man.ResRoot != def.ResRoot {
		t.Errorf("unset flags changed the manifest: %+v", man)
	}
}

func TestOpenIndexMissing(t *testing.T) {
	root := t.TempDir()

	_, _, err := openIndex(context.Background(), root,
		config.DefaultConfig(), manifest.Default(), discardLogger())
	if err == nil {
		t.Fatal("expected an error for a missing index")
	}
	if !errors.IsCode(err, errors.IndexMissing) {
		t.Errorf("expected IndexMissing, got %v", err)
	}
}

func TestOpenIndexAfterBuild(t *testing.T) {
	p := testutil.DefaultProject(t)
	buildTestIndex(t, p)

	db, idx, err := openIndex(context.Background(), p.Root,
		config.DefaultConfig(), manifest.Default(), discardLogger())
	if err != nil {
		t.Fatalf("openIndex failed: %v", err)
	}
	defer db.Close()

	// app_name, old_title, layout/main, and the undeclared string/missing.
	if got := idx.Len(); got != 4 {
		t.Errorf("identifier count = %d, want 4", got)
	}
}

func TestOpenIndexStaleErrorPolicy(t *testing.T) {
	p := testutil.DefaultProject(t)
	buildTestIndex(t, p)

	p.Write(t, "res/values/strings.xml", `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">Aster Demo, renamed</string>
</resources>
`)

	cfg := config.DefaultConfig()
	cfg.Index.StalePolicy = config.StaleError

	_, _, err := openIndex(context.Background(), p.Root,
		cfg, manifest.Default(), discardLogger())
	if err == nil {
		t.Fatal("expected a stale index error")
	}
	if !errors.IsCode(err, errors.StaleIndex) {
		t.Errorf("expected StaleIndex, got %v", err)
	}
}

func TestOpenIndexStaleWarnPolicyProceeds(t *testing.T) {
	p := testutil.DefaultProject(t)
	buildTestIndex(t, p)

	p.Write(t, "src/Extra.java", "class Extra {}\n")

	db, idx, err := openIndex(context.Background(), p.Root,
		config.DefaultConfig(), manifest.Default(), discardLogger())
	if err != nil {
		t.Fatalf("warn policy should proceed, got %v", err)
	}
	defer db.Close()
	if idx == nil {
		t.Fatal("expected an index")
	}
}
