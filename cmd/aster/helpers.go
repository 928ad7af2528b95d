package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"aster/internal/config"
	"aster/internal/errors"
	"aster/internal/exclude"
	"aster/internal/manifest"
	"aster/internal/paths"
	"aster/internal/resource"
	"aster/internal/scan"
	"aster/internal/slogutil"
	"aster/internal/store"
)

// getScanRoot resolves the scan root from --root, falling back to the
// working directory.
func getScanRoot() (string, error) {
	if flagRoot != "" {
		return flagRoot, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot determine working directory: %w", err)
	}
	return cwd, nil
}

func mustGetScanRoot() string {
	root, err := getScanRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// newLogger builds the stderr logger every command shares, honoring -v
// and --quiet.
func newLogger() *slog.Logger {
	return slogutil.NewLogger(os.Stderr, slogutil.LevelFromVerbosity(flagVerbose, flagQuiet))
}

func newContext() context.Context {
	return context.Background()
}

// loadProject reads the manifest and config at the scan root and lays
// the root-level flag overrides over the manifest. Missing files mean
// defaults, so this only fails on malformed ones.
func loadProject(scanRoot string) (*config.Config, *manifest.Manifest, error) {
	cfg, err := config.LoadConfig(scanRoot)
	if err != nil {
		return nil, nil, err
	}
	man, err := manifest.Load(scanRoot)
	if err != nil {
		return nil, nil, err
	}
	if err := applyRootFlags(man); err != nil {
		return nil, nil, err
	}
	return cfg, man, nil
}

// applyRootFlags overrides the manifest's language and roots with the
// --language, --res-root, and --source-root flag values, re-validating
// the result.
func applyRootFlags(man *manifest.Manifest) error {
	if flagLanguage != "" {
		man.Language = flagLanguage
	}
	if flagResRoot != "" {
		man.ResRoot = flagResRoot
	}
	if len(flagSourceRoots) > 0 {
		man.SourceRoots = flagSourceRoots
	}
	return man.Validate()
}

func mustLoadProject(scanRoot string) (*config.Config, *manifest.Manifest) {
	cfg, man, err := loadProject(scanRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg, man
}

// loadKeepRules reads .aster/keep.toml. A missing file is an empty set.
func loadKeepRules(scanRoot string) (*exclude.RuleSet, error) {
	return exclude.Load(paths.KeepRulesPath(scanRoot))
}

func mustLoadKeepRules(scanRoot string) *exclude.RuleSet {
	keep, err := loadKeepRules(scanRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return keep
}

// openIndex loads the persisted index for a query, enforcing the
// configured staleness policy: under "warn" a stale index prints a
// warning and is used anyway, under "error" it refuses. The caller
// closes the returned DB.
func openIndex(ctx context.Context, scanRoot string, cfg *config.Config, man *manifest.Manifest, logger *slog.Logger) (*store.DB, *resource.Index, error) {
	if !indexExists(scanRoot) {
		return nil, nil, errors.Newf(errors.IndexMissing,
			"no index under %s; run 'aster index' first", scanRoot)
	}

	db, err := store.Open(scanRoot, logger)
	if err != nil {
		if errors.IsCode(err, errors.IndexVersionError) {
			return nil, nil, errors.New(errors.IndexVersionError,
				"index was built by an incompatible version; run 'aster index' to rebuild", err)
		}
		return nil, nil, err
	}

	idx, err := db.LoadIndex()
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	if err := checkStalePolicy(ctx, db, scanRoot, cfg, man, logger); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, idx, nil
}

func mustOpenIndex(ctx context.Context, scanRoot string, cfg *config.Config, man *manifest.Manifest, logger *slog.Logger) (*store.DB, *resource.Index) {
	db, idx, err := openIndex(ctx, scanRoot, cfg, man, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return db, idx
}

// checkStalePolicy compares the stored fingerprints against the tree and
// applies cfg.Index.StalePolicy to the outcome.
func checkStalePolicy(ctx context.Context, db *store.DB, scanRoot string, cfg *config.Config, man *manifest.Manifest, logger *slog.Logger) error {
	stored, err := db.LoadFileStates()
	if err != nil {
		return err
	}

	scanner, err := scan.NewScanner(cfg, man, logger)
	if err != nil {
		return err
	}
	probes, err := scanner.Probe(ctx, scanRoot)
	if err != nil {
		return err
	}

	fresh := store.CheckFreshness(stored, probes)
	if fresh.Fresh {
		return nil
	}
	if cfg.Index.StalePolicy == config.StaleError {
		return errors.Newf(errors.StaleIndex,
			"index is stale (%s); run 'aster index'", fresh.Reason)
	}
	fmt.Fprintf(os.Stderr, "Warning: index is stale (%s); run 'aster index' to refresh.\n", fresh.Reason)
	return nil
}

// indexExists reports whether an index database is present, without
// creating one the way store.Open would.
func indexExists(scanRoot string) bool {
	info, err := os.Stat(paths.DatabasePath(scanRoot))
	return err == nil && !info.IsDir()
}
