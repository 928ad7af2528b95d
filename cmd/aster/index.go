package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aster/internal/config"
	"aster/internal/errors"
	"aster/internal/output"
	"aster/internal/scan"
	"aster/internal/store"
)

var (
	// indexForce is the CLI --force flag value
	indexForce bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the resource index",
	Long: `Scan the project and build the resource index under .aster/.

Without --force, a current index is left alone. An index whose inputs
changed since the last build is rebuilt from scratch.

Examples:
  aster index
  aster index --force
  aster index --root ./app`,
	Run: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false,
		"Rebuild even if the index is current")
	rootCmd.AddCommand(indexCmd)
}

// IndexReportCLI is the CLI response for the index command.
type IndexReportCLI struct {
	Rebuilt         bool            `json:"rebuilt"`
	ScanRoot        string          `json:"scanRoot"`
	BuildID         string          `json:"buildId,omitempty"`
	BuiltAt         string          `json:"builtAt,omitempty"`
	FilesScanned    int             `json:"filesScanned"`
	FilesSkipped    int             `json:"filesSkipped,omitempty"`
	Identifiers     int             `json:"identifiers,omitempty"`
	Occurrences     int             `json:"occurrences,omitempty"`
	DurationSeconds float64         `json:"durationSeconds,omitempty"`
	Diagnostics     []DiagnosticCLI `json:"diagnostics,omitempty"`
}

func runIndex(cmd *cobra.Command, args []string) {
	scanRoot := mustGetScanRoot()
	logger := newLogger()
	cfg, man := mustLoadProject(scanRoot)
	ctx := newContext()

	scanner, err := scan.NewScanner(cfg, man, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !indexForce && indexExists(scanRoot) {
		fresh := probeFreshness(ctx, scanRoot, scanner, logger)
		if fresh != nil && fresh.Fresh {
			resp := currentIndexReport(scanRoot, logger)
			mustEmit(resp, formatIndexCurrentText(resp))
			return
		}
		if fresh != nil {
			logger.Info("index is stale", "reason", fresh.Reason)
		}
	}

	lock, err := store.AcquireLock(scanRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer lock.Release()

	result, err := scanner.Run(ctx, scanRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db, err := openForBuild(scanRoot, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.SaveIndex(result.Index, result.States); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sidecar := store.SidecarFromMeta(result.Index.Meta, result.Duration)
	if err := sidecar.Save(scanRoot); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save index metadata: %v\n", err)
	}

	resp := convertIndexReport(scanRoot, result)
	mustEmit(resp, formatIndexReportText(resp))
}

// probeFreshness compares the stored fingerprints against the tree.
// Returns nil when the comparison itself fails, which callers treat as
// stale.
func probeFreshness(ctx context.Context, scanRoot string, scanner *scan.Scanner, logger *slog.Logger) *store.Freshness {
	db, err := store.Open(scanRoot, logger)
	if err != nil {
		return nil
	}
	defer db.Close()

	stored, err := db.LoadFileStates()
	if err != nil || len(stored) == 0 {
		return nil
	}
	probes, err := scanner.Probe(ctx, scanRoot)
	if err != nil {
		return nil
	}
	return store.CheckFreshness(stored, probes)
}

// openForBuild opens the store for a rebuild. An incompatible schema is
// removed and recreated when the config allows it; a corrupt store is
// always recreated, since the scan in hand replaces it anyway.
func openForBuild(scanRoot string, cfg *config.Config, logger *slog.Logger) (*store.DB, error) {
	db, err := store.Open(scanRoot, logger)
	if err == nil {
		return db, nil
	}

	switch {
	case errors.IsCode(err, errors.IndexVersionError):
		if !cfg.Index.RebuildOnVersionMismatch {
			return nil, err
		}
		logger.Warn("replacing index with incompatible schema", "error", err)
	case errors.IsCode(err, errors.IndexCorrupt):
		logger.Warn("replacing unreadable index", "error", err)
	default:
		return nil, err
	}

	if err := store.Remove(scanRoot); err != nil {
		return nil, err
	}
	return store.Open(scanRoot, logger)
}

func convertIndexReport(scanRoot string, result *scan.Result) *IndexReportCLI {
	occurrences := 0
	for _, entry := range result.Index.Entries {
		occurrences += len(entry.Definitions) + len(entry.Usages)
	}
	return &IndexReportCLI{
		Rebuilt:         true,
		ScanRoot:        result.Index.Meta.ScanRoot,
		BuildID:         result.Index.Meta.BuildID,
		BuiltAt:         result.Index.Meta.BuiltAt.UTC().Format(time.RFC3339),
		FilesScanned:    result.FilesScanned,
		FilesSkipped:    result.FilesSkipped,
		Identifiers:     result.Index.Len(),
		Occurrences:     occurrences,
		DurationSeconds: output.RoundFloat(result.Duration.Seconds()),
		Diagnostics:     convertDiagnostics(result.Diagnostics),
	}
}

// currentIndexReport describes an index that needed no rebuild, from the
// stored metadata alone.
func currentIndexReport(scanRoot string, logger *slog.Logger) *IndexReportCLI {
	resp := &IndexReportCLI{Rebuilt: false, ScanRoot: scanRoot}

	db, err := store.Open(scanRoot, logger)
	if err != nil {
		return resp
	}
	defer db.Close()

	meta, err := db.ReadMeta()
	if err != nil {
		return resp
	}
	resp.ScanRoot = meta.ScanRoot
	resp.BuildID = meta.BuildID
	resp.BuiltAt = meta.BuiltAt.UTC().Format(time.RFC3339)
	resp.FilesScanned = meta.FileCount
	return resp
}

func formatIndexReportText(resp *IndexReportCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Indexed %d file(s) in %.1fs (%d skipped).\n",
		resp.FilesScanned, resp.DurationSeconds, resp.FilesSkipped)
	fmt.Fprintf(&b, "  identifiers: %d\n", resp.Identifiers)
	fmt.Fprintf(&b, "  occurrences: %d\n", resp.Occurrences)
	fmt.Fprintf(&b, "  build:       %s at %s\n", resp.BuildID, resp.BuiltAt)
	writeDiagnosticsText(&b, resp.Diagnostics)
	return b.String()
}

func formatIndexCurrentText(resp *IndexReportCLI) string {
	if resp.BuiltAt == "" {
		return "Index is current. Nothing to do. Use --force to re-index.\n"
	}
	return fmt.Sprintf("Index is current (built %s, %d files). Nothing to do. Use --force to re-index.\n",
		resp.BuiltAt, resp.FilesScanned)
}
