package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"aster/internal/archive"
	"aster/internal/scipexport"
	"aster/internal/store"
)

var (
	// exportOut is the CLI --out flag value
	exportOut string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index for transfer or external tools",
	Long: `Write the index out of the store, either as a portable snapshot
another machine can import, or as a SCIP file for code-intelligence
tooling.

Examples:
  aster export snapshot
  aster export snapshot -o build/resources.json.zst
  aster export scip -o index.scip`,
}

var exportSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write a portable snapshot of the index",
	Long: `Write the index and its file fingerprints as one zstd-compressed
JSON document. Equal indexes export to equal bytes. Use '-' as the
output to stream to stdout.`,
	RunE: runExportSnapshot,
}

var exportScipCmd = &cobra.Command{
	Use:   "scip",
	Short: "Write the index as a SCIP file",
	Long: `Write the index in SCIP form, one document per indexed file with
an occurrence per definition and usage, for editors and code-intelligence
pipelines that read SCIP.`,
	RunE: runExportScip,
}

func init() {
	exportCmd.PersistentFlags().StringVarP(&exportOut, "out", "o", "",
		"Output file (default: aster-snapshot.json.zst / index.scip)")
	exportCmd.AddCommand(exportSnapshotCmd)
	exportCmd.AddCommand(exportScipCmd)
	rootCmd.AddCommand(exportCmd)
}

// ExportResponseCLI is the CLI response for both export forms.
type ExportResponseCLI struct {
	Path        string `json:"path"`
	Identifiers int    `json:"identifiers"`
	Files       int    `json:"files,omitempty"`
}

func runExportSnapshot(cmd *cobra.Command, args []string) error {
	scanRoot := mustGetScanRoot()
	logger := newLogger()
	cfg, man := mustLoadProject(scanRoot)
	ctx := newContext()

	db, idx, err := openIndex(ctx, scanRoot, cfg, man, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	stored, err := db.LoadFileStates()
	if err != nil {
		return err
	}
	states := make([]store.FileState, 0, len(stored))
	for _, st := range stored {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Path < states[j].Path })

	out := exportOut
	if out == "-" {
		if err := archive.Export(idx, states, os.Stdout); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote snapshot to stdout (%d identifiers, %d files).\n",
			idx.Len(), len(states))
		return nil
	}
	if out == "" {
		out = "aster-snapshot.json.zst"
	}
	if err := archive.ExportFile(out, idx, states); err != nil {
		return err
	}

	resp := &ExportResponseCLI{Path: out, Identifiers: idx.Len(), Files: len(states)}
	return emit(resp, fmt.Sprintf("Wrote snapshot to %s (%d identifiers, %d files).\n",
		resp.Path, resp.Identifiers, resp.Files))
}

func runExportScip(cmd *cobra.Command, args []string) error {
	scanRoot := mustGetScanRoot()
	logger := newLogger()
	cfg, man := mustLoadProject(scanRoot)
	ctx := newContext()

	db, idx, err := openIndex(ctx, scanRoot, cfg, man, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	out := exportOut
	if out == "" {
		out = "index.scip"
	}
	if err := scipexport.WriteFile(out, idx); err != nil {
		return err
	}

	resp := &ExportResponseCLI{Path: out, Identifiers: idx.Len()}
	return emit(resp, fmt.Sprintf("Wrote SCIP index to %s (%d identifiers).\n",
		resp.Path, resp.Identifiers))
}
