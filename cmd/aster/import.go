package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"aster/internal/archive"
	"aster/internal/scan"
	"aster/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <snapshot>",
	Short: "Load an index snapshot written by export snapshot",
	Long: `Replace the local index with the contents of a snapshot file. The
snapshot's integrity digest and format version are verified before
anything is written.

An imported index carries the fingerprints of the machine that built it;
if they do not match this tree, queries will report the index as stale
until the next 'aster index'.

Examples:
  aster import aster-snapshot.json.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// ImportResponseCLI is the CLI response for import.
type ImportResponseCLI struct {
	Path        string `json:"path"`
	BuildID     string `json:"buildId"`
	BuiltAt     string `json:"builtAt"`
	Identifiers int    `json:"identifiers"`
	Files       int    `json:"files"`
	Fresh       bool   `json:"fresh"`
}

func runImport(cmd *cobra.Command, args []string) error {
	scanRoot := mustGetScanRoot()
	logger := newLogger()
	cfg, man := mustLoadProject(scanRoot)
	ctx := newContext()

	snap, err := archive.ImportFile(args[0])
	if err != nil {
		return err
	}

	lock, err := store.AcquireLock(scanRoot)
	if err != nil {
		return err
	}
	defer lock.Release()

	db, err := openForBuild(scanRoot, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveIndex(snap.Index, snap.States); err != nil {
		return err
	}
	sidecar := store.SidecarFromMeta(snap.Index.Meta, 0)
	if err := sidecar.Save(scanRoot); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save index metadata: %v\n", err)
	}

	resp := &ImportResponseCLI{
		Path:        args[0],
		BuildID:     snap.Index.Meta.BuildID,
		BuiltAt:     snap.Index.Meta.BuiltAt.UTC().Format(time.RFC3339),
		Identifiers: snap.Index.Len(),
		Files:       len(snap.States),
	}

	// The snapshot's fingerprints come from the exporting machine, so
	// tell the user right away whether they describe this tree too.
	if scanner, err := scan.NewScanner(cfg, man, logger); err == nil {
		if probes, err := scanner.Probe(ctx, scanRoot); err == nil {
			stored, err := db.LoadFileStates()
			if err == nil {
				resp.Fresh = store.CheckFreshness(stored, probes).Fresh
			}
		}
	}

	human := fmt.Sprintf("Imported index %s (built %s, %d identifiers, %d files).\n",
		resp.BuildID, resp.BuiltAt, resp.Identifiers, resp.Files)
	if !resp.Fresh {
		human += "Warning: the imported index does not match this tree; run 'aster index' to rebuild.\n"
	}
	return emit(resp, human)
}
