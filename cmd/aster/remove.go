package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"aster/internal/mutate"
	"aster/internal/query"
	"aster/internal/store"
)

var (
	// rmPrefix is the CLI --prefix flag value
	rmPrefix string

	// rmDryRun is the CLI --dry-run flag value
	rmDryRun bool

	// rmYes is the CLI --yes flag value
	rmYes bool
)

var rmUnusedCmd = &cobra.Command{
	Use:   "rm-unused",
	Short: "Delete unused resources from the source tree",
	Long: `Remove every occurrence of the resources ls-unused would list,
editing the files in place. Writes are atomic per file, and a file that
changed since the index was built is skipped and reported rather than
edited blind.

Resources matched by a keep rule in .aster/keep.toml are never removed.
A resource also defined in a file-backed form (a drawable PNG, a raw
asset) keeps its files; only text occurrences are deleted.

Examples:
  aster rm-unused --dry-run
  aster rm-unused -p debug_
  aster rm-unused --yes --format json`,
	Run: runRmUnused,
}

func init() {
	rmUnusedCmd.Flags().StringVarP(&rmPrefix, "prefix", "p", "",
		"Only remove resources whose name has this prefix")
	rmUnusedCmd.Flags().BoolVar(&rmDryRun, "dry-run", false,
		"Plan and validate but write nothing")
	rmUnusedCmd.Flags().BoolVarP(&rmYes, "yes", "y", false,
		"Skip the confirmation prompt")
	rootCmd.AddCommand(rmUnusedCmd)
}

// RemoveResponseCLI is the CLI response for rm-unused.
type RemoveResponseCLI struct {
	IdentifiersRemoved int             `json:"identifiersRemoved"`
	FilesModified      int             `json:"filesModified"`
	FilesSkipped       int             `json:"filesSkipped"`
	DryRun             bool            `json:"dryRun,omitempty"`
	Removed            []string        `json:"removed,omitempty"`
	Diagnostics        []DiagnosticCLI `json:"diagnostics,omitempty"`
}

func runRmUnused(cmd *cobra.Command, args []string) {
	scanRoot := mustGetScanRoot()
	logger := newLogger()
	cfg, man := mustLoadProject(scanRoot)
	ctx := newContext()

	keep := mustLoadKeepRules(scanRoot)
	db, idx := mustOpenIndex(ctx, scanRoot, cfg, man, logger)
	defer db.Close()

	targets := query.NewEngine(idx, keep).ListUnused(rmPrefix)
	if len(targets) == 0 {
		mustEmit(&RemoveResponseCLI{DryRun: rmDryRun}, "No unused resources to remove.\n")
		return
	}

	if !rmDryRun && !rmYes {
		for _, id := range targets {
			fmt.Println(formatIdentifier(id))
		}
		fmt.Printf("Remove %d resource(s)? [y/N]: ", len(targets))
		if !confirm(os.Stdin) {
			fmt.Println("Aborted.")
			return
		}
	}

	if !rmDryRun {
		lock, err := store.AcquireLock(scanRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	// The target list is already resolved, so the prompt above and the
	// removal below agree even if the engine would pick differently now.
	mutator := mutate.NewMutator(scanRoot, idx, db, logger)
	report, err := mutator.Remove(ctx, targets, mutate.Options{
		DryRun:  rmDryRun,
		Workers: cfg.Workers(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	resp := convertRemoveReport(report)
	mustEmit(resp, formatRemoveReportText(resp))
}

// confirm reads one line and accepts y or yes, case-insensitive.
// Anything else, including EOF, declines.
func confirm(r io.Reader) bool {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func convertRemoveReport(report *mutate.Report) *RemoveResponseCLI {
	resp := &RemoveResponseCLI{
		IdentifiersRemoved: report.IdentifiersRemoved,
		FilesModified:      report.FilesModified,
		FilesSkipped:       report.FilesSkipped,
		DryRun:             report.DryRun,
		Diagnostics:        convertDiagnostics(report.Diagnostics),
	}
	for _, id := range report.Removed {
		resp.Removed = append(resp.Removed, formatIdentifier(id))
	}
	return resp
}

func formatRemoveReportText(resp *RemoveResponseCLI) string {
	var b strings.Builder
	verb := "Removed"
	if resp.DryRun {
		verb = "Would remove"
	}
	fmt.Fprintf(&b, "%s %d resource(s) across %d file(s).\n",
		verb, resp.IdentifiersRemoved, resp.FilesModified)
	for _, name := range resp.Removed {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	if resp.FilesSkipped > 0 {
		fmt.Fprintf(&b, "%d file(s) skipped.\n", resp.FilesSkipped)
	}
	writeDiagnosticsText(&b, resp.Diagnostics)
	return b.String()
}
