package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aster/internal/scan"
	"aster/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index state and freshness",
	Long: `Report whether an index exists, when it was built, and whether it
still matches the tree. Status never rebuilds anything; it exists so
scripts and people can decide whether to run 'aster index'.

Examples:
  aster status
  aster status --format json`,
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// StatusResponseCLI is the CLI response for status.
type StatusResponseCLI struct {
	ScanRoot    string `json:"scanRoot"`
	Indexed     bool   `json:"indexed"`
	BuiltAt     string `json:"builtAt,omitempty"`
	Age         string `json:"age,omitempty"`
	BuildID     string `json:"buildId,omitempty"`
	ToolVersion string `json:"toolVersion,omitempty"`
	Files       int    `json:"files,omitempty"`
	Identifiers int    `json:"identifiers,omitempty"`
	Fresh       bool   `json:"fresh"`
	StaleReason string `json:"staleReason,omitempty"`
	KeepRules   int    `json:"keepRules,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	scanRoot := mustGetScanRoot()
	logger := newLogger()
	cfg, man := mustLoadProject(scanRoot)
	ctx := newContext()

	resp := &StatusResponseCLI{ScanRoot: scanRoot}
	if keep, err := loadKeepRules(scanRoot); err == nil {
		resp.KeepRules = keep.Len()
	}

	if !indexExists(scanRoot) {
		mustEmit(resp, fmt.Sprintf("No index under %s. Run 'aster index' first.\n", scanRoot))
		return
	}

	db, err := store.Open(scanRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	meta, err := db.ReadMeta()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	resp.Indexed = true
	resp.ScanRoot = meta.ScanRoot
	resp.BuiltAt = meta.BuiltAt.UTC().Format(time.RFC3339)
	resp.BuildID = meta.BuildID
	resp.ToolVersion = meta.ToolVersion
	resp.Files = meta.FileCount
	resp.Age = store.SidecarFromMeta(meta, 0).Age(time.Now())

	idx, err := db.LoadIndex()
	if err == nil {
		resp.Identifiers = idx.Len()
	}

	if scanner, err := scan.NewScanner(cfg, man, logger); err == nil {
		stored, err := db.LoadFileStates()
		if err == nil {
			if probes, err := scanner.Probe(ctx, scanRoot); err == nil {
				fresh := store.CheckFreshness(stored, probes)
				resp.Fresh = fresh.Fresh
				resp.StaleReason = fresh.Reason
			}
		}
	}

	mustEmit(resp, formatStatusText(resp))
}

func formatStatusText(resp *StatusResponseCLI) string {
	age := resp.Age
	if age != "" && age != "just now" {
		age += " ago"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Index at %s\n", resp.ScanRoot)
	fmt.Fprintf(&b, "  built:       %s (%s)\n", resp.BuiltAt, age)
	fmt.Fprintf(&b, "  build id:    %s\n", resp.BuildID)
	fmt.Fprintf(&b, "  tool:        %s\n", resp.ToolVersion)
	fmt.Fprintf(&b, "  files:       %d\n", resp.Files)
	fmt.Fprintf(&b, "  identifiers: %d\n", resp.Identifiers)
	if resp.Fresh {
		fmt.Fprintf(&b, "  fresh:       yes\n")
	} else {
		fmt.Fprintf(&b, "  fresh:       no (%s)\n", resp.StaleReason)
	}
	if resp.KeepRules > 0 {
		fmt.Fprintf(&b, "  keep rules:  %d\n", resp.KeepRules)
	}
	return b.String()
}
