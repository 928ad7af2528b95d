package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aster/internal/query"
)

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Summarize the index by distinct resources",
	Long: `Print how many distinct resources are defined, used, unused, and
undeclared. Resources matched by a keep rule count as neither unused nor
used; they simply stop being removal candidates.

Examples:
  aster counts
  aster counts --format json`,
	Run: runCounts,
}

func init() {
	rootCmd.AddCommand(countsCmd)
}

func runCounts(cmd *cobra.Command, args []string) {
	scanRoot := mustGetScanRoot()
	logger := newLogger()
	cfg, man := mustLoadProject(scanRoot)
	ctx := newContext()

	keep := mustLoadKeepRules(scanRoot)
	db, idx := mustOpenIndex(ctx, scanRoot, cfg, man, logger)
	defer db.Close()

	counts := query.NewEngine(idx, keep).Counts()
	mustEmit(counts, formatCountsText(counts))
}

func formatCountsText(c query.Counts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "defined:    %d\n", c.Defined)
	fmt.Fprintf(&b, "used:       %d\n", c.Used)
	fmt.Fprintf(&b, "unused:     %d\n", c.Unused)
	fmt.Fprintf(&b, "undeclared: %d\n", c.Undeclared)
	return b.String()
}
