package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aster/internal/query"
)

var (
	// lsUnusedPrefix is the CLI --prefix flag value
	lsUnusedPrefix string

	// lsUnusedSites is the CLI --sites flag value
	lsUnusedSites bool
)

var lsUnusedCmd = &cobra.Command{
	Use:   "ls-unused",
	Short: "List resources that are defined but never used",
	Long: `List every resource with at least one definition and no usages,
in type/name order. Keep rules in .aster/keep.toml exempt resources from
the listing.

With --sites each resource is followed by its definition locations, ready
to jump to.

Examples:
  aster ls-unused
  aster ls-unused -p debug_
  aster ls-unused --sites --format json`,
	Run: runLsUnused,
}

func init() {
	lsUnusedCmd.Flags().StringVarP(&lsUnusedPrefix, "prefix", "p", "",
		"Only list resources whose name has this prefix")
	lsUnusedCmd.Flags().BoolVarP(&lsUnusedSites, "sites", "s", false,
		"Include definition sites")
	rootCmd.AddCommand(lsUnusedCmd)
}

// UnusedResponseCLI is the CLI response for ls-unused.
type UnusedResponseCLI struct {
	Total     int             `json:"total"`
	Prefix    string          `json:"prefix,omitempty"`
	Resources []UnusedItemCLI `json:"resources"`
}

// UnusedItemCLI is one unused resource in the listing.
type UnusedItemCLI struct {
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	Definitions []query.Site `json:"definitions,omitempty"`
}

func runLsUnused(cmd *cobra.Command, args []string) {
	scanRoot := mustGetScanRoot()
	logger := newLogger()
	cfg, man := mustLoadProject(scanRoot)
	ctx := newContext()

	keep := mustLoadKeepRules(scanRoot)
	db, idx := mustOpenIndex(ctx, scanRoot, cfg, man, logger)
	defer db.Close()

	engine := query.NewEngine(idx, keep)
	resp := &UnusedResponseCLI{Prefix: lsUnusedPrefix}

	if lsUnusedSites {
		for _, m := range engine.ListUnusedWithSites(lsUnusedPrefix) {
			resp.Resources = append(resp.Resources, UnusedItemCLI{
				Type:        m.Identifier.Type,
				Name:        m.Identifier.Name,
				Definitions: m.Definitions,
			})
		}
	} else {
		for _, id := range engine.ListUnused(lsUnusedPrefix) {
			resp.Resources = append(resp.Resources, UnusedItemCLI{
				Type: id.Type,
				Name: id.Name,
			})
		}
	}
	resp.Total = len(resp.Resources)

	mustEmit(resp, formatUnusedText(resp))
}

func formatUnusedText(resp *UnusedResponseCLI) string {
	if resp.Total == 0 {
		return "No unused resources.\n"
	}
	var b strings.Builder
	for _, item := range resp.Resources {
		fmt.Fprintf(&b, "@%s/%s\n", item.Type, item.Name)
		for _, site := range item.Definitions {
			fmt.Fprintf(&b, "  %s\n", formatSite(site))
		}
	}
	return b.String()
}
