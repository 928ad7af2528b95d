package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aster/internal/query"
)

var lsUndeclaredCmd = &cobra.Command{
	Use:   "ls-undeclared",
	Short: "List resources that are used but never declared",
	Long: `List every resource referenced from code or layouts without a
matching definition, with the sites that reference it. These usually
break the build or fall back to runtime lookups, so each one deserves a
look.

Examples:
  aster ls-undeclared
  aster ls-undeclared --format json`,
	Run: runLsUndeclared,
}

func init() {
	rootCmd.AddCommand(lsUndeclaredCmd)
}

// UndeclaredResponseCLI is the CLI response for ls-undeclared.
type UndeclaredResponseCLI struct {
	Total     int                 `json:"total"`
	Resources []UndeclaredItemCLI `json:"resources"`
}

// UndeclaredItemCLI is one undeclared resource with the sites that
// reference it.
type UndeclaredItemCLI struct {
	Type   string       `json:"type"`
	Name   string       `json:"name"`
	Usages []query.Site `json:"usages,omitempty"`
}

func runLsUndeclared(cmd *cobra.Command, args []string) {
	scanRoot := mustGetScanRoot()
	logger := newLogger()
	cfg, man := mustLoadProject(scanRoot)
	ctx := newContext()

	db, idx := mustOpenIndex(ctx, scanRoot, cfg, man, logger)
	defer db.Close()

	engine := query.NewEngine(idx, nil)
	resp := &UndeclaredResponseCLI{}
	for _, m := range engine.ListUndeclared() {
		resp.Resources = append(resp.Resources, UndeclaredItemCLI{
			Type:   m.Identifier.Type,
			Name:   m.Identifier.Name,
			Usages: m.Usages,
		})
	}
	resp.Total = len(resp.Resources)

	mustEmit(resp, formatUndeclaredText(resp))
}

func formatUndeclaredText(resp *UndeclaredResponseCLI) string {
	if resp.Total == 0 {
		return "No undeclared resources.\n"
	}
	var b strings.Builder
	for _, item := range resp.Resources {
		fmt.Fprintf(&b, "@%s/%s\n", item.Type, item.Name)
		for _, site := range item.Usages {
			fmt.Fprintf(&b, "  %s\n", formatSite(site))
		}
	}
	return b.String()
}
