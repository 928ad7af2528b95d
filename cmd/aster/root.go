package main

import (
	"github.com/spf13/cobra"

	"aster/internal/version"
)

var (
	// flagRoot is the CLI --root flag value; empty means the working
	// directory.
	flagRoot string

	// flagResRoot, flagSourceRoots, and flagLanguage override the
	// manifest when set.
	flagResRoot     string
	flagSourceRoots []string
	flagLanguage    string

	// flagFormat selects the output format for every command.
	flagFormat string

	flagVerbose int
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "aster",
	Short: "aster - Android resource cross-referencer",
	Long: `aster indexes the resource definitions and usages of an Android project
and answers questions about them: which resources exist, which are defined
but never used, and which are used but never declared. It can also remove
unused resources from the tree once you have reviewed the list.

The index lives under .aster/ at the scan root. Build it with 'aster index',
then query it with counts, ls-unused, ls-undeclared, and status.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("aster version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "",
		"Scan root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flagResRoot, "res-root", "",
		"Resource tree root, relative to the scan root (overrides aster.toml)")
	rootCmd.PersistentFlags().StringSliceVar(&flagSourceRoots, "source-root", nil,
		"Source tree to scan for references; repeatable (overrides aster.toml)")
	rootCmd.PersistentFlags().StringVar(&flagLanguage, "language", "",
		"Source language: java or kotlin (overrides aster.toml)")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "text",
		"Output format: text, json, or yaml")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v",
		"Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false,
		"Suppress log output")
}
