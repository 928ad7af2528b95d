package main

import (
	"os"

	"aster/internal/slogutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := slogutil.NewLogger(os.Stderr, slogutil.LevelFromVerbosity(flagVerbose, flagQuiet))
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
