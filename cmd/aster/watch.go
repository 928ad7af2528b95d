package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aster/internal/config"
	"aster/internal/paths"
	"aster/internal/scan"
	"aster/internal/slogutil"
	"aster/internal/store"
	"aster/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the index automatically as files change",
	Long: `Watch the manifest's resource and source roots and rebuild the
index after each burst of changes settles. The debounce interval comes
from watch.debounceMs in .aster/config.json.

Watch logs to stderr and to .aster/logs/aster.log. Stop it with Ctrl-C.

Examples:
  aster watch
  aster watch --root ./app -v`,
	Run: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	scanRoot := mustGetScanRoot()
	cfg, man := mustLoadProject(scanRoot)

	logger, closer := watchLogger(scanRoot, cfg)
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, err := scan.NewScanner(cfg, man, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rebuild := func(changed []string) {
		if len(changed) > 0 {
			logger.Info("changes detected", "files", len(changed))
		}
		if err := rebuildIndex(ctx, scanRoot, cfg, scanner, logger); err != nil && ctx.Err() == nil {
			logger.Error("rebuild failed", "error", err)
		}
	}

	// Bring the index up to date before the first event.
	if fresh := probeFreshness(ctx, scanRoot, scanner, logger); fresh == nil || !fresh.Fresh {
		rebuild(nil)
	}

	w, err := watcher.New(scanRoot, man, cfg, logger, rebuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Watching %s for resource changes. Press Ctrl-C to stop.\n", scanRoot)
	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Stopped.")
}

// rebuildIndex runs one full scan-and-save cycle under the build lock.
func rebuildIndex(ctx context.Context, scanRoot string, cfg *config.Config, scanner *scan.Scanner, logger *slog.Logger) error {
	lock, err := store.AcquireLock(scanRoot)
	if err != nil {
		return err
	}
	defer lock.Release()

	result, err := scanner.Run(ctx, scanRoot)
	if err != nil {
		return err
	}

	db, err := openForBuild(scanRoot, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveIndex(result.Index, result.States); err != nil {
		return err
	}
	if err := store.SidecarFromMeta(result.Index.Meta, result.Duration).Save(scanRoot); err != nil {
		logger.Warn("could not save index metadata", "error", err)
	}

	logger.Info("index rebuilt",
		"files", result.FilesScanned,
		"identifiers", result.Index.Len(),
		"duration", result.Duration.Round(time.Millisecond).String())
	return nil
}

// watchLogger logs to stderr and to .aster/logs/aster.log so long watch
// sessions leave a record. If the log file cannot be opened, stderr
// alone is used.
func watchLogger(scanRoot string, cfg *config.Config) (*slog.Logger, io.Closer) {
	// Watch narrates by default, so its base level is one notch more
	// verbose than the other commands.
	level := slogutil.LevelFromVerbosity(flagVerbose+1, flagQuiet)
	console := slogutil.NewAsterHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	logsDir := paths.LogsDir(scanRoot)
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return slog.New(console), nil
	}
	logPath := filepath.Join(logsDir, "aster.log")
	rf, err := slogutil.OpenRotatingFile(logPath, slogutil.ParseSize("10MB"), 3)
	if err != nil {
		return slog.New(console), nil
	}

	// The file log captures at logging.level from config, independent of
	// the console flags.
	fileLevel := slogutil.LevelFromString(cfg.Logging.Level)
	file := slogutil.NewAsterHandler(rf, &slog.HandlerOptions{Level: fileLevel})
	return slogutil.NewTeeLogger(console, file), rf
}
