// Package scan discovers the input files of a project and runs the
// extractors over them with a bounded worker pool. Its product is the
// in-memory index plus the per-file fingerprints the store persists;
// building is deterministic because results are merged in canonical path
// order regardless of which worker finished first.
package scan

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"aster/internal/config"
	"aster/internal/errors"
	"aster/internal/extract"
	"aster/internal/manifest"
	"aster/internal/paths"
	"aster/internal/resource"
	"aster/internal/store"
	"aster/internal/version"
)

// Scanner runs extraction over a project's input files.
type Scanner struct {
	cfg      *config.Config
	man      *manifest.Manifest
	registry *extract.Registry
	logger   *slog.Logger
	excludes []glob.Glob
}

// NewScanner creates a scanner for the given configuration and manifest.
// Exclude globs from both are compiled once here; a bad pattern is
// reported against its source.
func NewScanner(cfg *config.Config, man *manifest.Manifest, logger *slog.Logger) (*Scanner, error) {
	var excludes []glob.Glob
	for _, pattern := range cfg.Scan.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, &config.ConfigError{
				Field:   "scan.exclude",
				Message: "invalid glob pattern " + pattern,
			}
		}
		excludes = append(excludes, g)
	}
	for _, pattern := range man.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Newf(errors.ManifestError,
				"invalid exclude pattern %q in %s", pattern, paths.ManifestFile)
		}
		excludes = append(excludes, g)
	}

	return &Scanner{
		cfg:      cfg,
		man:      man,
		registry: extract.DefaultRegistry(),
		logger:   logger,
		excludes: excludes,
	}, nil
}

// Result is everything one scan produced.
type Result struct {
	// Index is the merged in-memory index.
	Index *resource.Index

	// States are the fingerprints of every scanned file, in path order.
	States []store.FileState

	// Diagnostics are the per-file problems recorded along the way.
	Diagnostics []extract.Diagnostic

	// FilesScanned counts files that became index inputs.
	FilesScanned int

	// FilesSkipped counts files dropped by the size cap or read failures.
	FilesSkipped int

	// Duration is the wall time of the scan.
	Duration time.Duration
}

// fileResult is one worker's output for one candidate.
type fileResult struct {
	cand        Candidate
	occurrences []resource.Occurrence
	diagnostics []extract.Diagnostic
	state       *store.FileState
}

// Run discovers and extracts every input file under scanRoot and builds
// the index. Cancellation aborts between files and returns before
// anything is merged, so an interrupted scan produces no index at all.
func (s *Scanner) Run(ctx context.Context, scanRoot string) (*Result, error) {
	start := time.Now()

	absRoot, err := s.resolveRoot(scanRoot)
	if err != nil {
		return nil, err
	}

	cands, capSkipped, err := s.discover(ctx, absRoot)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("discovery complete", "candidates", len(cands), "skipped", capSkipped)

	workers := s.cfg.Workers()
	if workers > len(cands) && len(cands) > 0 {
		workers = len(cands)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		results   []fileResult
		processed atomic.Int64
	)

	jobs := make(chan Candidate)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case cand, ok := <-jobs:
					if !ok {
						return
					}
					res := s.extractOne(cand)
					processed.Add(1)
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

feed:
	for _, cand := range cands {
		select {
		case jobs <- cand:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.Info("scan canceled", "processed", processed.Load(), "total", len(cands))
		return nil, err
	}

	// Merge barrier: workers finish in arbitrary order, the index is
	// built in canonical path order.
	sort.Slice(results, func(i, j int) bool { return results[i].cand.Path < results[j].cand.Path })

	meta := resource.Meta{
		ScanRoot:    absRoot,
		LanguageTag: s.man.Language,
		BuiltAt:     time.Now().UTC(),
		BuildID:     uuid.New().String(),
		ToolVersion: version.Version,
	}

	out := &Result{FilesSkipped: capSkipped}
	idx := resource.NewIndex(meta)
	for _, res := range results {
		out.Diagnostics = append(out.Diagnostics, res.diagnostics...)
		if res.state == nil {
			out.FilesSkipped++
			continue
		}
		out.FilesScanned++
		out.States = append(out.States, *res.state)
		for _, occ := range res.occurrences {
			idx.Add(occ)
		}
	}
	idx.Meta.FileCount = out.FilesScanned
	out.Index = idx
	out.Duration = time.Since(start)

	s.logger.Info("scan complete",
		"files", out.FilesScanned,
		"identifiers", idx.Len(),
		"diagnostics", len(out.Diagnostics),
		"skipped", out.FilesSkipped,
		"duration", out.Duration.Round(time.Millisecond).String())
	return out, nil
}

// extractOne reads and extracts a single candidate. A file that fails to
// parse still contributes its fingerprint: it is an input, and editing it
// must register as staleness.
func (s *Scanner) extractOne(cand Candidate) fileResult {
	res := fileResult{cand: cand}

	ex, ok := s.registry.Lookup(cand.Tag)
	if !ok {
		res.diagnostics = append(res.diagnostics, extract.Diagnostic{
			Path:    cand.Path,
			Code:    errors.InternalError,
			Message: "no extractor registered for tag " + cand.Tag,
		})
		return res
	}

	var content []byte
	var state store.FileState
	var err error

	if cand.Tag == extract.TagResFile {
		state, err = store.FingerprintFileStream(cand.Path, cand.AbsPath)
	} else {
		content, err = os.ReadFile(cand.AbsPath)
		if err == nil {
			var info os.FileInfo
			if info, err = os.Stat(cand.AbsPath); err == nil {
				state = store.NewFileState(cand.Path, content, info)
			}
		}
	}
	if err != nil {
		res.diagnostics = append(res.diagnostics, extract.Diagnostic{
			Path:    cand.Path,
			Code:    errors.ExtractionError,
			Message: "cannot read file: " + err.Error(),
		})
		return res
	}
	res.state = &state

	extracted, err := ex.Extract(cand.Path, content)
	if err != nil {
		res.diagnostics = append(res.diagnostics, extract.Diagnostic{
			Path:    cand.Path,
			Code:    errors.CodeOf(err),
			Message: err.Error(),
		})
		return res
	}
	res.occurrences = extracted.Occurrences
	res.diagnostics = append(res.diagnostics, extracted.Diagnostics...)
	return res
}

func (s *Scanner) resolveRoot(scanRoot string) (string, error) {
	absRoot, err := filepath.Abs(scanRoot)
	if err != nil {
		return "", errors.New(errors.ScanRootInvalid, "cannot resolve scan root "+scanRoot, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return "", errors.New(errors.ScanRootInvalid, "cannot read scan root "+absRoot, err)
	}
	if !info.IsDir() {
		return "", errors.Newf(errors.ScanRootInvalid, "scan root %s is not a directory", absRoot)
	}
	return absRoot, nil
}
