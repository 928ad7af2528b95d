package scan

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aster/internal/extract"
	"aster/internal/store"
)

// skipDirNames are directory names never descended into, wherever they
// appear under the scan root.
var skipDirNames = map[string]bool{
	".git":         true,
	".gradle":      true,
	".idea":        true,
	".aster":       true,
	"build":        true,
	"node_modules": true,
}

// Candidate is one file selected for extraction: its location, the
// extractor tag that will handle it, and the stat data recorded during
// discovery.
type Candidate struct {
	// Path is the canonical scan-relative path.
	Path string

	// AbsPath is the absolute path used for reading.
	AbsPath string

	// Tag selects the extractor.
	Tag string

	// Size and MtimeNs come from the discovery stat.
	Size    int64
	MtimeNs int64
}

// discover walks the res root and every source root under absRoot and
// returns the candidate set sorted by canonical path. Files matching an
// exclude glob or exceeding the size cap are dropped here, so extraction
// and freshness checks always see the same input set.
func (s *Scanner) discover(ctx context.Context, absRoot string) ([]Candidate, int, error) {
	seen := make(map[string]bool)
	var cands []Candidate
	skipped := 0

	resRoot := filepath.Join(absRoot, filepath.FromSlash(s.man.ResRoot))
	if err := s.walkRoot(ctx, absRoot, resRoot, classifyResFile, seen, &cands, &skipped); err != nil {
		return nil, 0, err
	}

	for _, src := range s.man.SourceRoots {
		srcRoot := filepath.Join(absRoot, filepath.FromSlash(src))
		if err := s.walkRoot(ctx, absRoot, srcRoot, classifySourceFile, seen, &cands, &skipped); err != nil {
			return nil, 0, err
		}
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].Path < cands[j].Path })
	return cands, skipped, nil
}

// classify functions map a canonical path to an extractor tag, or "" for
// files the walk ignores.
type classifyFunc func(path string) string

func classifyResFile(path string) string {
	if strings.HasSuffix(path, ".xml") {
		return extract.TagXML
	}
	if extract.FileBackedPath(path) {
		return extract.TagResFile
	}
	return ""
}

func classifySourceFile(path string) string {
	switch filepath.Ext(path) {
	case ".java":
		return extract.TagJava
	case ".kt", ".kts":
		return extract.TagKotlin
	}
	return ""
}

func (s *Scanner) walkRoot(ctx context.Context, absRoot, root string, classify classifyFunc, seen map[string]bool, cands *[]Candidate, skipped *int) error {
	if _, err := os.Stat(root); err != nil {
		// A missing source root is tolerated; the default roots cover
		// projects that keep everything under the scan root.
		if os.IsNotExist(err) {
			s.logger.Debug("skipping missing root", "root", root)
			return nil
		}
		return err
	}

	return filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // skip unreadable entries, continue walking
		}

		if d.IsDir() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if skipDirNames[filepath.Base(path)] && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths outside the root
		}
		canonical := filepath.ToSlash(rel)

		if seen[canonical] || s.excluded(canonical) {
			return nil
		}

		tag := classify(canonical)
		if tag == "" {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil //nolint:nilerr // file vanished mid-walk
		}

		// Binary resource files are streamed, never loaded, so the cap
		// only applies to files the extractors parse.
		if tag != extract.TagResFile && s.cfg.Scan.MaxFileSizeBytes > 0 && info.Size() > s.cfg.Scan.MaxFileSizeBytes {
			s.logger.Debug("skipping oversized file",
				"path", canonical, "size", info.Size(), "cap", s.cfg.Scan.MaxFileSizeBytes)
			*skipped++
			return nil
		}

		seen[canonical] = true
		*cands = append(*cands, Candidate{
			Path:    canonical,
			AbsPath: path,
			Tag:     tag,
			Size:    info.Size(),
			MtimeNs: info.ModTime().UnixNano(),
		})
		return nil
	})
}

func (s *Scanner) excluded(canonical string) bool {
	for _, g := range s.excludes {
		if g.Match(canonical) {
			return true
		}
	}
	return false
}

// Probe discovers the current input set without extracting anything.
// Freshness checks compare its result against the stored fingerprints.
func (s *Scanner) Probe(ctx context.Context, scanRoot string) ([]store.ProbeFile, error) {
	absRoot, err := s.resolveRoot(scanRoot)
	if err != nil {
		return nil, err
	}
	cands, _, err := s.discover(ctx, absRoot)
	if err != nil {
		return nil, err
	}

	probes := make([]store.ProbeFile, 0, len(cands))
	for _, c := range cands {
		probes = append(probes, store.ProbeFile{
			Path:    c.Path,
			AbsPath: c.AbsPath,
			Size:    c.Size,
			MtimeNs: c.MtimeNs,
		})
	}
	return probes, nil
}
