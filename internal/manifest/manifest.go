// Package manifest reads the optional aster.toml file at the scan root.
// The manifest pins per-project settings (language, resource and source
// roots, exclude globs) so invocations stay flag-free; flags still win
// over manifest values.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"aster/internal/errors"
	"aster/internal/paths"
)

// CurrentVersion is the manifest schema version this build reads.
const CurrentVersion = 1

// Manifest is the parsed aster.toml.
type Manifest struct {
	// Version is the manifest schema version.
	Version int `toml:"version"`

	// Language selects the source extractor: "java" or "kotlin".
	Language string `toml:"language,omitempty"`

	// ResRoot is the resource tree root, relative to the scan root.
	ResRoot string `toml:"res_root,omitempty"`

	// SourceRoots are the source trees to scan for references,
	// relative to the scan root.
	SourceRoots []string `toml:"source_roots,omitempty"`

	// Exclude holds glob patterns (/-separated, matched against
	// canonical relative paths) for files the scan skips.
	Exclude []string `toml:"exclude,omitempty"`
}

// Default returns the manifest used when no aster.toml exists.
func Default() *Manifest {
	return &Manifest{
		Version:     CurrentVersion,
		Language:    "java",
		ResRoot:     "res",
		SourceRoots: []string{"."},
	}
}

// Load reads aster.toml from the scan root. A missing file yields the
// defaults; an unreadable or unsupported file is an error. Fields left
// empty in the file fall back to their defaults.
func Load(scanRoot string) (*Manifest, error) {
	path := paths.ManifestPath(scanRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.New(errors.ManifestError,
			fmt.Sprintf("cannot read %s", path), err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.ManifestError,
			fmt.Sprintf("cannot parse %s", path), err)
	}

	if m.Version == 0 {
		m.Version = CurrentVersion
	}
	if m.Version != CurrentVersion {
		return nil, errors.Newf(errors.ManifestError,
			"%s has version %d; this build reads version %d",
			path, m.Version, CurrentVersion)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	def := Default()
	if m.Language == "" {
		m.Language = def.Language
	}
	if m.ResRoot == "" {
		m.ResRoot = def.ResRoot
	}
	if len(m.SourceRoots) == 0 {
		m.SourceRoots = def.SourceRoots
	}
}

// Validate rejects manifests whose roots escape the scan root.
func (m *Manifest) Validate() error {
	roots := append([]string{m.ResRoot}, m.SourceRoots...)
	for _, root := range roots {
		if filepath.IsAbs(root) {
			return errors.Newf(errors.ManifestError,
				"root %q must be relative to the scan root", root)
		}
		clean := filepath.ToSlash(filepath.Clean(root))
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return errors.Newf(errors.ManifestError,
				"root %q must stay inside the scan root", root)
		}
	}
	return nil
}

// Save writes the manifest to aster.toml at the scan root.
func Save(scanRoot string, m *Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return errors.New(errors.ManifestError, "cannot encode manifest", err)
	}
	path := paths.ManifestPath(scanRoot)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.MutationIOError,
			fmt.Sprintf("cannot write %s", path), err)
	}
	return nil
}
