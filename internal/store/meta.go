package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"aster/internal/errors"
	"aster/internal/paths"
	"aster/internal/resource"
)

// MetaVersion is the current version of the sidecar metadata format.
const MetaVersion = 1

// IndexMeta is the human-inspectable build metadata written next to the
// database as .aster/index-meta.json. The database's index_meta table is
// authoritative; this sidecar exists so people and scripts can check the
// last build without opening SQLite.
type IndexMeta struct {
	Version     int       `json:"version"`
	BuiltAt     time.Time `json:"builtAt"`
	BuildID     string    `json:"buildId"`
	ScanRoot    string    `json:"scanRoot"`
	LanguageTag string    `json:"languageTag"`
	FileCount   int       `json:"fileCount"`
	Duration    string    `json:"duration"`
	ToolVersion string    `json:"toolVersion"`
}

// SidecarFromMeta builds the sidecar record for a finished build.
func SidecarFromMeta(meta resource.Meta, duration time.Duration) *IndexMeta {
	return &IndexMeta{
		Version:     MetaVersion,
		BuiltAt:     meta.BuiltAt,
		BuildID:     meta.BuildID,
		ScanRoot:    meta.ScanRoot,
		LanguageTag: meta.LanguageTag,
		FileCount:   meta.FileCount,
		Duration:    duration.Round(time.Millisecond).String(),
		ToolVersion: meta.ToolVersion,
	}
}

// LoadSidecar loads the sidecar metadata under the scan root. Returns
// nil without error if no sidecar exists or its version is unknown.
func LoadSidecar(scanRoot string) (*IndexMeta, error) {
	path := paths.MetaPath(scanRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.IndexCorrupt,
			fmt.Sprintf("cannot read %s", path), err)
	}

	var meta IndexMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.New(errors.IndexCorrupt,
			fmt.Sprintf("cannot parse %s", path), err)
	}

	// Version mismatch - treat as no metadata
	if meta.Version != MetaVersion {
		return nil, nil
	}

	return &meta, nil
}

// Save writes the sidecar metadata under the scan root.
func (m *IndexMeta) Save(scanRoot string) error {
	if _, err := paths.EnsureAsterDir(scanRoot); err != nil {
		return errors.New(errors.MutationIOError, "cannot create .aster directory", err)
	}

	m.Version = MetaVersion

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.New(errors.InternalError, "cannot encode index metadata", err)
	}

	path := paths.MetaPath(scanRoot)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.MutationIOError,
			fmt.Sprintf("cannot write %s", path), err)
	}

	return nil
}

// Age returns how long ago the index was built, in human form.
func (m *IndexMeta) Age(now time.Time) string {
	return humanDuration(now.Sub(m.BuiltAt))
}

// humanDuration formats a duration in human-readable form.
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
