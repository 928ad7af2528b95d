package store

import (
	"fmt"
	"os"
	"sort"
)

// ProbeFile is one candidate file observed on disk during a freshness
// check: the canonical path plus the stat data needed for the cheap
// comparison. Content is only read when size matches but mtime moved.
type ProbeFile struct {
	Path    string
	AbsPath string
	Size    int64
	MtimeNs int64
}

// Freshness is the result of comparing the stored fingerprints against
// the current input set.
type Freshness struct {
	// Fresh is true when the stored index still describes the inputs.
	Fresh bool `json:"fresh"`

	// Reason summarizes the first detected difference.
	Reason string `json:"reason,omitempty"`

	// Added, Removed, and Changed list the differing canonical paths.
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Changed []string `json:"changed,omitempty"`
}

// CheckFreshness compares stored fingerprints against the files on disk.
// Size is compared first; an equal size with a moved mtime falls back to
// the content hash, so a touch without a change stays fresh.
func CheckFreshness(stored map[string]FileState, current []ProbeFile) *Freshness {
	res := &Freshness{Fresh: true}

	seen := make(map[string]bool, len(current))
	for _, probe := range current {
		seen[probe.Path] = true

		prev, ok := stored[probe.Path]
		if !ok {
			res.Added = append(res.Added, probe.Path)
			continue
		}
		if prev.Size != probe.Size {
			res.Changed = append(res.Changed, probe.Path)
			continue
		}
		if prev.MtimeNs == probe.MtimeNs {
			continue
		}
		// Same size, different mtime: only the content settles it.
		content, err := os.ReadFile(probe.AbsPath)
		if err != nil || HashContent(content) != prev.Hash {
			res.Changed = append(res.Changed, probe.Path)
		}
	}

	for path := range stored {
		if !seen[path] {
			res.Removed = append(res.Removed, path)
		}
	}

	sort.Strings(res.Added)
	sort.Strings(res.Removed)
	sort.Strings(res.Changed)

	if len(res.Added)+len(res.Removed)+len(res.Changed) > 0 {
		res.Fresh = false
		res.Reason = staleReason(res)
	}
	return res
}

func staleReason(f *Freshness) string {
	switch {
	case len(f.Changed) > 0:
		return countedReason("modified", f.Changed)
	case len(f.Added) > 0:
		return countedReason("added", f.Added)
	default:
		return countedReason("removed", f.Removed)
	}
}

func countedReason(verb string, paths []string) string {
	if len(paths) == 1 {
		return fmt.Sprintf("%s: %s", verb, paths[0])
	}
	return fmt.Sprintf("%s: %s (and %d more)", verb, paths[0], len(paths)-1)
}
