// Package query answers read-only questions over a loaded index: counts,
// unused listings, undeclared anomalies, and single-identifier resolution.
// Results are deterministic: identifiers ordered by type then name, sites
// in extraction order.
package query

import (
	"sort"
	"strings"

	"aster/internal/exclude"
	"aster/internal/resource"
)

// Engine runs queries over one loaded index. It never mutates the index.
type Engine struct {
	idx  *resource.Index
	keep *exclude.RuleSet
}

// NewEngine creates a query engine over idx, with keep rules exempting
// matching resources from unused classification. keep may be nil.
func NewEngine(idx *resource.Index, keep *exclude.RuleSet) *Engine {
	if keep == nil {
		keep = &exclude.RuleSet{}
	}
	return &Engine{idx: idx, keep: keep}
}

// Counts summarizes an index by distinct identifiers.
type Counts struct {
	// Defined counts identifiers with at least one definition.
	Defined int `json:"defined"`

	// Used counts identifiers with at least one usage.
	Used int `json:"used"`

	// Unused counts defined-but-never-used identifiers, keep rules
	// applied. Never exceeds Defined.
	Unused int `json:"unused"`

	// Undeclared counts used-but-never-defined identifiers.
	Undeclared int `json:"undeclared"`
}

// Counts computes the summary. Unused agrees with ListUnused: an
// identifier held back by a keep rule is counted in neither.
func (e *Engine) Counts() Counts {
	var c Counts
	for _, entry := range e.idx.Entries {
		if len(entry.Definitions) > 0 {
			c.Defined++
		}
		if len(entry.Usages) > 0 {
			c.Used++
		}
		switch entry.State() {
		case resource.StateUnused:
			if !e.keep.Keeps(entry.Identifier) {
				c.Unused++
			}
		case resource.StateUndeclared:
			c.Undeclared++
		}
	}
	return c
}

// Site is one source location, for navigation output.
type Site struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Match pairs an identifier with the sites a listing wants to show.
type Match struct {
	Identifier  resource.Identifier `json:"identifier"`
	Definitions []Site              `json:"definitions,omitempty"`
	Usages      []Site              `json:"usages,omitempty"`
}

// ListUnused returns the identifiers that are defined but never used,
// name matching the optional prefix, minus keep-rule matches. Ordered by
// type then name.
func (e *Engine) ListUnused(prefix string) []resource.Identifier {
	var ids []resource.Identifier
	for id, entry := range e.idx.Entries {
		if !e.unusedTarget(entry, prefix) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// ListUnusedWithSites is ListUnused plus each identifier's definition
// sites.
func (e *Engine) ListUnusedWithSites(prefix string) []Match {
	var matches []Match
	for _, entry := range e.idx.Entries {
		if !e.unusedTarget(entry, prefix) {
			continue
		}
		matches = append(matches, Match{
			Identifier:  entry.Identifier,
			Definitions: sitesOf(entry.Definitions),
		})
	}
	sortMatches(matches)
	return matches
}

// ListUndeclared returns the identifiers that are used but never
// defined, with their usage sites. These are anomalies: references that
// would not resolve at build time.
func (e *Engine) ListUndeclared() []Match {
	var matches []Match
	for _, entry := range e.idx.Entries {
		if entry.State() != resource.StateUndeclared {
			continue
		}
		matches = append(matches, Match{
			Identifier: entry.Identifier,
			Usages:     sitesOf(entry.Usages),
		})
	}
	sortMatches(matches)
	return matches
}

// Resolve normalizes the given type and name and returns the matching
// entry, or nil when the index never saw the identifier.
func (e *Engine) Resolve(resType, name string) (*resource.Entry, error) {
	id, err := resource.Normalize(resType, name)
	if err != nil {
		return nil, err
	}
	return e.idx.Entry(id), nil
}

// unusedTarget reports whether an entry belongs in an unused listing
// under the given prefix.
func (e *Engine) unusedTarget(entry *resource.Entry, prefix string) bool {
	if entry.State() != resource.StateUnused {
		return false
	}
	if prefix != "" && !strings.HasPrefix(entry.Identifier.Name, prefix) {
		return false
	}
	return !e.keep.Keeps(entry.Identifier)
}

func sitesOf(occs []resource.Occurrence) []Site {
	sites := make([]Site, 0, len(occs))
	for _, occ := range occs {
		sites = append(sites, Site{Path: occ.Path, Line: occ.Line, Column: occ.Column})
	}
	return sites
}

func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Identifier.Less(matches[j].Identifier)
	})
}
