// Package resource defines the core data model: resource identifiers,
// occurrences, per-identifier entries, and the in-memory index that the
// scanner builds and the query engine reads.
package resource

import (
	"time"
)

// Identifier is the primary key for a resource: its type plus its canonical
// name. Identifiers are comparable values and are used directly as map keys.
type Identifier struct {
	// Type is the resource type (string, layout, drawable, ...).
	Type string `json:"type"`

	// Name is the canonical resource name.
	Name string `json:"name"`
}

// String renders the identifier in its type/name form, e.g. "string/app_name".
func (id Identifier) String() string {
	return id.Type + "/" + id.Name
}

// Less orders identifiers by type then name, the order every listing uses.
func (id Identifier) Less(other Identifier) bool {
	if id.Type != other.Type {
		return id.Type < other.Type
	}
	return id.Name < other.Name
}

// OccurrenceKind distinguishes declaration sites from reference sites.
type OccurrenceKind string

const (
	// KindDefinition is a declaration in a resource-definition file.
	KindDefinition OccurrenceKind = "definition"

	// KindUsage is a reference from source code or another resource file.
	KindUsage OccurrenceKind = "usage"
)

// Occurrence is one observed mention of an identifier in one file.
// Immutable once extracted.
type Occurrence struct {
	// Identifier is the resource this occurrence mentions.
	Identifier Identifier `json:"identifier"`

	// Kind says whether this site defines or uses the resource.
	Kind OccurrenceKind `json:"kind"`

	// Path is the canonical scan-relative file path.
	Path string `json:"path"`

	// Line is the 1-based line of the occurrence.
	Line int `json:"line"`

	// Column is the 1-based column of the occurrence.
	Column int `json:"column"`

	// StartByte and EndByte bound the minimal removable span: the whole
	// element for an XML definition, the whole attribute for an XML usage,
	// the bare R.type.name token for a source usage.
	StartByte int `json:"startByte"`
	EndByte   int `json:"endByte"`

	// FileBacked marks definitions derived from a file's location rather
	// than its content (res/layout/main.xml defining layout/main). These
	// are indexed and queryable but never auto-removed.
	FileBacked bool `json:"fileBacked,omitempty"`
}

// EntryState classifies a resource entry by its definition/usage balance.
type EntryState string

const (
	// StateUsed means the resource has at least one definition and one usage.
	StateUsed EntryState = "used"

	// StateUnused means the resource is defined but never used.
	StateUnused EntryState = "unused"

	// StateUndeclared means the resource is used but never defined.
	// This is an anomaly distinct from unused.
	StateUndeclared EntryState = "undeclared"
)

// Entry aggregates every occurrence of one identifier.
type Entry struct {
	// Identifier is the resource this entry describes.
	Identifier Identifier `json:"identifier"`

	// Definitions are declaration sites, in extraction order.
	Definitions []Occurrence `json:"definitions,omitempty"`

	// Usages are reference sites, in extraction order.
	Usages []Occurrence `json:"usages,omitempty"`
}

// State returns the entry's classification.
func (e *Entry) State() EntryState {
	switch {
	case len(e.Definitions) == 0:
		return StateUndeclared
	case len(e.Usages) == 0:
		return StateUnused
	default:
		return StateUsed
	}
}

// Meta records how and when an index was built.
type Meta struct {
	// ScanRoot is the absolute path the scan was rooted at.
	ScanRoot string `json:"scanRoot"`

	// LanguageTag is the source language usages were extracted with.
	LanguageTag string `json:"languageTag"`

	// BuiltAt is when the build completed.
	BuiltAt time.Time `json:"builtAt"`

	// BuildID uniquely identifies this build.
	BuildID string `json:"buildId"`

	// FileCount is how many files contributed occurrences or fingerprints.
	FileCount int `json:"fileCount"`

	// ToolVersion is the aster version that produced the index.
	ToolVersion string `json:"toolVersion"`
}
