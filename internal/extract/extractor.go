// Package extract turns file content into resource occurrences. One
// extractor exists per file kind: resource-definition XML, Java/Kotlin
// source, and binary resource files whose definition is derived from their
// path. Extractors are selected through a registry keyed on a language tag
// so new source languages can be added without touching shared logic.
package extract

import (
	"aster/internal/errors"
	"aster/internal/resource"
)

// Diagnostic is a non-fatal, per-occurrence problem found while extracting.
// The file still contributes its other occurrences.
type Diagnostic struct {
	// Path is the canonical path of the file the problem was found in.
	Path string `json:"path"`

	// Line is the 1-based line of the problem, 0 if unknown.
	Line int `json:"line,omitempty"`

	// Code classifies the problem.
	Code errors.ErrorCode `json:"code"`

	// Message is the human-readable description.
	Message string `json:"message"`
}

// Result is everything one extraction pass produced for one file.
type Result struct {
	// Occurrences are the definitions and usages found.
	Occurrences []resource.Occurrence

	// Diagnostics are per-occurrence problems (dropped tokens).
	Diagnostics []Diagnostic
}

// Extractor scans one file and reports zero or more occurrences with
// precise locations. A returned error means the whole file failed to parse
// and contributed nothing; the scan records it and continues.
type Extractor interface {
	Extract(path string, content []byte) (*Result, error)
}

// Registry maps language tags to extractors.
type Registry struct {
	byTag map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[string]Extractor)}
}

// Register binds a tag to an extractor, replacing any previous binding.
func (r *Registry) Register(tag string, ex Extractor) {
	r.byTag[tag] = ex
}

// Lookup returns the extractor for a tag.
func (r *Registry) Lookup(tag string) (Extractor, bool) {
	ex, ok := r.byTag[tag]
	return ex, ok
}

// Tags returns the registered language tags in no particular order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		tags = append(tags, tag)
	}
	return tags
}

// DefaultRegistry returns a registry with the standard bindings: "xml" for
// resource-definition files, "java" and "kotlin" for source files, and
// "resfile" for binary resource files (drawables, raw assets, fonts).
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TagXML, NewXMLExtractor())
	r.Register(TagJava, NewSourceExtractor(TagJava))
	r.Register(TagKotlin, NewSourceExtractor(TagKotlin))
	r.Register(TagResFile, NewResFileExtractor())
	return r
}

// Language tags understood by DefaultRegistry.
const (
	TagXML     = "xml"
	TagJava    = "java"
	TagKotlin  = "kotlin"
	TagResFile = "resfile"
)
