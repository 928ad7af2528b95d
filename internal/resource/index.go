package resource

import (
	"sort"
)

// Index maps every identifier seen during a scan to its entry. It is built
// once per scan, persisted, and treated as read-only by queries. The zero
// value is not usable; call NewIndex.
type Index struct {
	// Entries holds one entry per distinct identifier.
	Entries map[Identifier]*Entry `json:"entries"`

	// Meta records how the index was built.
	Meta Meta `json:"meta"`
}

// NewIndex creates an empty index with the given metadata.
func NewIndex(meta Meta) *Index {
	return &Index{
		Entries: make(map[Identifier]*Entry),
		Meta:    meta,
	}
}

// Add appends one occurrence to its identifier's entry, creating the entry
// on first sight. Callers feed occurrences in sorted-file, document order;
// Add preserves that order, which is what makes rebuilds reproducible.
func (ix *Index) Add(occ Occurrence) {
	entry, ok := ix.Entries[occ.Identifier]
	if !ok {
		entry = &Entry{Identifier: occ.Identifier}
		ix.Entries[occ.Identifier] = entry
	}
	switch occ.Kind {
	case KindDefinition:
		entry.Definitions = append(entry.Definitions, occ)
	case KindUsage:
		entry.Usages = append(entry.Usages, occ)
	}
}

// Entry returns the entry for an identifier, or nil if it was never seen.
func (ix *Index) Entry(id Identifier) *Entry {
	return ix.Entries[id]
}

// Len returns the number of distinct identifiers.
func (ix *Index) Len() int {
	return len(ix.Entries)
}

// Identifiers returns every identifier ordered by type then name.
func (ix *Index) Identifiers() []Identifier {
	ids := make([]Identifier, 0, len(ix.Entries))
	for id := range ix.Entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// Occurrences returns every occurrence ordered by path, then byte offset.
// This is the canonical persistence order: feeding the result back through
// Add on an empty index reproduces the original entry ordering.
func (ix *Index) Occurrences() []Occurrence {
	var occs []Occurrence
	for _, entry := range ix.Entries {
		occs = append(occs, entry.Definitions...)
		occs = append(occs, entry.Usages...)
	}
	sort.Slice(occs, func(i, j int) bool {
		if occs[i].Path != occs[j].Path {
			return occs[i].Path < occs[j].Path
		}
		if occs[i].StartByte != occs[j].StartByte {
			return occs[i].StartByte < occs[j].StartByte
		}
		// File-backed definitions share offset zero with nothing else;
		// break remaining ties stably by identifier.
		return occs[i].Identifier.Less(occs[j].Identifier)
	})
	return occs
}

// Remove drops an identifier's entry entirely. Used by the mutator after
// deleting every occurrence of a resource.
func (ix *Index) Remove(id Identifier) {
	delete(ix.Entries, id)
}

// RemoveOccurrencesIn drops all occurrences recorded against the given
// canonical path, pruning entries that become empty. Returns the
// identifiers that were touched.
func (ix *Index) RemoveOccurrencesIn(path string) []Identifier {
	var touched []Identifier
	for id, entry := range ix.Entries {
		defs := filterOccurrences(entry.Definitions, path)
		uses := filterOccurrences(entry.Usages, path)
		if len(defs) == len(entry.Definitions) && len(uses) == len(entry.Usages) {
			continue
		}
		touched = append(touched, id)
		entry.Definitions = defs
		entry.Usages = uses
		if len(defs) == 0 && len(uses) == 0 {
			delete(ix.Entries, id)
		}
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i].Less(touched[j]) })
	return touched
}

func filterOccurrences(occs []Occurrence, path string) []Occurrence {
	kept := occs[:0:0]
	for _, occ := range occs {
		if occ.Path != path {
			kept = append(kept, occ)
		}
	}
	return kept
}
