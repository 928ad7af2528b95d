// Package scipexport renders the index in SCIP wire format so generic
// code-intelligence tooling can consume resource cross-references.
package scipexport

import (
	"os"
	"path/filepath"
	"sort"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"aster/internal/errors"
	"aster/internal/resource"
	"aster/internal/version"
)

// Build maps idx to a SCIP index: one document per indexed file in path
// order, one SCIP occurrence per resource occurrence, and symbol
// information attached to each defining document. Identifiers that are
// used but never defined land in ExternalSymbols.
func Build(idx *resource.Index) *scippb.Index {
	out := &scippb.Index{
		Metadata: &scippb.Metadata{
			Version: scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scippb.ToolInfo{
				Name:    "aster",
				Version: version.Version,
			},
			ProjectRoot:          "file://" + filepath.ToSlash(idx.Meta.ScanRoot),
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
		},
	}

	byPath := make(map[string]*scippb.Document)
	var paths []string
	defined := make(map[string]map[string]bool)

	for _, occ := range idx.Occurrences() {
		doc, ok := byPath[occ.Path]
		if !ok {
			doc = &scippb.Document{
				RelativePath: occ.Path,
				Language:     docLanguage(occ.Path),
			}
			byPath[occ.Path] = doc
			paths = append(paths, occ.Path)
			defined[occ.Path] = make(map[string]bool)
		}

		symbol := symbolFor(occ.Identifier)
		var roles int32
		if occ.Kind == resource.KindDefinition {
			roles = int32(scippb.SymbolRole_Definition)
			if !defined[occ.Path][symbol] {
				defined[occ.Path][symbol] = true
				doc.Symbols = append(doc.Symbols, &scippb.SymbolInformation{
					Symbol:      symbol,
					DisplayName: occ.Identifier.String(),
				})
			}
		}

		doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
			Range:       occurrenceRange(occ),
			Symbol:      symbol,
			SymbolRoles: roles,
		})
	}

	sort.Strings(paths)
	for _, path := range paths {
		sort.Slice(byPath[path].Symbols, func(i, j int) bool {
			return byPath[path].Symbols[i].Symbol < byPath[path].Symbols[j].Symbol
		})
		out.Documents = append(out.Documents, byPath[path])
	}

	for _, id := range idx.Identifiers() {
		if idx.Entry(id).State() == resource.StateUndeclared {
			out.ExternalSymbols = append(out.ExternalSymbols, &scippb.SymbolInformation{
				Symbol:      symbolFor(id),
				DisplayName: id.String(),
			})
		}
	}

	return out
}

// WriteFile serializes the SCIP rendering of idx to path.
func WriteFile(path string, idx *resource.Index) error {
	data, err := proto.Marshal(Build(idx))
	if err != nil {
		return errors.New(errors.InternalError, "cannot encode SCIP index", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.InternalError, "cannot write SCIP index", err)
	}
	return nil
}

// symbolFor renders the SCIP symbol for a resource: scheme "aster", no
// package, a namespace descriptor for the type and a term descriptor for
// the name. Normalized names contain no dots or slashes, so both
// descriptors stay simple identifiers.
func symbolFor(id resource.Identifier) string {
	return "aster . . . " + id.Type + "/" + id.Name + "."
}

// occurrenceRange encodes the position as [startLine, startCol, endCol],
// all zero-based. The end column spans the recorded bytes; a span that
// crosses lines still renders on its start line, which keeps the export
// independent of file content.
func occurrenceRange(occ resource.Occurrence) []int32 {
	width := occ.EndByte - occ.StartByte
	if width <= 0 {
		width = len(occ.Identifier.Name)
	}
	line := int32(occ.Line - 1)
	col := int32(occ.Column - 1)
	return []int32{line, col, col + int32(width)}
}

func docLanguage(path string) string {
	switch filepath.Ext(path) {
	case ".xml":
		return "xml"
	case ".java":
		return "java"
	case ".kt", ".kts":
		return "kotlin"
	}
	return ""
}
