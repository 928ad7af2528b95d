package extract

import (
	"fmt"
	"strings"

	"aster/internal/errors"
	"aster/internal/resource"
)

// fileBackedTypes are the res directories whose files declare a resource
// by existing: res/layout/main.xml declares layout/main. The values
// directories are absent on purpose; their declarations come from content.
var fileBackedTypes = map[string]struct{}{
	"anim":         {},
	"animator":     {},
	"color":        {},
	"drawable":     {},
	"font":         {},
	"interpolator": {},
	"layout":       {},
	"menu":         {},
	"mipmap":       {},
	"navigation":   {},
	"raw":          {},
	"transition":   {},
	"xml":          {},
}

// ResFileExtractor handles binary resource files (PNG drawables, raw
// assets, font files). Their only occurrence is the declaration derived
// from their path; content is never read.
type ResFileExtractor struct{}

// NewResFileExtractor creates a file-backed resource extractor.
func NewResFileExtractor() *ResFileExtractor {
	return &ResFileExtractor{}
}

// Extract implements Extractor.
func (e *ResFileExtractor) Extract(path string, content []byte) (*Result, error) {
	res := &Result{}
	id, diag, ok := fileBackedIdentifier(path)
	if !ok {
		return res, nil
	}
	if diag != nil {
		res.Diagnostics = append(res.Diagnostics, *diag)
		return res, nil
	}
	res.Occurrences = append(res.Occurrences, resource.Occurrence{
		Identifier: id,
		Kind:       resource.KindDefinition,
		Path:       path,
		Line:       1,
		Column:     1,
		FileBacked: true,
	})
	return res, nil
}

// FileBackedPath reports whether a canonical path sits in a typed res
// directory and therefore declares a resource by existing. The scanner
// uses this to decide which non-XML files under the res root are inputs.
func FileBackedPath(path string) bool {
	_, _, ok := fileBackedIdentifier(path)
	return ok
}

// fileBackedIdentifier derives a declaration from a canonical path when the
// file sits in a typed res directory. The directory name up to the first
// qualifier dash picks the type (drawable-hdpi -> drawable); the file name
// up to the first dot picks the resource name (icon.9.png -> icon).
func fileBackedIdentifier(path string) (resource.Identifier, *Diagnostic, bool) {
	segs := strings.Split(path, "/")
	if len(segs) < 2 {
		return resource.Identifier{}, nil, false
	}

	dir := segs[len(segs)-2]
	resType := dir
	if i := strings.IndexByte(dir, '-'); i >= 0 {
		resType = dir[:i]
	}
	if _, ok := fileBackedTypes[resType]; !ok {
		return resource.Identifier{}, nil, false
	}

	base := segs[len(segs)-1]
	name := base
	if i := strings.IndexByte(base, '.'); i >= 0 {
		name = base[:i]
	}

	id, err := resource.Normalize(resType, name)
	if err != nil {
		return resource.Identifier{}, &Diagnostic{
			Path:    path,
			Line:    1,
			Code:    errors.NormalizationError,
			Message: fmt.Sprintf("file name %q does not name a valid %s resource: %v", base, resType, err),
		}, true
	}
	return id, nil, true
}
