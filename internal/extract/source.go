package extract

import (
	"regexp"
	"sort"
	"strings"

	"aster/internal/resource"
)

// SourceExtractor finds R.type.name references in Java or Kotlin source.
// Matching is a byte-precise regex pass, optionally preceded by a
// tree-sitter masking step (cgo builds only) that blanks comments and
// string literals so commented-out references do not count as usages.
type SourceExtractor struct {
	lang    string
	pattern *regexp.Regexp
	masker  masker
}

// masker blanks the regions of source content that must not produce
// matches. Implementations keep byte offsets stable.
type masker interface {
	mask(content []byte) []byte
}

// NewSourceExtractor creates an extractor for the given language tag.
// The reference pattern is built from the known resource types, so tokens
// like R.string.app_name match while arbitrary R.foo.bar member accesses
// never reach the normalizer.
func NewSourceExtractor(lang string) *SourceExtractor {
	return &SourceExtractor{
		lang:    lang,
		pattern: compileSourcePattern(),
		masker:  newTreeSitterMasker(lang),
	}
}

func compileSourcePattern() *regexp.Regexp {
	types := resource.KnownTypes()
	sort.Strings(types)
	// Longer alternatives first so string-array wins over string.
	sort.SliceStable(types, func(i, j int) bool { return len(types[i]) > len(types[j]) })
	for i, t := range types {
		types[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`\bR\.(` + strings.Join(types, "|") + `)\.([A-Za-z0-9_]+)`)
}

// Extract implements Extractor.
func (e *SourceExtractor) Extract(path string, content []byte) (*Result, error) {
	res := &Result{}
	lines := newLineIndex(content)

	scanned := content
	if e.masker != nil {
		scanned = e.masker.mask(content)
	}

	for _, m := range e.pattern.FindAllSubmatchIndex(scanned, -1) {
		rawType := string(scanned[m[2]:m[3]])
		rawName := string(scanned[m[4]:m[5]])

		id, err := resource.Normalize(rawType, rawName)
		if err != nil {
			// The pattern only admits known types, so this does not
			// happen in practice; drop the token if it ever does.
			continue
		}

		line, col := lines.position(m[0])
		res.Occurrences = append(res.Occurrences, resource.Occurrence{
			Identifier: id,
			Kind:       resource.KindUsage,
			Path:       path,
			Line:       line,
			Column:     col,
			StartByte:  m[0],
			EndByte:    m[1],
		})
	}

	return res, nil
}

// MaskingAvailable reports whether this build can mask comments and
// string literals before matching.
func (e *SourceExtractor) MaskingAvailable() bool {
	return e.masker != nil
}
