//go:build cgo

package extract

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/kotlin"
)

// treeSitterMasker blanks comments and string literals in source content
// before the reference pattern runs, so a commented-out R.string.foo does
// not count as a live usage. Byte offsets and line breaks are preserved.
type treeSitterMasker struct {
	lang *sitter.Language
	pool sync.Pool
}

// newTreeSitterMasker returns a masker for the language tag, or nil when
// the language has no grammar. Parsers are pooled because extraction runs
// one file per worker and sitter.Parser is not safe for concurrent use.
func newTreeSitterMasker(lang string) masker {
	var tsLang *sitter.Language
	switch lang {
	case TagJava:
		tsLang = java.GetLanguage()
	case TagKotlin:
		tsLang = kotlin.GetLanguage()
	default:
		return nil
	}

	m := &treeSitterMasker{lang: tsLang}
	m.pool.New = func() interface{} {
		p := sitter.NewParser()
		p.SetLanguage(tsLang)
		return p
	}
	return m
}

func (m *treeSitterMasker) mask(content []byte) []byte {
	parser := m.pool.Get().(*sitter.Parser)
	defer m.pool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		// Unparsable source still gets the plain regex pass.
		return content
	}
	defer tree.Close()

	masked := make([]byte, len(content))
	copy(masked, content)
	maskNode(tree.RootNode(), masked)
	return masked
}

// maskedNodeTypes covers comment and string nodes across the Java and
// Kotlin grammars.
var maskedNodeTypes = map[string]struct{}{
	"comment":                   {},
	"line_comment":              {},
	"block_comment":             {},
	"multiline_comment":         {},
	"string_literal":            {},
	"line_string_literal":       {},
	"multi_line_string_literal": {},
	"character_literal":         {},
	"text_block":                {},
}

func maskNode(n *sitter.Node, content []byte) {
	if n == nil {
		return
	}
	if _, ok := maskedNodeTypes[n.Type()]; ok {
		blankRegion(content, int(n.StartByte()), int(n.EndByte()))
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		maskNode(n.Child(i), content)
	}
}

// blankRegion overwrites a byte range with spaces, keeping newlines so
// line numbers stay stable.
func blankRegion(content []byte, start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(content) {
		end = len(content)
	}
	for i := start; i < end; i++ {
		if content[i] != '\n' {
			content[i] = ' '
		}
	}
}

// MaskingSupported reports whether this build carries the tree-sitter
// grammars.
func MaskingSupported() bool {
	return true
}
