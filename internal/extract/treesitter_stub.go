//go:build !cgo

package extract

// newTreeSitterMasker returns nil when CGO is disabled. Source extraction
// falls back to the plain regex pass over unmasked content.
func newTreeSitterMasker(lang string) masker {
	return nil
}

// MaskingSupported reports whether this build carries the tree-sitter
// grammars.
func MaskingSupported() bool {
	return false
}
