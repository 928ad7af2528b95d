package resource

import (
	"strings"

	"aster/internal/errors"
)

// knownTypes is the set of Android resource types aster recognizes.
// Tokens outside this set fail normalization.
var knownTypes = map[string]struct{}{
	"anim":          {},
	"animator":      {},
	"array":         {},
	"attr":          {},
	"bool":          {},
	"color":         {},
	"dimen":         {},
	"drawable":      {},
	"font":          {},
	"fraction":      {},
	"id":            {},
	"integer":       {},
	"integer-array": {},
	"interpolator":  {},
	"layout":        {},
	"menu":          {},
	"mipmap":        {},
	"navigation":    {},
	"plurals":       {},
	"raw":           {},
	"string":        {},
	"string-array":  {},
	"style":         {},
	"styleable":     {},
	"transition":    {},
	"xml":           {},
}

// typeAliases folds XML element spellings onto the resource table type
// they produce: <string-array> and <integer-array> entries both land in
// R.array, so all three spellings resolve to the same identifiers.
var typeAliases = map[string]string{
	"integer-array": "array",
	"string-array":  "array",
}

// IsKnownType reports whether t is a recognized resource type.
func IsKnownType(t string) bool {
	_, ok := knownTypes[t]
	return ok
}

// KnownTypes returns the recognized resource types in no particular order.
func KnownTypes() []string {
	types := make([]string, 0, len(knownTypes))
	for t := range knownTypes {
		types = append(types, t)
	}
	return types
}

// Normalize maps a raw (type, name) token pair to a canonical Identifier.
// The same rule applies to definition-side and usage-side tokens so both
// resolve to the same key:
//   - the type must be a known resource type; array spellings fold to
//     "array"
//   - the name is trimmed, must be non-empty, and may contain only
//     letters, digits, underscores, and dots
//   - dots fold to underscores, because a resource declared as "foo.bar"
//     is referenced from code as R.string.foo_bar
//
// Case is preserved; resource names are case-sensitive.
func Normalize(rawType, rawName string) (Identifier, error) {
	resType := strings.TrimSpace(rawType)
	if !IsKnownType(resType) {
		return Identifier{}, errors.Newf(errors.NormalizationError,
			"unknown resource type %q for name %q", rawType, rawName)
	}
	if alias, ok := typeAliases[resType]; ok {
		resType = alias
	}

	name := strings.TrimSpace(rawName)
	if name == "" {
		return Identifier{}, errors.Newf(errors.NormalizationError,
			"empty resource name for type %q", resType)
	}
	for _, r := range name {
		if !isNameRune(r) {
			return Identifier{}, errors.Newf(errors.NormalizationError,
				"invalid character %q in resource name %q", r, rawName)
		}
	}

	name = strings.ReplaceAll(name, ".", "_")

	return Identifier{Type: resType, Name: name}, nil
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.':
		return true
	}
	return false
}
