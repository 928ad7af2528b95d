package output

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VolatileFields are output fields that change on every run even when
// the indexed content is identical. Snapshot comparison strips them
// before diffing. Paths are dotted; a segment applies to every element
// when it crosses a slice.
var VolatileFields = []string{
	"buildId",
	"builtAt",
	"durationSeconds",
	"meta.buildId",
	"meta.builtAt",
}

// NormalizeForSnapshot strips the volatile fields from encoded JSON and
// re-encodes it deterministically, so outputs from two runs over the
// same content compare byte-equal.
func NormalizeForSnapshot(data []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("snapshot is not valid JSON: %w", err)
	}
	for _, path := range VolatileFields {
		v = removeField(v, strings.Split(path, "."))
	}
	return DeterministicEncode(v)
}

// CompareSnapshots reports whether two encoded outputs are equivalent
// once volatile fields are ignored. The string describes the first
// difference when they are not.
func CompareSnapshots(a, b []byte) (bool, string) {
	na, err := NormalizeForSnapshot(a)
	if err != nil {
		return false, fmt.Sprintf("first snapshot: %v", err)
	}
	nb, err := NormalizeForSnapshot(b)
	if err != nil {
		return false, fmt.Sprintf("second snapshot: %v", err)
	}
	if string(na) == string(nb) {
		return true, ""
	}
	return false, firstDifference(na, nb)
}

func removeField(v interface{}, path []string) interface{} {
	if len(path) == 0 {
		return v
	}
	switch node := v.(type) {
	case map[string]interface{}:
		if len(path) == 1 {
			delete(node, path[0])
			return node
		}
		if child, ok := node[path[0]]; ok {
			node[path[0]] = removeField(child, path[1:])
		}
		return node
	case []interface{}:
		for i, item := range node {
			node[i] = removeField(item, path)
		}
		return node
	}
	return v
}

func firstDifference(a, b []byte) string {
	limit := len(a)
	if len(b) < limit {
		limit = len(b)
	}
	for i := 0; i < limit; i++ {
		if a[i] != b[i] {
			return fmt.Sprintf("differ at byte %d: %q vs %q", i, window(a, i), window(b, i))
		}
	}
	return fmt.Sprintf("lengths differ: %d vs %d bytes", len(a), len(b))
}

// window returns up to 20 bytes of context on either side of offset i.
func window(data []byte, i int) string {
	start := i - 20
	if start < 0 {
		start = 0
	}
	end := i + 20
	if end > len(data) {
		end = len(data)
	}
	return string(data[start:end])
}
