package extract

import (
	"sort"
)

// lineIndex precomputes line-start offsets so byte offsets from the XML
// decoder and the regex matchers can be mapped to 1-based line/column pairs
// without rescanning the file per occurrence.
type lineIndex struct {
	starts []int
	size   int
}

func newLineIndex(content []byte) *lineIndex {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts, size: len(content)}
}

// position maps a byte offset to a 1-based (line, column) pair. Columns
// count bytes, matching how editors address Android resource files in
// practice.
func (li *lineIndex) position(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > li.size {
		offset = li.size
	}
	line = sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > offset
	})
	col = offset - li.starts[line-1] + 1
	return line, col
}

// lineCount returns the number of lines in the content.
func (li *lineIndex) lineCount() int {
	return len(li.starts)
}
