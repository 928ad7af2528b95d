package extract

import "testing"

func TestLineIndexPosition(t *testing.T) {
	li := newLineIndex([]byte("ab\ncd\n\nx"))

	tests := []struct {
		offset   int
		line     int
		col      int
		scenario string
	}{
		{0, 1, 1, "first byte"},
		{1, 1, 2, "mid first line"},
		{2, 1, 3, "newline belongs to its line"},
		{3, 2, 1, "start of second line"},
		{6, 3, 1, "empty line"},
		{7, 4, 1, "last line"},
		{-5, 1, 1, "negative clamps to start"},
		{99, 4, 2, "past end clamps to size"},
	}
	for _, tt := range tests {
		line, col := li.position(tt.offset)
		if line != tt.line || col != tt.col {
			t.Errorf("%s: position(%d) = %d:%d, want %d:%d",
				tt.scenario, tt.offset, line, col, tt.line, tt.col)
		}
	}

	if got := li.lineCount(); got != 4 {
		t.Errorf("lineCount = %d, want 4", got)
	}
}

func TestLineIndexEmptyContent(t *testing.T) {
	li := newLineIndex(nil)
	line, col := li.position(0)
	if line != 1 || col != 1 {
		t.Errorf("position(0) on empty content = %d:%d, want 1:1", line, col)
	}
}
