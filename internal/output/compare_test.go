package output

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCompareSnapshotsIgnoresVolatileFields(t *testing.T) {
	a := []byte(`{"buildId":"7f3d","builtAt":"2026-08-01T10:00:00Z","durationSeconds":1.5,"resources":10}`)
	b := []byte(`{"buildId":"9c2e","builtAt":"2026-08-02T11:30:00Z","durationSeconds":0.8,"resources":10}`)
	equal, diff := CompareSnapshots(a, b)
	if !equal {
		t.Errorf("snapshots should match after stripping volatile fields: %s", diff)
	}
}

func TestCompareSnapshotsReportsDifference(t *testing.T) {
	a := []byte(`{"buildId":"7f3d","resources":10}`)
	b := []byte(`{"buildId":"7f3d","resources":11}`)
	equal, diff := CompareSnapshots(a, b)
	if equal {
		t.Fatal("snapshots with different resource counts should not match")
	}
	if !strings.Contains(diff, "differ") {
		t.Errorf("diff should locate the difference, got %q", diff)
	}
}

func TestCompareSnapshotsRejectsInvalidJSON(t *testing.T) {
	equal, diff := CompareSnapshots([]byte("{"), []byte("{}"))
	if equal {
		t.Fatal("invalid JSON should not compare equal")
	}
	if !strings.Contains(diff, "first snapshot") {
		t.Errorf("diff should name the bad input, got %q", diff)
	}
}

func TestNormalizeForSnapshotStripsNestedMeta(t *testing.T) {
	in := []byte(`{"meta":{"buildId":"7f3d","builtAt":"2026-08-01T10:00:00Z","scanRoot":"res"},"counts":{"defined":1}}`)
	got, err := NormalizeForSnapshot(in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := `{"counts":{"defined":1},"meta":{"scanRoot":"res"}}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestRemoveFieldCrossesSlices(t *testing.T) {
	var v interface{}
	raw := `{"diagnostics":[{"line":3,"message":"a"},{"line":9,"message":"b"}]}`
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v = removeField(v, []string{"diagnostics", "line"})
	got, err := DeterministicEncode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"diagnostics":[{"message":"a"},{"message":"b"}]}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
