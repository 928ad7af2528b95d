// Package archive moves indexes between machines as snapshot files: one
// zstd-compressed JSON document carrying the occurrences, the per-file
// fingerprints, and the build metadata. Equal indexes export to equal
// bytes, so snapshots can be diffed and cached by content.
package archive

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/sha3"

	"aster/internal/errors"
	"aster/internal/resource"
	"aster/internal/store"
)

// FormatVersion identifies the snapshot layout. Import refuses other
// versions; there is no migration, the sender re-exports instead.
const FormatVersion = 1

// envelope is the outer document: a version gate, an integrity digest
// over the payload bytes, and the payload itself.
type envelope struct {
	FormatVersion int             `json:"formatVersion"`
	Digest        string          `json:"digest"`
	Payload       json.RawMessage `json:"payload"`
}

// payload is the snapshot content. Occurrences are stored in the index's
// canonical order and files in path order, which is what makes exports
// of equal indexes byte-equal.
type payload struct {
	Meta        resource.Meta         `json:"meta"`
	Occurrences []resource.Occurrence `json:"occurrences"`
	Files       []store.FileState     `json:"files"`
}

// Snapshot is an imported index with its file fingerprints, ready to be
// saved into a store.
type Snapshot struct {
	Index  *resource.Index
	States []store.FileState
}

// Export writes a snapshot of idx and states to w.
func Export(idx *resource.Index, states []store.FileState, w io.Writer) error {
	ordered := make([]store.FileState, len(states))
	copy(ordered, states)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Path < ordered[j].Path })

	raw, err := json.Marshal(payload{
		Meta:        idx.Meta,
		Occurrences: idx.Occurrences(),
		Files:       ordered,
	})
	if err != nil {
		return errors.New(errors.InternalError, "cannot encode snapshot", err)
	}

	digest := sha3.Sum256(raw)
	data, err := json.Marshal(envelope{
		FormatVersion: FormatVersion,
		Digest:        hex.EncodeToString(digest[:]),
		Payload:       raw,
	})
	if err != nil {
		return errors.New(errors.InternalError, "cannot encode snapshot", err)
	}

	// Single-goroutine encoding keeps the compressed bytes independent
	// of scheduling.
	enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return errors.New(errors.InternalError, "cannot start snapshot compression", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return errors.New(errors.InternalError, "cannot write snapshot", err)
	}
	if err := enc.Close(); err != nil {
		return errors.New(errors.InternalError, "cannot write snapshot", err)
	}
	return nil
}

// Import reads a snapshot from r, verifying the format version and the
// integrity digest before rebuilding the index.
func Import(r io.Reader) (*Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.New(errors.SnapshotCorrupt, "snapshot is not a zstd stream", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.New(errors.SnapshotCorrupt, "snapshot is truncated or not a zstd stream", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.New(errors.SnapshotCorrupt, "snapshot envelope does not decode", err)
	}
	if env.FormatVersion != FormatVersion {
		return nil, errors.Newf(errors.SnapshotCorrupt,
			"snapshot format version %d is not supported (want %d); re-export it with this aster version",
			env.FormatVersion, FormatVersion)
	}

	digest := sha3.Sum256(env.Payload)
	if hex.EncodeToString(digest[:]) != env.Digest {
		return nil, errors.Newf(errors.SnapshotCorrupt,
			"snapshot integrity digest mismatch; the file was corrupted in transit")
	}

	var p payload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, errors.New(errors.SnapshotCorrupt, "snapshot payload does not decode", err)
	}

	idx := resource.NewIndex(p.Meta)
	for _, occ := range p.Occurrences {
		idx.Add(occ)
	}
	return &Snapshot{Index: idx, States: p.Files}, nil
}

// ExportFile exports to the file at path, replacing it if present.
func ExportFile(path string, idx *resource.Index, states []store.FileState) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.InternalError, "cannot create snapshot file", err)
	}
	if err := Export(idx, states, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.New(errors.InternalError, "cannot write snapshot file", err)
	}
	return nil
}

// ImportFile imports the snapshot at path.
func ImportFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.InternalError, "cannot open snapshot file", err)
	}
	defer f.Close()
	return Import(f)
}
