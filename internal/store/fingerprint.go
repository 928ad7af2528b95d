package store

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
)

// FileState is one file's staleness fingerprint: what the index knew
// about the file when it was built.
type FileState struct {
	// Path is the canonical scan-relative path.
	Path string `json:"path"`

	// Size is the content length in bytes.
	Size int64 `json:"size"`

	// MtimeNs is the modification time in nanoseconds since the epoch.
	MtimeNs int64 `json:"mtimeNs"`

	// Hash is the hex SHA-256 digest of the content.
	Hash string `json:"hash"`
}

// HashContent returns the hex SHA-256 digest of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NewFileState fingerprints content already in memory. Size comes from
// the content itself so it always matches the hash.
func NewFileState(path string, content []byte, info fs.FileInfo) FileState {
	return FileState{
		Path:    path,
		Size:    int64(len(content)),
		MtimeNs: info.ModTime().UnixNano(),
		Hash:    HashContent(content),
	}
}

// FingerprintFile reads and fingerprints the file at absPath, recording
// it under the canonical path.
func FingerprintFile(path, absPath string) (FileState, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return FileState{}, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return FileState{}, err
	}
	return NewFileState(path, content, info), nil
}

// FingerprintFileStream hashes absPath without loading it into memory.
// Used for binary resource files, which are fingerprinted but never
// parsed.
func FingerprintFileStream(path, absPath string) (FileState, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return FileState{}, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return FileState{}, err
	}
	info, err := f.Stat()
	if err != nil {
		return FileState{}, err
	}

	return FileState{
		Path:    path,
		Size:    size,
		MtimeNs: info.ModTime().UnixNano(),
		Hash:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}
