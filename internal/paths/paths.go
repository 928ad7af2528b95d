package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// CanonicalizePath converts an absolute path to a scan-root-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to the scan root
// - Converts backslashes to forward slashes
// - Returns scan-relative path with forward slashes
//
// Canonical paths are what the index stores and what every report prints, so
// the same project indexed on different machines yields identical paths.
func CanonicalizePath(absolutePath string, scanRoot string) (string, error) {
	// Resolve symlinks
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	// Make path relative to the scan root
	rootResolved, err := filepath.EvalSymlinks(scanRoot)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = scanRoot
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	// Convert to forward slashes (platform independent)
	canonicalPath := filepath.ToSlash(relativePath)

	return canonicalPath, nil
}

// IsWithinRoot checks if a path is within the scan root
func IsWithinRoot(path string, scanRoot string) bool {
	canonical, err := CanonicalizePath(path, scanRoot)
	if err != nil {
		return false
	}

	// Path is outside the root if it starts with ..
	return !strings.HasPrefix(canonical, "..")
}

// NormalizePath normalizes a path by converting backslashes to forward slashes
// This is useful for paths that are already relative but need normalization
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinRootPath joins a scan root with a canonical path
func JoinRootPath(scanRoot string, canonicalPath string) string {
	// Ensure we use forward slashes in the canonical path
	normalizedPath := strings.ReplaceAll(canonicalPath, "\\", "/")
	// Convert to OS-specific path separator for joining
	parts := strings.Split(normalizedPath, "/")
	return filepath.Join(append([]string{scanRoot}, parts...)...)
}
