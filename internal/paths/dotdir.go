package paths

import (
	"os"
	"path/filepath"
)

// Names of the artifacts aster keeps under the scan root.
const (
	// AsterDirName is the per-project directory holding all persisted state
	AsterDirName = ".aster"

	// DatabaseFile is the SQLite index database
	DatabaseFile = "aster.db"

	// MetaFile is the human-inspectable build metadata
	MetaFile = "index-meta.json"

	// LockFile guards the index against concurrent invocations
	LockFile = "aster.lock"

	// ConfigFile is the tool configuration
	ConfigFile = "config.json"

	// KeepRulesFile lists resources exempt from unused classification
	KeepRulesFile = "keep.toml"

	// LogsSubdir holds log files written by long-running commands
	LogsSubdir = "logs"

	// ManifestFile is the optional project manifest at the scan root itself
	ManifestFile = "aster.toml"
)

// AsterDir returns the .aster directory path for a scan root
func AsterDir(scanRoot string) string {
	return filepath.Join(scanRoot, AsterDirName)
}

// EnsureAsterDir creates the .aster directory if it does not exist
func EnsureAsterDir(scanRoot string) (string, error) {
	dir := AsterDir(scanRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// DatabasePath returns the SQLite database path for a scan root
func DatabasePath(scanRoot string) string {
	return filepath.Join(AsterDir(scanRoot), DatabaseFile)
}

// MetaPath returns the index metadata path for a scan root
func MetaPath(scanRoot string) string {
	return filepath.Join(AsterDir(scanRoot), MetaFile)
}

// LockPath returns the lock file path for a scan root
func LockPath(scanRoot string) string {
	return filepath.Join(AsterDir(scanRoot), LockFile)
}

// ConfigPath returns the tool config path for a scan root
func ConfigPath(scanRoot string) string {
	return filepath.Join(AsterDir(scanRoot), ConfigFile)
}

// KeepRulesPath returns the keep-rules path for a scan root
func KeepRulesPath(scanRoot string) string {
	return filepath.Join(AsterDir(scanRoot), KeepRulesFile)
}

// LogsDir returns the log directory for a scan root
func LogsDir(scanRoot string) string {
	return filepath.Join(AsterDir(scanRoot), LogsSubdir)
}

// ManifestPath returns the project manifest path for a scan root
func ManifestPath(scanRoot string) string {
	return filepath.Join(scanRoot, ManifestFile)
}

// HasAsterDir reports whether a scan root has been initialized
func HasAsterDir(scanRoot string) bool {
	info, err := os.Stat(AsterDir(scanRoot))
	return err == nil && info.IsDir()
}
