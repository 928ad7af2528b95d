package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ExtractionError indicates a file could not be parsed during a scan
	ExtractionError ErrorCode = "EXTRACTION_ERROR"
	// NormalizationError indicates a token could not be classified as a resource
	NormalizationError ErrorCode = "NORMALIZATION_ERROR"
	// IndexMissing indicates no persisted index exists yet
	IndexMissing ErrorCode = "INDEX_MISSING"
	// IndexVersionError indicates the persisted index was written by an incompatible schema version
	IndexVersionError ErrorCode = "INDEX_VERSION_ERROR"
	// IndexCorrupt indicates the persisted index could not be decoded
	IndexCorrupt ErrorCode = "INDEX_CORRUPT"
	// StaleIndex indicates on-disk files changed since the index was built
	StaleIndex ErrorCode = "STALE_INDEX"
	// StaleFile indicates a single file changed between index build and edit time
	StaleFile ErrorCode = "STALE_FILE"
	// MutationIOError indicates a file became unreadable or unwritable during mutation
	MutationIOError ErrorCode = "MUTATION_IO_ERROR"
	// FileBackedResource indicates a resource declared by a file's existence, which mutation never edits
	FileBackedResource ErrorCode = "FILE_BACKED_RESOURCE"
	// LockHeld indicates another process holds the index lock
	LockHeld ErrorCode = "LOCK_HELD"
	// ManifestError indicates aster.toml is invalid
	ManifestError ErrorCode = "MANIFEST_ERROR"
	// SnapshotCorrupt indicates a snapshot file failed to decode
	SnapshotCorrupt ErrorCode = "SNAPSHOT_CORRUPT"
	// ScanRootInvalid indicates the scan root is missing or unreadable
	ScanRootInvalid ErrorCode = "SCAN_ROOT_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// AsterError represents an aster error with code, message, and suggestions
type AsterError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new AsterError
func New(code ErrorCode, message string, cause error) *AsterError {
	return &AsterError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a new AsterError with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *AsterError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *AsterError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AsterError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AsterError) WithDetails(details interface{}) *AsterError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError for plain errors
func CodeOf(err error) ErrorCode {
	var ae *AsterError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given error code
func IsCode(err error, code ErrorCode) bool {
	var ae *AsterError
	if stderrors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IndexMissing: {
		{
			Type:        RunCommand,
			Command:     "aster index",
			Safe:        true,
			Description: "Build the resource index for this project",
		},
	},
	IndexVersionError: {
		{
			Type:        RunCommand,
			Command:     "aster index --force",
			Safe:        true,
			Description: "Rebuild the index with the current schema",
		},
	},
	StaleIndex: {
		{
			Type:        RunCommand,
			Command:     "aster index",
			Safe:        true,
			Description: "Re-index to pick up file changes",
		},
	},
	LockHeld: {
		{
			Type:        RunCommand,
			Command:     "aster status",
			Safe:        true,
			Description: "Check which process owns the index lock",
		},
	},
	SnapshotCorrupt: {
		{
			Type:        RunCommand,
			Command:     "aster export snapshot",
			Safe:        true,
			Description: "Re-export the snapshot from a healthy index",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
