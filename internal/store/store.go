package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"aster/internal/errors"
	"aster/internal/resource"
)

// Meta keys in the index_meta table.
const (
	metaScanRoot    = "scan_root"
	metaLanguage    = "language"
	metaBuiltAt     = "built_at"
	metaBuildID     = "build_id"
	metaFileCount   = "file_count"
	metaToolVersion = "tool_version"
)

// SaveIndex replaces the persisted index with idx and the given file
// fingerprints in a single transaction. A crash mid-save leaves the
// previous committed state intact.
func (db *DB) SaveIndex(idx *resource.Index, states []FileState) error {
	occs := idx.Occurrences()

	err := db.WithTx(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM occurrences",
			"DELETE FROM files",
			"DELETE FROM index_meta",
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}

		if err := insertMeta(tx, idx.Meta); err != nil {
			return err
		}

		fileStmt, err := tx.Prepare(
			"INSERT INTO files (path, size, mtime_ns, hash) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer fileStmt.Close()
		for _, fs := range states {
			if _, err := fileStmt.Exec(fs.Path, fs.Size, fs.MtimeNs, fs.Hash); err != nil {
				return err
			}
		}

		occStmt, err := tx.Prepare(`
			INSERT INTO occurrences
				(res_type, name, kind, path, line, col, start_byte, end_byte, file_backed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer occStmt.Close()
		for _, occ := range occs {
			if err := insertOccurrence(occStmt, occ); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return errors.New(errors.InternalError, "cannot persist index", err)
	}

	db.logger.Debug("index persisted",
		"identifiers", idx.Len(), "occurrences", len(occs), "files", len(states))
	return nil
}

func insertOccurrence(stmt *sql.Stmt, occ resource.Occurrence) error {
	fileBacked := 0
	if occ.FileBacked {
		fileBacked = 1
	}
	_, err := stmt.Exec(
		occ.Identifier.Type, occ.Identifier.Name, string(occ.Kind),
		occ.Path, occ.Line, occ.Column, occ.StartByte, occ.EndByte, fileBacked)
	return err
}

func insertMeta(tx *sql.Tx, meta resource.Meta) error {
	pairs := map[string]string{
		metaScanRoot:    meta.ScanRoot,
		metaLanguage:    meta.LanguageTag,
		metaBuiltAt:     meta.BuiltAt.UTC().Format(time.RFC3339Nano),
		metaBuildID:     meta.BuildID,
		metaFileCount:   strconv.Itoa(meta.FileCount),
		metaToolVersion: meta.ToolVersion,
	}
	stmt, err := tx.Prepare("INSERT INTO index_meta (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for key, value := range pairs {
		if _, err := stmt.Exec(key, value); err != nil {
			return err
		}
	}
	return nil
}

// LoadIndex reads the persisted index back into memory. Occurrences
// arrive in canonical order, so the rebuilt entries match the saved ones.
// Unreadable or inconsistent data is reported as IndexCorrupt.
func (db *DB) LoadIndex() (*resource.Index, error) {
	meta, err := db.ReadMeta()
	if err != nil {
		return nil, err
	}

	idx := resource.NewIndex(meta)

	rows, err := db.Query(`
		SELECT res_type, name, kind, path, line, col, start_byte, end_byte, file_backed
		FROM occurrences
		ORDER BY path, start_byte, res_type, name`)
	if err != nil {
		return nil, errors.New(errors.IndexCorrupt, "cannot read occurrences", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			resType, name, kind, path string
			line, col, start, end     int
			fileBacked                int
		)
		if err := rows.Scan(&resType, &name, &kind, &path, &line, &col, &start, &end, &fileBacked); err != nil {
			return nil, errors.New(errors.IndexCorrupt, "cannot decode occurrence row", err)
		}
		idx.Add(resource.Occurrence{
			Identifier: resource.Identifier{Type: resType, Name: name},
			Kind:       resource.OccurrenceKind(kind),
			Path:       path,
			Line:       line,
			Column:     col,
			StartByte:  start,
			EndByte:    end,
			FileBacked: fileBacked != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.IndexCorrupt, "cannot read occurrences", err)
	}

	return idx, nil
}

// ReadMeta reads the build metadata stored with the index.
func (db *DB) ReadMeta() (resource.Meta, error) {
	rows, err := db.Query("SELECT key, value FROM index_meta")
	if err != nil {
		return resource.Meta{}, errors.New(errors.IndexCorrupt, "cannot read index metadata", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return resource.Meta{}, errors.New(errors.IndexCorrupt, "cannot decode index metadata", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return resource.Meta{}, errors.New(errors.IndexCorrupt, "cannot read index metadata", err)
	}
	if len(values) == 0 {
		return resource.Meta{}, errors.New(errors.IndexMissing, "index has no build metadata; run \"aster index\"", nil)
	}

	meta := resource.Meta{
		ScanRoot:    values[metaScanRoot],
		LanguageTag: values[metaLanguage],
		BuildID:     values[metaBuildID],
		ToolVersion: values[metaToolVersion],
	}
	if raw, ok := values[metaBuiltAt]; ok && raw != "" {
		builtAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return resource.Meta{}, errors.New(errors.IndexCorrupt,
				fmt.Sprintf("invalid built_at value %q", raw), err)
		}
		meta.BuiltAt = builtAt
	}
	if raw, ok := values[metaFileCount]; ok && raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return resource.Meta{}, errors.New(errors.IndexCorrupt,
				fmt.Sprintf("invalid file_count value %q", raw), err)
		}
		meta.FileCount = count
	}

	return meta, nil
}

// LoadFileStates reads every stored file fingerprint, keyed by path.
func (db *DB) LoadFileStates() (map[string]FileState, error) {
	rows, err := db.Query("SELECT path, size, mtime_ns, hash FROM files")
	if err != nil {
		return nil, errors.New(errors.IndexCorrupt, "cannot read file fingerprints", err)
	}
	defer rows.Close()

	states := make(map[string]FileState)
	for rows.Next() {
		var fs FileState
		if err := rows.Scan(&fs.Path, &fs.Size, &fs.MtimeNs, &fs.Hash); err != nil {
			return nil, errors.New(errors.IndexCorrupt, "cannot decode file fingerprint", err)
		}
		states[fs.Path] = fs
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.IndexCorrupt, "cannot read file fingerprints", err)
	}
	return states, nil
}

// FileUpdate carries one edited file's refreshed data: its new
// fingerprint and the occurrences re-extracted from the new content.
type FileUpdate struct {
	State       FileState
	Occurrences []resource.Occurrence
}

// ApplyFileUpdates prunes the index after a mutation: in one transaction,
// each edited file's occurrence rows are replaced with the re-extracted
// set and its fingerprint is refreshed. If the transaction fails, the
// stored fingerprints no longer match the edited files, so the index
// reads as stale rather than silently wrong.
func (db *DB) ApplyFileUpdates(updates []FileUpdate) error {
	err := db.WithTx(func(tx *sql.Tx) error {
		occStmt, err := tx.Prepare(`
			INSERT INTO occurrences
				(res_type, name, kind, path, line, col, start_byte, end_byte, file_backed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer occStmt.Close()

		for _, u := range updates {
			if _, err := tx.Exec("DELETE FROM occurrences WHERE path = ?", u.State.Path); err != nil {
				return err
			}
			for _, occ := range u.Occurrences {
				if err := insertOccurrence(occStmt, occ); err != nil {
					return err
				}
			}
			if _, err := tx.Exec(`
				INSERT INTO files (path, size, mtime_ns, hash) VALUES (?, ?, ?, ?)
				ON CONFLICT(path) DO UPDATE SET
					size = excluded.size,
					mtime_ns = excluded.mtime_ns,
					hash = excluded.hash`,
				u.State.Path, u.State.Size, u.State.MtimeNs, u.State.Hash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.New(errors.InternalError, "cannot prune index after mutation", err)
	}

	db.logger.Debug("index pruned", "filesUpdated", len(updates))
	return nil
}
