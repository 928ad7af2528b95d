// Package mutate deletes resource occurrences from the files that contain
// them and prunes the persisted index to match. Edits are planned per
// file, validated against the file's current content, and applied in one
// descending-offset pass so earlier deletions never shift later spans. A
// file that changed since the index was built is skipped with a
// diagnostic, never half-edited.
package mutate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"aster/internal/errors"
	"aster/internal/exclude"
	"aster/internal/extract"
	"aster/internal/query"
	"aster/internal/resource"
	"aster/internal/store"
)

// Mutator plans and applies occurrence removals for one loaded index.
type Mutator struct {
	scanRoot string
	idx      *resource.Index
	db       *store.DB
	registry *extract.Registry
	logger   *slog.Logger
}

// NewMutator creates a mutator rooted at the absolute scanRoot. db may be
// nil, in which case files are edited but the persisted index is left to
// read as stale.
func NewMutator(scanRoot string, idx *resource.Index, db *store.DB, logger *slog.Logger) *Mutator {
	return &Mutator{
		scanRoot: scanRoot,
		idx:      idx,
		db:       db,
		registry: extract.DefaultRegistry(),
		logger:   logger,
	}
}

// Options controls one removal run.
type Options struct {
	// Prefix restricts targets to names with this prefix. Empty matches
	// everything.
	Prefix string

	// Keep exempts matching identifiers from removal. May be nil.
	Keep *exclude.RuleSet

	// DryRun plans and validates but writes nothing, neither files nor
	// index.
	DryRun bool

	// Workers bounds file-level parallelism. Zero means NumCPU.
	Workers int
}

// Report summarizes one removal run.
type Report struct {
	// IdentifiersRemoved counts identifiers whose every occurrence was
	// deleted.
	IdentifiersRemoved int `json:"identifiersRemoved"`

	// FilesModified counts files rewritten (or, under DryRun, files that
	// would be).
	FilesModified int `json:"filesModified"`

	// FilesSkipped counts files left untouched because they changed
	// since the index was built or became unreadable.
	FilesSkipped int `json:"filesSkipped"`

	// DryRun records whether this run was a dry run.
	DryRun bool `json:"dryRun,omitempty"`

	// Removed lists the fully removed identifiers in type/name order.
	Removed []resource.Identifier `json:"removed,omitempty"`

	// Diagnostics are the per-file and per-identifier problems, none of
	// them fatal.
	Diagnostics []extract.Diagnostic `json:"diagnostics,omitempty"`
}

// RemoveUnused resolves the unused identifiers matching opts.Prefix,
// minus keep-rule matches, and removes every occurrence of them.
func (m *Mutator) RemoveUnused(ctx context.Context, opts Options) (*Report, error) {
	engine := query.NewEngine(m.idx, opts.Keep)
	return m.Remove(ctx, engine.ListUnused(opts.Prefix), opts)
}

// Remove deletes every occurrence of the given identifiers. Per-file
// failures are reported in the returned Report, not as an error; the only
// error Remove returns is cancellation, and even then the Report covers
// the files already edited.
func (m *Mutator) Remove(ctx context.Context, targets []resource.Identifier, opts Options) (*Report, error) {
	p := m.plan(targets)
	report := &Report{DryRun: opts.DryRun, Diagnostics: p.diagnostics}
	if len(p.files) == 0 {
		report.Removed = p.fullyRemovable(nil)
		report.IdentifiersRemoved = len(report.Removed)
		sortDiagnostics(report.Diagnostics)
		return report, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(p.files) {
		workers = len(p.files)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []fileOutcome
	)

	jobs := make(chan *filePlan)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case fp, ok := <-jobs:
					if !ok {
						return
					}
					out := m.editFile(fp, opts.DryRun)
					mu.Lock()
					outcomes = append(outcomes, out)
					mu.Unlock()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

feed:
	for _, fp := range p.files {
		select {
		case jobs <- fp:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].plan.path < outcomes[j].plan.path })

	failed := make(map[string]bool)
	var updates []store.FileUpdate
	for _, out := range outcomes {
		if out.diag != nil {
			report.Diagnostics = append(report.Diagnostics, *out.diag)
		}
		if !out.ok {
			failed[out.plan.path] = true
			report.FilesSkipped++
			continue
		}
		report.FilesModified++
		if out.update != nil {
			updates = append(updates, *out.update)
		}
	}

	// Files never reached before cancellation count as skipped.
	if len(outcomes) < len(p.files) {
		seen := make(map[string]bool, len(outcomes))
		for _, out := range outcomes {
			seen[out.plan.path] = true
		}
		for _, fp := range p.files {
			if !seen[fp.path] {
				failed[fp.path] = true
				report.FilesSkipped++
			}
		}
	}

	report.Removed = p.fullyRemovable(failed)
	report.IdentifiersRemoved = len(report.Removed)
	sortDiagnostics(report.Diagnostics)

	if !opts.DryRun {
		m.applyUpdates(report, updates)
	}

	m.logger.Info("removal complete",
		"identifiersRemoved", report.IdentifiersRemoved,
		"filesModified", report.FilesModified,
		"filesSkipped", report.FilesSkipped,
		"dryRun", opts.DryRun)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// applyUpdates prunes the in-memory and persisted index for the edited
// files. A pruning failure is reported as a diagnostic: the stored
// fingerprints then no longer match the edited files, so the index reads
// as stale instead of silently wrong.
func (m *Mutator) applyUpdates(report *Report, updates []store.FileUpdate) {
	for _, u := range updates {
		m.idx.RemoveOccurrencesIn(u.State.Path)
		for _, occ := range u.Occurrences {
			m.idx.Add(occ)
		}
	}
	if m.db == nil || len(updates) == 0 {
		return
	}
	if err := m.db.ApplyFileUpdates(updates); err != nil {
		m.logger.Warn("index not pruned after removal", "error", err)
		report.Diagnostics = append(report.Diagnostics, extract.Diagnostic{
			Code:    errors.CodeOf(err),
			Message: "index not pruned; the next command will report it stale",
		})
	}
}

// filePlan is every span to delete in one file.
type filePlan struct {
	path    string
	absPath string
	spans   []resource.Occurrence
}

// planned is the immutable removal plan: which spans in which files, and
// which files each identifier depends on for its removal.
type planned struct {
	files       []*filePlan
	targets     []resource.Identifier
	idFiles     map[resource.Identifier][]string
	fileBacked  map[resource.Identifier]bool
	diagnostics []extract.Diagnostic
}

func (m *Mutator) plan(targets []resource.Identifier) *planned {
	p := &planned{
		idFiles:    make(map[resource.Identifier][]string),
		fileBacked: make(map[resource.Identifier]bool),
	}
	byPath := make(map[string]*filePlan)

	for _, id := range targets {
		entry := m.idx.Entry(id)
		if entry == nil {
			continue
		}
		p.targets = append(p.targets, id)
		occs := make([]resource.Occurrence, 0, len(entry.Definitions)+len(entry.Usages))
		occs = append(occs, entry.Definitions...)
		occs = append(occs, entry.Usages...)
		for _, occ := range occs {
			if occ.FileBacked {
				p.fileBacked[id] = true
				p.diagnostics = append(p.diagnostics, extract.Diagnostic{
					Path: occ.Path,
					Code: errors.FileBackedResource,
					Message: fmt.Sprintf("%s is declared by this file; delete the file to remove it",
						id),
				})
				continue
			}
			fp, ok := byPath[occ.Path]
			if !ok {
				fp = &filePlan{
					path:    occ.Path,
					absPath: filepath.Join(m.scanRoot, filepath.FromSlash(occ.Path)),
				}
				byPath[occ.Path] = fp
			}
			fp.spans = append(fp.spans, occ)
			p.idFiles[id] = append(p.idFiles[id], occ.Path)
		}
	}

	for _, fp := range byPath {
		p.files = append(p.files, fp)
	}
	sort.Slice(p.files, func(i, j int) bool { return p.files[i].path < p.files[j].path })
	return p
}

// fullyRemovable returns the identifiers whose every occurrence was
// deleted: none file-backed, and no owning file in the failed set.
func (p *planned) fullyRemovable(failed map[string]bool) []resource.Identifier {
	var ids []resource.Identifier
	for _, id := range p.targets {
		if p.fileBacked[id] {
			continue
		}
		ok := true
		for _, path := range p.idFiles[id] {
			if failed[path] {
				ok = false
				break
			}
		}
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// fileOutcome is the result of editing (or validating, under dry run)
// one file.
type fileOutcome struct {
	plan   *filePlan
	ok     bool
	update *store.FileUpdate
	diag   *extract.Diagnostic
}

func skipOutcome(fp *filePlan, code errors.ErrorCode, format string, args ...interface{}) fileOutcome {
	return fileOutcome{
		plan: fp,
		diag: &extract.Diagnostic{
			Path:    fp.path,
			Code:    code,
			Message: fmt.Sprintf(format, args...),
		},
	}
}

// editFile validates one file against its planned spans and rewrites it.
// Validation re-extracts the current content and requires every planned
// span to still match; any mismatch means the file changed since the
// index was built, and the whole file is skipped.
func (m *Mutator) editFile(fp *filePlan, dryRun bool) fileOutcome {
	content, err := os.ReadFile(fp.absPath)
	if err != nil {
		return skipOutcome(fp, errors.MutationIOError, "cannot read file: %v", err)
	}
	info, err := os.Stat(fp.absPath)
	if err != nil {
		return skipOutcome(fp, errors.MutationIOError, "cannot stat file: %v", err)
	}

	tag := tagForPath(fp.path)
	ex, ok := m.registry.Lookup(tag)
	if tag == "" || !ok {
		return skipOutcome(fp, errors.InternalError, "no extractor for file")
	}

	fresh, err := ex.Extract(fp.path, content)
	if err != nil {
		return skipOutcome(fp, errors.StaleFile, "file no longer parses: %v", err)
	}
	current := make(map[spanKey]bool, len(fresh.Occurrences))
	for _, occ := range fresh.Occurrences {
		current[keyOf(occ)] = true
	}
	for _, span := range fp.spans {
		if !current[keyOf(span)] {
			return skipOutcome(fp, errors.StaleFile,
				"content changed since the index was built (%s not found at recorded span)",
				span.Identifier)
		}
	}

	edited := applySpans(content, fp.spans)
	m.logger.Debug("file edited", "path", fp.path, "spans", len(fp.spans), "dryRun", dryRun)
	if dryRun {
		return fileOutcome{plan: fp, ok: true}
	}

	if err := writeAtomic(fp.absPath, edited, info.Mode().Perm()); err != nil {
		return skipOutcome(fp, errors.MutationIOError, "cannot write file: %v", err)
	}

	out := fileOutcome{plan: fp, ok: true}
	afterInfo, err := os.Stat(fp.absPath)
	if err != nil {
		out.diag = &extract.Diagnostic{
			Path:    fp.path,
			Code:    errors.MutationIOError,
			Message: fmt.Sprintf("edited but cannot fingerprint: %v", err),
		}
		return out
	}
	after, err := ex.Extract(fp.path, edited)
	if err != nil {
		out.diag = &extract.Diagnostic{
			Path:    fp.path,
			Code:    errors.ExtractionError,
			Message: fmt.Sprintf("edited file no longer parses: %v", err),
		}
		return out
	}
	out.update = &store.FileUpdate{
		State:       store.NewFileState(fp.path, edited, afterInfo),
		Occurrences: after.Occurrences,
	}
	return out
}

// spanKey identifies one occurrence span for validation.
type spanKey struct {
	id    resource.Identifier
	kind  resource.OccurrenceKind
	start int
	end   int
}

func keyOf(occ resource.Occurrence) spanKey {
	return spanKey{id: occ.Identifier, kind: occ.Kind, start: occ.StartByte, end: occ.EndByte}
}

// applySpans deletes every span from content in one descending-offset
// pass. Definition spans widen to whole lines when nothing but
// indentation shares them, removing the trailing newline too; usage spans
// are removed exactly as recorded.
func applySpans(content []byte, spans []resource.Occurrence) []byte {
	ordered := make([]resource.Occurrence, len(spans))
	copy(ordered, spans)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StartByte > ordered[j].StartByte })

	floor := len(content)
	for _, span := range ordered {
		start, end := span.StartByte, span.EndByte
		if span.Kind == resource.KindDefinition {
			start, end = wholeLines(content, start, end)
		}
		if end > floor {
			end = floor
		}
		if start < 0 || start >= end {
			continue
		}
		content = append(content[:start], content[end:]...)
		floor = start
	}
	return content
}

// wholeLines widens [start,end) to full lines, trailing newline included,
// when the span shares its lines with nothing but indentation. A span
// with other content on its line is returned unwidened so that content
// survives.
func wholeLines(content []byte, start, end int) (int, int) {
	lineStart := start
	for lineStart > 0 && content[lineStart-1] != '\n' {
		lineStart--
	}
	for i := lineStart; i < start; i++ {
		if content[i] != ' ' && content[i] != '\t' {
			return start, end
		}
	}

	lineEnd := end
	for lineEnd < len(content) && content[lineEnd] != '\n' {
		if content[lineEnd] != ' ' && content[lineEnd] != '\t' && content[lineEnd] != '\r' {
			return start, end
		}
		lineEnd++
	}
	if lineEnd < len(content) {
		lineEnd++
	}
	return lineStart, lineEnd
}

// writeAtomic replaces absPath with data: temp file in the same
// directory, fsync, rename over the original. The original's permissions
// carry over; a failure at any step leaves the original untouched.
func writeAtomic(absPath string, data []byte, perm os.FileMode) error {
	tmpPath := absPath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func tagForPath(path string) string {
	switch filepath.Ext(path) {
	case ".xml":
		return extract.TagXML
	case ".java":
		return extract.TagJava
	case ".kt", ".kts":
		return extract.TagKotlin
	}
	return ""
}

func sortDiagnostics(diags []extract.Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Path != diags[j].Path {
			return diags[i].Path < diags[j].Path
		}
		return diags[i].Line < diags[j].Line
	})
}
