// Package testutil builds throwaway Android project trees for tests and
// compares pipeline output against golden files.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Project is a temporary project tree rooted at Root. Paths handed to
// its methods are slash-separated and scan-root relative.
type Project struct {
	Root string
}

// NewProject writes the given files under a fresh temp directory that
// the test framework cleans up.
func NewProject(t *testing.T, files map[string]string) Project {
	t.Helper()
	p := Project{Root: t.TempDir()}
	for path, content := range files {
		p.Write(t, path, content)
	}
	return p
}

// DefaultProject is the canned fixture pipeline tests share: one used
// string, one unused string, a layout using the first, and a Java
// source referencing one defined and one undeclared resource.
func DefaultProject(t *testing.T) Project {
	t.Helper()
	return NewProject(t, map[string]string{
		"res/values/strings.xml": `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">Aster Demo</string>
    <string name="old_title">Forgotten</string>
</resources>
`,
		"res/layout/main.xml": `<?xml version="1.0" encoding="utf-8"?>
<TextView xmlns:android="http://schemas.android.com/apk/res/android"
    android:text="@string/app_name" />
`,
		"src/Main.java": `class Main {
    static final int TITLE = R.string.app_name;
    static final int MISSING = R.string.missing;
}
`,
	})
}

// Write creates or replaces one file, creating parent directories as
// needed.
func (p Project) Write(t *testing.T, path, content string) {
	t.Helper()
	abs := filepath.Join(p.Root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Remove deletes one file.
func (p Project) Remove(t *testing.T, path string) {
	t.Helper()
	if err := os.Remove(filepath.Join(p.Root, filepath.FromSlash(path))); err != nil {
		t.Fatalf("remove %s: %v", path, err)
	}
}

// Read returns one file's content.
func (p Project) Read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.Root, filepath.FromSlash(path)))
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
