//go:build integration

package integration_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir   string // HOME, so no real config file is read
	SourceDir string // templates/ and standards/
	ParentDir string // where projects are created
}

// setupTestEnv creates isolated temp directories and points HOME at one of
// them. The env var is restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:   t.TempDir(),
		SourceDir: t.TempDir(),
		ParentDir: t.TempDir(),
	}
	t.Setenv("HOME", env.HomeDir)
	return env
}

// setupSource writes a standards corpus and a default template whose
// payload holds one tiny and one 10 MB file.
func setupSource(t *testing.T, sourceDir string) {
	t.Helper()

	writeFile(t, filepath.Join(sourceDir, "standards", "README.md"), "# Standards\n")
	writeFile(t, filepath.Join(sourceDir, "standards", "api", "errors.md"), "# Error handling\n")

	tmplDir := filepath.Join(sourceDir, "templates", "default")
	writeFile(t, filepath.Join(tmplDir, "template.yaml"), `name: default
version: 1.0.0
directories:
  - assets
files:
  - assets/tiny.txt
  - assets/large.bin
scripts:
  lint: eslint .
`)
	writeFile(t, filepath.Join(tmplDir, "assets", "tiny.txt"), "0123456789")
	writeFile(t, filepath.Join(tmplDir, "assets", "large.bin"), strings.Repeat("x", 10<<20))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating parent dirs for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("expected file to exist: %s", path)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Errorf("expected path to not exist: %s", path)
	}
}

func assertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("expected directory to exist: %s", path)
		return
	}
	if err != nil {
		t.Errorf("stat %s: %v", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", path)
	}
}

func assertSameContent(t *testing.T, a, b string) {
	t.Helper()
	da, err := os.ReadFile(a)
	if err != nil {
		t.Fatalf("reading %s: %v", a, err)
	}
	db, err := os.ReadFile(b)
	if err != nil {
		t.Fatalf("reading %s: %v", b, err)
	}
	if !bytes.Equal(da, db) {
		t.Errorf("%s and %s differ (%d vs %d bytes)", a, b, len(da), len(db))
	}
}

// listTree returns every path under dir, relative and slash-separated.
func listTree(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(p string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", dir, err)
	}
	return out
}
