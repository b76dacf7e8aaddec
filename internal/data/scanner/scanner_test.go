package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("{}\n"), 0644))
	}
}

func TestFileScannerMissingBaseDir(t *testing.T) {
	scanner := NewFileScanner(filepath.Join(t.TempDir(), "missing"))

	files, err := scanner.Scan()
	require.NoError(t, err)
	assert.Empty(t, files)

	projects, err := scanner.Projects()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestFileScannerScanAllProjects(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"-Users-dev-alpha/s1.jsonl",
		"-Users-dev-alpha/s2.JSONL",
		"-Users-dev-alpha/notes.txt",
		"-Users-dev-alpha/nested/s3.jsonl",
		"-Users-dev-beta/s4.jsonl",
		"stray.jsonl",
	)

	scanner := NewFileScanner(root)
	files, err := scanner.Scan()
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "-Users-dev-alpha", "s1.jsonl"),
		filepath.Join(root, "-Users-dev-alpha", "s2.JSONL"),
		filepath.Join(root, "-Users-dev-beta", "s4.jsonl"),
	}, files, "only first-level logs inside project folders are returned")
}

func TestFileScannerScanProject(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "alpha/a.jsonl", "beta/b.jsonl")
	scanner := NewFileScanner(root)

	files, err := scanner.ScanProject("beta")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "beta", "b.jsonl")}, files)

	files, err = scanner.ScanProject("gamma")
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = scanner.ScanProject("../beta")
	require.NoError(t, err)
	assert.Empty(t, files, "path traversal is rejected")
}

func TestFileScannerProjects(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "zeta/a.jsonl", "alpha/b.jsonl", "loose.jsonl")

	projects, err := NewFileScanner(root).Projects()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, projects)
}

func TestSessionPath(t *testing.T) {
	scanner := NewFileScanner("/data")

	path, ok := scanner.SessionPath("proj", "abc")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join("/data", "proj", "abc.jsonl"), path)

	_, ok = scanner.SessionPath("proj", "../../etc/passwd")
	assert.False(t, ok)
}

func TestPathHelpers(t *testing.T) {
	path := filepath.Join("/data", "-Users-dev-alpha", "0b1c-session.jsonl")
	assert.Equal(t, "0b1c-session", SessionID(path))
	assert.Equal(t, "-Users-dev-alpha", ProjectFolder(path))
}
