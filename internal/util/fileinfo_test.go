package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFileInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0644))

	info, err := GetFileInfo(path)
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size)
	assert.NotZero(t, info.ModTime)
	assert.NotZero(t, info.Inode)
}

func TestGetFileInfoMissing(t *testing.T) {
	_, err := GetFileInfo(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestFileHashChangesWithSizeAndModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("line one\n"), 0644))

	first, err := FileHash(path)
	require.NoError(t, err)
	again, err := FileHash(path)
	require.NoError(t, err)
	assert.Equal(t, first, again, "hash is stable for an untouched file")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("line two\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	grown, err := FileHash(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, grown)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	touched, err := FileHash(path)
	require.NoError(t, err)
	assert.NotEqual(t, grown, touched)
}

func TestFileInfoHash(t *testing.T) {
	a := &FileInfo{Size: 10, ModTime: 100}
	b := &FileInfo{Size: 10, ModTime: 100, Inode: 7}
	c := &FileInfo{Size: 11, ModTime: 100}

	assert.Equal(t, a.Hash(), b.Hash(), "inode does not participate")
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 32)
}
