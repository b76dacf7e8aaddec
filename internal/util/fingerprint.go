package util

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// FileHash identifies a version of a file by its size and modification time.
// The content itself is never read, so hashing an append-only log is O(1).
func FileHash(path string) (string, error) {
	info, err := GetFileInfo(path)
	if err != nil {
		return "", err
	}
	return info.Hash(), nil
}

// Hash returns the hex digest of "size:mtime".
func (fi *FileInfo) Hash() string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d:%d", fi.Size, fi.ModTime)))
	return hex.EncodeToString(sum[:])
}
