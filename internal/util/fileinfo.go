package util

import (
	"golang.org/x/sys/unix"
)

// FileInfo contains the file attributes used for cache validation.
type FileInfo struct {
	ModTime int64  // Modification time, Unix nanoseconds
	Size    int64  // File size in bytes
	Inode   uint64 // Inode number
}

// GetFileInfo stats path. Supported on Linux and macOS.
func GetFileInfo(path string) (*FileInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, err
	}

	sec, nsec := st.Mtim.Unix()
	return &FileInfo{
		ModTime: sec*1e9 + nsec,
		Size:    st.Size,
		Inode:   uint64(st.Ino),
	}, nil
}
