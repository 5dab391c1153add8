package util

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FileInfo identifies one version of a file on disk.
type FileInfo struct {
	ModTime int64  // Last modification time (unix nanoseconds)
	Size    int64  // File size in bytes
	Inode   uint64 // Inode number (unique file identifier on Unix-like systems)
}

// GetFileInfo retrieves identity information for a file, including its inode number.
// Supported on Linux and macOS.
func GetFileInfo(path string) (*FileInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	sec, nsec := st.Mtim.Unix()
	return &FileInfo{
		ModTime: sec*1e9 + nsec,
		Size:    st.Size,
		Inode:   uint64(st.Ino),
	}, nil
}

// Same reports whether two infos describe the same file version.
func (fi *FileInfo) Same(other *FileInfo) bool {
	if fi == nil || other == nil {
		return false
	}
	return fi.Inode == other.Inode && fi.Size == other.Size && fi.ModTime == other.ModTime
}
