// Package filekey implements the (device, inode) identity used to key the
// exclude-path set. Hard links share a FileKey, so excluding one hard link
// excludes all of its peers — a known limitation carried forward from the
// original design (see SPEC_FULL.md §9).
package filekey

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// FileKey is an order-insensitive (dev, ino) pair identifying an inode.
type FileKey struct {
	Dev uint64
	Ino uint64
}

// FromPath stats path without following a trailing symlink and returns its
// FileKey.
func FromPath(path string) (FileKey, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return FileKey{}, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		panic("filekey: unsupported platform, *syscall.Stat_t required")
	}
	return FileKey{Dev: uint64(stat.Dev), Ino: stat.Ino}, nil
}

// FromStatx builds a FileKey out of a populated unix.Statx_t, as returned by
// the statx package. stx must have been queried with STATX_INO.
func FromStatx(stx *unix.Statx_t) FileKey {
	if stx.Mask&unix.STATX_INO == 0 {
		panic("filekey: statx result missing STATX_INO")
	}
	return FileKey{
		Dev: unix.Mkdev(stx.Dev_major, stx.Dev_minor),
		Ino: stx.Ino,
	}
}
