package ioctlflags_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/OrthogonalScribe/baktu/internal/ioctlflags"
)

// tryGet calls Get, skipping the test outright when the backing filesystem
// (commonly tmpfs under /tmp) doesn't implement FS_IOC_GETFLAGS at all.
func tryGet(t *testing.T, path string) string {
	t.Helper()
	flags, err := ioctlflags.Get(path)
	if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.EINVAL) {
		t.Skipf("FS_IOC_GETFLAGS unsupported on this filesystem: %v", err)
	}
	require.NoError(t, err)
	return flags
}

func TestGetReturnsEmptyForFreshFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	flags := tryGet(t, path)
	assert.Empty(t, flags)
}

func TestGetReturnsEmptyForFreshDir(t *testing.T) {
	dir := t.TempDir()
	flags := tryGet(t, dir)
	assert.Empty(t, flags)
}

func TestGetErrorsOnNonexistentPath(t *testing.T) {
	_, err := ioctlflags.Get(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
