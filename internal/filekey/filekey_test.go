package filekey_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/OrthogonalScribe/baktu/internal/filekey"
)

func TestFromPathHardLinksShareKey(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0644))
	require.NoError(t, os.Link(a, b))

	ka, err := filekey.FromPath(a)
	require.NoError(t, err)
	kb, err := filekey.FromPath(b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
}

func TestFromPathDistinctFilesDiffer(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("y"), 0644))

	ka, err := filekey.FromPath(a)
	require.NoError(t, err)
	kb, err := filekey.FromPath(b)
	require.NoError(t, err)
	assert.NotEqual(t, ka, kb)
}

func TestFromStatxMatchesFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	var stx unix.Statx_t
	require.NoError(t, unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW,
		unix.STATX_BASIC_STATS|unix.STATX_INO, &stx))

	fromStatx := filekey.FromStatx(&stx)
	fromPath, err := filekey.FromPath(path)
	require.NoError(t, err)
	assert.Equal(t, fromPath, fromStatx)
}

func TestFromStatxPanicsWithoutInoMask(t *testing.T) {
	var stx unix.Statx_t
	stx.Mask = unix.STATX_BASIC_STATS &^ unix.STATX_INO
	assert.Panics(t, func() { filekey.FromStatx(&stx) })
}
