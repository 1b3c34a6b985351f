package statx_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrthogonalScribe/baktu/internal/statx"
)

func TestGetRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	stx, err := statx.Get(path)
	require.NoError(t, err)
	assert.Equal(t, statx.TypeReg, statx.Type(stx))
	assert.EqualValues(t, 5, stx.Size)
}

func TestGetDirectory(t *testing.T) {
	dir := t.TempDir()

	stx, err := statx.Get(dir)
	require.NoError(t, err)
	assert.Equal(t, statx.TypeDir, statx.Type(stx))
}

func TestGetSymlinkDoesNotFollow(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	stx, err := statx.Get(link)
	require.NoError(t, err)
	assert.Equal(t, statx.TypeLnk, statx.Type(stx))
}

func TestGetNonexistentPathErrors(t *testing.T) {
	_, err := statx.Get(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestPermReturnsModeWithoutType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	stx, err := statx.Get(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0600), statx.Perm(stx))
}

func TestFileTypeStringRendersKnownTypes(t *testing.T) {
	assert.Equal(t, "reg", statx.TypeReg.String())
	assert.Equal(t, "dir", statx.TypeDir.String())
	assert.Equal(t, "lnk", statx.TypeLnk.String())
}

func TestHasNodumpFalseByDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	stx, err := statx.Get(path)
	require.NoError(t, err)
	assert.False(t, statx.HasNodump(stx))
}
