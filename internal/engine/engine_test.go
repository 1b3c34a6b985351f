package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrthogonalScribe/baktu/internal/engine"
	"github.com/OrthogonalScribe/baktu/internal/nsv"
	"github.com/OrthogonalScribe/baktu/internal/repo"
)

// newSite creates a fresh repo with a single site "laptop" under a temp dir
// and returns that site.
func newSite(t *testing.T) repo.Site {
	t.Helper()
	repoDir := t.TempDir()
	_, err := repo.Create(repoDir)
	require.NoError(t, err)

	sitePath := filepath.Join(repoDir, "sites", "laptop")
	site, err := repo.CreateSite(sitePath)
	require.NoError(t, err)
	return site
}

func include(t *testing.T, site repo.Site, path string) {
	t.Helper()
	require.NoError(t, nsv.Append(filepath.Join(site.Path, repo.IncludesName), []byte(path)))
}

func exclude(t *testing.T, site repo.Site, path string) {
	t.Helper()
	require.NoError(t, nsv.Append(filepath.Join(site.Path, repo.ExcludesName), []byte(path)))
}

func dataPath(site repo.Site, elem ...string) string {
	parts := append([]string{site.SnapsPath(), engine.ZerothSnapName, "data"}, elem...)
	return filepath.Join(parts...)
}

func TestSnapshotCopiesRegularFileAndRecordsMetadata(t *testing.T) {
	site := newSite(t)

	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "hello.txt"), []byte("hello, world"), 0644))
	include(t, site, srcRoot)

	stats, err := engine.Snapshot(site, engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.ProcessedCount) // the include root dir + hello.txt

	dst := dataPath(site, filepath.Base(srcRoot), "hello.txt")
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(got))

	metaPath := filepath.Join(dataPath(site, filepath.Base(srcRoot)), ".baktu.meta.brj")
	meta, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	assert.Contains(t, string(meta), "hello.txt")
}

func TestSnapshotDeduplicatesIdenticalContent(t *testing.T) {
	site := newSite(t)

	srcRoot := t.TempDir()
	content := []byte("duplicate me please, this is long enough to dedup")
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.txt"), content, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "b.txt"), content, 0644))
	include(t, site, srcRoot)

	_, err := engine.Snapshot(site, engine.Options{})
	require.NoError(t, err)

	base := dataPath(site, filepath.Base(srcRoot))

	aInfo, err := os.Lstat(filepath.Join(base, "a.txt"))
	require.NoError(t, err)
	assert.Zero(t, aInfo.Mode()&os.ModeSymlink, "first copy should be a regular file")

	bInfo, err := os.Lstat(filepath.Join(base, "b.txt"))
	require.NoError(t, err)
	assert.NotZero(t, bInfo.Mode()&os.ModeSymlink, "second, identical copy should be deduplicated via symlink")

	got, err := os.ReadFile(filepath.Join(base, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSnapshotRecreatesDirectoriesAndSymlinks(t *testing.T) {
	site := newSite(t)

	srcRoot := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(srcRoot, "subdir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "subdir", "f.txt"), []byte("x"), 0644))
	require.NoError(t, os.Symlink("subdir/f.txt", filepath.Join(srcRoot, "link")))
	include(t, site, srcRoot)

	_, err := engine.Snapshot(site, engine.Options{})
	require.NoError(t, err)

	base := dataPath(site, filepath.Base(srcRoot))

	info, err := os.Stat(filepath.Join(base, "subdir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	target, err := os.Readlink(filepath.Join(base, "link"))
	require.NoError(t, err)
	assert.Equal(t, "subdir/f.txt", target)
}

func TestSnapshotExcludesViaExcludePathsNSV(t *testing.T) {
	site := newSite(t)

	srcRoot := t.TempDir()
	keepPath := filepath.Join(srcRoot, "keep.txt")
	dropPath := filepath.Join(srcRoot, "drop.txt")
	require.NoError(t, os.WriteFile(keepPath, []byte("keep"), 0644))
	require.NoError(t, os.WriteFile(dropPath, []byte("drop"), 0644))
	include(t, site, srcRoot)
	exclude(t, site, dropPath)

	stats, err := engine.Snapshot(site, engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ExcludedCount)

	base := dataPath(site, filepath.Base(srcRoot))
	_, err = os.Stat(filepath.Join(base, "keep.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "drop.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestSnapshotDryRunMakesNoFilesystemChanges(t *testing.T) {
	site := newSite(t)

	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "f.txt"), []byte("content"), 0644))
	include(t, site, srcRoot)

	_, err := engine.Snapshot(site, engine.Options{DryRun: true})
	require.NoError(t, err)

	snapPath := filepath.Join(site.SnapsPath(), engine.ZerothSnapName)
	_, err = os.Stat(snapPath)
	assert.True(t, os.IsNotExist(err), "dry run must not create the snapshot directory")
}

func TestSnapshotErrorsOnNoIncludes(t *testing.T) {
	site := newSite(t)

	_, err := engine.Snapshot(site, engine.Options{})
	assert.ErrorIs(t, err, engine.ErrNoIncludes)
}

func TestSnapshotErrorsOnNonexistentInclude(t *testing.T) {
	site := newSite(t)
	include(t, site, filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := engine.Snapshot(site, engine.Options{})
	assert.ErrorIs(t, err, engine.ErrNonexistentPath)
}

func TestSnapshotAllowsNonexistentExcludeWhenOptedIn(t *testing.T) {
	site := newSite(t)

	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "f.txt"), []byte("content"), 0644))
	include(t, site, srcRoot)
	exclude(t, site, filepath.Join(t.TempDir(), "ghost"))

	_, err := engine.Snapshot(site, engine.Options{AllowNonexistentExcludePaths: true})
	require.NoError(t, err)
}
