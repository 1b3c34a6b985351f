package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrthogonalScribe/baktu/internal/engine"
	"github.com/OrthogonalScribe/baktu/internal/repo"
)

// chdir switches the test process's working directory to dir and restores
// the original on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestInitCmdCreatesRepo(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, initCmd.RunE(initCmd, nil))
	assert.True(t, repo.IsValidRepoRoot(dir))
}

func TestInitCmdFailsOnNonEmptyDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray"), []byte("x"), 0644))
	chdir(t, dir)

	err := initCmd.RunE(initCmd, nil)
	assert.ErrorIs(t, err, errAlreadyExists)
}

func TestAddSiteCmdCreatesSite(t *testing.T) {
	repoDir := t.TempDir()
	_, err := repo.Create(repoDir)
	require.NoError(t, err)
	chdir(t, repoDir)

	require.NoError(t, addSiteCmd.RunE(addSiteCmd, []string{"laptop"}))
	assert.True(t, repo.IsValidSite(filepath.Join(repoDir, "sites", "laptop")))
}

func TestAddSiteCmdFailsOutsideRepo(t *testing.T) {
	chdir(t, t.TempDir())

	err := addSiteCmd.RunE(addSiteCmd, []string{"laptop"})
	assert.ErrorIs(t, err, errNotARepo)
}

func TestAddSiteCmdFailsOnDuplicateName(t *testing.T) {
	repoDir := t.TempDir()
	_, err := repo.Create(repoDir)
	require.NoError(t, err)
	chdir(t, repoDir)

	require.NoError(t, addSiteCmd.RunE(addSiteCmd, []string{"laptop"}))
	err = addSiteCmd.RunE(addSiteCmd, []string{"laptop"})
	assert.ErrorIs(t, err, errAlreadyExists)
}

func TestNsvAddToAndRmFromRoundTrip(t *testing.T) {
	dir := t.TempDir()
	nsvPath := filepath.Join(dir, "paths.nsv")
	require.NoError(t, os.WriteFile(nsvPath, nil, 0644))

	require.NoError(t, nsvAddToCmd.RunE(nsvAddToCmd, []string{nsvPath, "/tmp/foo"}))
	content, err := os.ReadFile(nsvPath)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/foo\x00", string(content))

	require.NoError(t, nsvRmFromCmd.RunE(nsvRmFromCmd, []string{nsvPath, "/tmp/foo"}))
	content, err = os.ReadFile(nsvPath)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestSnapCmdFailsOutsideSite(t *testing.T) {
	chdir(t, t.TempDir())

	err := snapCmd.RunE(snapCmd, nil)
	assert.ErrorIs(t, err, errNotASite)
}

func TestSnapCmdRunsSnapshot(t *testing.T) {
	repoDir := t.TempDir()
	_, err := repo.Create(repoDir)
	require.NoError(t, err)
	sitePath := filepath.Join(repoDir, "sites", "laptop")
	_, err = repo.CreateSite(sitePath)
	require.NoError(t, err)

	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "f.txt"), []byte("hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sitePath, repo.IncludesName), append([]byte(srcRoot), 0), 0644))

	chdir(t, sitePath)
	snapOpts = engine.Options{}
	require.NoError(t, snapCmd.RunE(snapCmd, nil))

	got, err := os.ReadFile(filepath.Join(sitePath, "snaps", engine.ZerothSnapName, "data", filepath.Base(srcRoot), "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestClassifyMapsKnownErrors(t *testing.T) {
	assert.Equal(t, exitUsage, classify(errNotARepo))
	assert.Equal(t, exitUsage, classify(errNotASite))
	assert.Equal(t, exitUsage, classify(errAlreadyExists))
	assert.Equal(t, exitDataErr, classify(errRepoCorrupt))
	assert.Equal(t, exitDataErr, classify(engine.ErrNoIncludes))
	assert.Equal(t, exitNoInput, classify(engine.ErrNonexistentPath))
	assert.Equal(t, exitSoftware, classify(errors.New("something unexpected")))
}
