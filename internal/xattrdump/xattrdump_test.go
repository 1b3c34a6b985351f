package xattrdump_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/xattr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrthogonalScribe/baktu/internal/capabilities"
	"github.com/OrthogonalScribe/baktu/internal/xattrdump"
)

func TestNewDumperRoundTripsUserXattrs(t *testing.T) {
	permitted, err := capabilities.HasSysAdminPermitted()
	require.NoError(t, err)
	if !permitted {
		t.Skip("CAP_SYS_ADMIN not permitted; direct-mode dumper unavailable and the get-all-xattrs " +
			"helper isn't built by this test")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	if err := xattr.Set(path, "user.baktu_test", []byte("value")); err != nil {
		t.Skipf("filesystem backing %s doesn't support user xattrs: %v", dir, err)
	}

	dumper, err := xattrdump.NewDumper("get-all-xattrs")
	require.NoError(t, err)
	defer dumper.Close()

	kvs, err := dumper.Dump(path)
	require.NoError(t, err)

	var found bool
	for _, kv := range kvs {
		if string(kv.Key) == "user.baktu_test" {
			found = true
			assert.Equal(t, "value", string(kv.Value))
		}
	}
	assert.True(t, found, "expected to find user.baktu_test among %v", kvs)
}

func TestNewDumperNoXattrsReturnsEmpty(t *testing.T) {
	permitted, err := capabilities.HasSysAdminPermitted()
	require.NoError(t, err)
	if !permitted {
		t.Skip("CAP_SYS_ADMIN not permitted")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	dumper, err := xattrdump.NewDumper("get-all-xattrs")
	require.NoError(t, err)
	defer dumper.Close()

	kvs, err := dumper.Dump(path)
	require.NoError(t, err)
	assert.Empty(t, kvs)
}
