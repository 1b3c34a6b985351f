package capabilities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrthogonalScribe/baktu/internal/capabilities"
)

func TestHasSysAdminPermittedSucceeds(t *testing.T) {
	_, err := capabilities.HasSysAdminPermitted()
	require.NoError(t, err)
}

func TestRaiseAndDropRoundTripWhenPermitted(t *testing.T) {
	permitted, err := capabilities.HasSysAdminPermitted()
	require.NoError(t, err)
	if !permitted {
		t.Skip("CAP_SYS_ADMIN not permitted for this process")
	}

	assert.NoError(t, capabilities.RaiseSysAdminEffective())
	assert.NoError(t, capabilities.DropSysAdminEffective())
}
