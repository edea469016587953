package caller

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapFatalPassesThroughNil(t *testing.T) {
	require.NoError(t, WrapFatal(nil, "reopen x"))
}

func TestWrapFatalAttachesMessageAndStack(t *testing.T) {
	root := errors.New("disk image missing")
	wrapped := WrapFatal(root, "reopen img")

	require.Error(t, wrapped)
	require.Contains(t, wrapped.Error(), "reopen img")
	require.Contains(t, wrapped.Error(), "disk image missing")
	require.ErrorIs(t, wrapped, root)

	var tracer interface{ StackTrace() pkgerrors.StackTrace }
	require.ErrorAs(t, wrapped, &tracer, "WrapFatal must attach a stack trace")
}

func TestDistinctCallerDisabledByDefault(t *testing.T) {
	var dc Distinct_caller_t
	novel, _ := dc.Distinct()
	require.False(t, novel, "a disabled Distinct_caller_t never reports a novel call chain")
	require.Zero(t, dc.Len())
}

func TestDistinctCallerReportsFirstCallOnly(t *testing.T) {
	dc := Distinct_caller_t{Enabled: true}

	first, trace := dc.Distinct()
	require.True(t, first)
	require.NotEmpty(t, trace)

	second, _ := dc.Distinct()
	require.False(t, second, "the same call site must not be reported twice")
	require.Equal(t, 1, dc.Len())
}

func TestDistinctCallerHonorsWhitelist(t *testing.T) {
	// Distinct checks the whitelist against every frame of the captured
	// chain, and every goroutine's chain ends in runtime.goexit.
	dc := Distinct_caller_t{
		Enabled: true,
		Whitel:  map[string]bool{"runtime.goexit": true},
	}

	novel, trace := dc.Distinct()
	require.False(t, novel, "a whitelisted caller must never be reported as novel")
	require.Empty(t, trace)
}
