package limits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTakeDecrementsAndGiveRestores(t *testing.T) {
	var s Sysatomic_t
	s.Given(2)

	require.True(t, s.Take())
	require.True(t, s.Take())
	require.False(t, s.Take(), "limit exhausted, third Take must fail")

	s.Give()
	require.True(t, s.Take(), "Give must restore exactly one unit")
}

func TestTakenRejectsNegativeCount(t *testing.T) {
	var s Sysatomic_t
	require.Panics(t, func() { s.Taken(^uint(0)) })
}

func TestTakenLeavesLimitUnchangedOnFailure(t *testing.T) {
	var s Sysatomic_t
	s.Given(1)

	require.False(t, s.Taken(5))
	require.True(t, s.Take(), "a failed multi-unit Taken must not consume the single remaining unit")
}

func TestMkSysLimitSeedsNprocsFromSysprocs(t *testing.T) {
	s := MkSysLimit()
	for i := 0; i < s.Sysprocs; i++ {
		require.True(t, s.Nprocs.Take())
	}
	require.False(t, s.Nprocs.Take(), "Nprocs must be capped at Sysprocs")
}
