package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsolvedBoundary(t *testing.T) {
	end := int64(1700000000)

	// a submission at exactly the contest end is in-contest
	require.False(t, Upsolved(end-1, end))
	require.False(t, Upsolved(end, end))
	require.True(t, Upsolved(end+1, end))
}

func TestGraceWindowBoundary(t *testing.T) {
	end := int64(1700000000)

	require.True(t, InGrace(end, end))
	require.True(t, InGrace(end+GraceWindowSeconds, end))
	require.False(t, InGrace(end+GraceWindowSeconds+1, end))
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: 100, End: 200}
	require.False(t, w.Contains(99))
	require.True(t, w.Contains(100))
	require.True(t, w.Contains(200))
	require.False(t, w.Contains(201))

	// zero bounds are open
	require.True(t, Window{}.Contains(0))
	require.True(t, Window{Start: 100}.Contains(1<<40))
	require.False(t, Window{Start: 100}.Contains(99))
}
