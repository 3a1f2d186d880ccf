package tracker

import (
	"testing"
	"time"

	"cptracker-backend/lib/scrapers/cfgym"

	"github.com/stretchr/testify/require"
)

func gymContest() GymContest {
	return GymContest{
		Name:     "104777",
		Start:    time.Unix(1000000, 0).UTC(),
		End:      time.Unix(1018000, 0).UTC(),
		Division: 3,
	}
}

func TestRosterLookupIsCaseInsensitive(t *testing.T) {
	lookup := rosterLookup([]HandleRecord{
		{Username: "alice", CodeforcesHandles: []string{"Alice_CF", "alice_alt"}},
		{Username: "bob", CodeforcesHandles: []string{"BobSolves"}},
	})
	require.Equal(t, map[string]string{
		"alice_cf":  "Alice_CF",
		"alice_alt": "alice_alt",
		"bobsolves": "BobSolves",
	}, lookup)
}

func TestFinalizeSolvesAcceptDuringContest(t *testing.T) {
	contest := gymContest()
	state := map[cfgym.SolveKey]cfgym.Solve{
		{Handle: "alice", Problem: "A"}: {FirstAccept: time.Unix(1010000, 0).UTC()},
	}

	subs := finalizeSolves(state, contest, false)
	require.Len(t, subs, 1)
	require.True(t, subs[0].Solved)
	require.False(t, subs[0].Upsolved)
	require.Equal(t, int64(1), subs[0].Rating)
	require.Equal(t, "104777", subs[0].ContestId)
	require.Equal(t, int64(3), subs[0].Division)
	require.Equal(t, int64(0), subs[0].SubmissionId)
}

func TestFinalizeSolvesAcceptInGraceWindow(t *testing.T) {
	contest := gymContest()
	end := contest.End.Unix()

	state := map[cfgym.SolveKey]cfgym.Solve{
		{Handle: "alice", Problem: "A"}: {FirstAccept: time.Unix(end+3600, 0).UTC()},
	}

	subs := finalizeSolves(state, contest, false)
	require.Len(t, subs, 1)
	require.True(t, subs[0].Solved)
	require.True(t, subs[0].Upsolved)
	require.Equal(t, int64(1), subs[0].Rating)
}

func TestFinalizeSolvesAcceptPastGraceWindowIsDropped(t *testing.T) {
	contest := gymContest()
	end := contest.End.Unix()

	state := map[cfgym.SolveKey]cfgym.Solve{
		{Handle: "alice", Problem: "A"}: {FirstAccept: time.Unix(end+GraceWindowSeconds+1, 0).UTC()},
	}

	subs := finalizeSolves(state, contest, false)
	require.Empty(t, subs)
}

func TestFinalizeSolvesAttemptAndAccept(t *testing.T) {
	contest := gymContest()

	state := map[cfgym.SolveKey]cfgym.Solve{
		{Handle: "alice", Problem: "A"}: {
			FirstAttempt: time.Unix(1005000, 0).UTC(),
			FirstAccept:  time.Unix(1010000, 0).UTC(),
		},
	}

	subs := finalizeSolves(state, contest, true)
	require.Len(t, subs, 2)

	var solved, unsolved int
	for _, s := range subs {
		if s.Solved {
			solved++
			require.Equal(t, int64(1010000), s.Time)
		} else {
			unsolved++
			require.Equal(t, int64(1005000), s.Time)
		}
	}
	require.Equal(t, 1, solved)
	require.Equal(t, 1, unsolved)
}

func TestFinalizeSolvesNoUnsolvedRecordsWithoutAllowUnsolved(t *testing.T) {
	contest := gymContest()

	state := map[cfgym.SolveKey]cfgym.Solve{
		{Handle: "alice", Problem: "A"}: {FirstAttempt: time.Unix(1005000, 0).UTC()},
		{Handle: "bob", Problem: "B"}: {
			FirstAttempt: time.Unix(1005000, 0).UTC(),
			FirstAccept:  time.Unix(1010000, 0).UTC(),
		},
	}

	subs := finalizeSolves(state, contest, false)
	for _, s := range subs {
		require.True(t, s.Solved)
	}
	require.Len(t, subs, 1)
}

func TestFinalizeSolvesAttemptAfterContestEndIsDropped(t *testing.T) {
	contest := gymContest()
	end := contest.End.Unix()

	state := map[cfgym.SolveKey]cfgym.Solve{
		{Handle: "alice", Problem: "A"}: {FirstAttempt: time.Unix(end+1, 0).UTC()},
	}

	subs := finalizeSolves(state, contest, true)
	require.Empty(t, subs)
}
