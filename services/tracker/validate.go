package tracker

// Shared classification rules. Both sources use the same boundaries: a
// submission at exactly the contest end is in-contest, and the rating
// grace window is inclusive of its last second.

// seconds after a contest's end during which a solve still counts
// toward the scoring period
const GraceWindowSeconds = int64(7 * 24 * 60 * 60)

func Upsolved(t, contestEnd int64) bool {
	return t > contestEnd
}

func InGrace(t, contestEnd int64) bool {
	return t <= contestEnd+GraceWindowSeconds
}

// Window is the run's configured ingestion range in unix seconds; a
// zero bound is open.
type Window struct {
	Start int64
	End   int64
}

func (w Window) Contains(t int64) bool {
	if w.Start != 0 && t < w.Start {
		return false
	}
	if w.End != 0 && t > w.End {
		return false
	}
	return true
}

// participant classifications whose submissions count on Codeforces
var codeforcesParticipantTypes = map[string]bool{
	"CONTESTANT":         true,
	"OUT_OF_COMPETITION": true,
	"PRACTICE":           true,
	"VIRTUAL":            true,
}
