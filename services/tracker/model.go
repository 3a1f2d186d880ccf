// Package tracker turns raw per-platform submission data into one
// canonical, deduplicated solve history for a roster of club members.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"cptracker-backend/lib/timezone"
)

const PlatformCodeforces = "codeforces"
const PlatformAtcoder = "atcoder"

// Submission is the pipeline's output unit: one record per
// (platform, handle, contest, problem, solved-state). Rating carries the
// problem difficulty on API sources and the grace-window flag on group
// contest sources.
type Submission struct {
	Platform     string `json:"platform"`
	Handle       string `json:"handle"`
	ContestId    string `json:"contest_id"`
	ProblemId    string `json:"problem_id"`
	Rating       int64  `json:"rating"`
	Division     int64  `json:"division"`
	SubmissionId int64  `json:"submission_id"`
	Time         int64  `json:"time"`
	Solved       bool   `json:"solved"`
	Upsolved     bool   `json:"upsolved"`
}

// SortSubmissions orders by (platform, handle, time) as the output
// contract requires; the remaining fields tiebreak so that re-running on
// identical input produces byte-identical output.
func SortSubmissions(subs []Submission) {
	slices.SortFunc(subs, func(a, b Submission) int {
		if c := strings.Compare(a.Platform, b.Platform); c != 0 {
			return c
		}
		if c := strings.Compare(a.Handle, b.Handle); c != 0 {
			return c
		}
		if a.Time != b.Time {
			if a.Time < b.Time {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.ContestId, b.ContestId); c != 0 {
			return c
		}
		if c := strings.Compare(a.ProblemId, b.ProblemId); c != 0 {
			return c
		}
		if a.Solved != b.Solved {
			if a.Solved {
				return 1
			}
			return -1
		}
		return 0
	})
}

// HandleRecord is one roster row: a club member and their platform
// handles. Produced by external tooling, read-only here.
type HandleRecord struct {
	Username          string   `json:"username"`
	CodeforcesHandles []string `json:"codeforces_handles"`
	AtcoderHandles    []string `json:"atcoder_handles"`
}

func ReadRoster(path string) ([]HandleRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var roster []HandleRecord
	err = json.Unmarshal(raw, &roster)
	if err != nil {
		return nil, fmt.Errorf("decode roster %s: %w", path, err)
	}
	return roster, nil
}

// wall-clock layout group contest definitions are written in,
// interpreted in timezone.Location
const gymTimeLayout = "Jan/02/2006 15:04"

// GymContest is one group/gym contest to scrape.
type GymContest struct {
	Name     string
	Start    time.Time
	End      time.Time
	Division int64
}

func (c *GymContest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     string `json:"name"`
		Start    string `json:"start"`
		End      string `json:"end"`
		Division int64  `json:"division"`
	}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	start, err := time.ParseInLocation(gymTimeLayout, raw.Start, timezone.Location)
	if err != nil {
		return fmt.Errorf("contest %q: parse start %q: %w", raw.Name, raw.Start, err)
	}
	end, err := time.ParseInLocation(gymTimeLayout, raw.End, timezone.Location)
	if err != nil {
		return fmt.Errorf("contest %q: parse end %q: %w", raw.Name, raw.End, err)
	}

	c.Name = raw.Name
	c.Start = start.UTC()
	c.End = end.UTC()
	c.Division = raw.Division
	return nil
}

func ReadGymContests(path string) ([]GymContest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var contests []GymContest
	err = json.Unmarshal(raw, &contests)
	if err != nil {
		return nil, fmt.Errorf("decode gym contests %s: %w", path, err)
	}
	return contests, nil
}
