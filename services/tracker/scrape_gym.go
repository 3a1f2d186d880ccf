package tracker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"cptracker-backend/lib/retry"
	"cptracker-backend/lib/scrapers/cfgym"
)

// rosterLookup maps lower-cased Codeforces handles to their roster
// spelling, which is what the output records carry.
func rosterLookup(roster []HandleRecord) map[string]string {
	lookup := map[string]string{}
	for _, record := range roster {
		for _, handle := range record.CodeforcesHandles {
			lookup[strings.ToLower(handle)] = handle
		}
	}
	return lookup
}

// finalizeSolves turns one contest's solve state into canonical
// records. Each (user, problem) contributes at most two: the first
// failed attempt (when attempts are tracked) and the first accept.
// Rating holds the grace-window flag on this source.
func finalizeSolves(state map[cfgym.SolveKey]cfgym.Solve, contest GymContest, allowUnsolved bool) []Submission {
	endUnix := contest.End.Unix()

	graceFlag := func(t int64) int64 {
		if InGrace(t, endUnix) {
			return 1
		}
		return 0
	}

	var out []Submission
	for key, solve := range state {
		if allowUnsolved && !solve.FirstAttempt.IsZero() {
			t := solve.FirstAttempt.Unix()
			// attempts only count when made during the contest itself
			if t <= endUnix {
				out = append(out, Submission{
					Platform:     PlatformCodeforces,
					Handle:       key.Handle,
					ContestId:    contest.Name,
					ProblemId:    key.Problem,
					Rating:       graceFlag(t),
					Division:     contest.Division,
					SubmissionId: 0,
					Time:         t,
					Solved:       false,
					Upsolved:     Upsolved(t, endUnix),
				})
			}
		}
		if !solve.FirstAccept.IsZero() {
			t := solve.FirstAccept.Unix()
			// accepts count up to the end of the grace window
			if InGrace(t, endUnix) {
				out = append(out, Submission{
					Platform:     PlatformCodeforces,
					Handle:       key.Handle,
					ContestId:    contest.Name,
					ProblemId:    key.Problem,
					Rating:       graceFlag(t),
					Division:     contest.Division,
					SubmissionId: 0,
					Time:         t,
					Solved:       true,
					Upsolved:     Upsolved(t, endUnix),
				})
			}
		}
	}
	return out
}

// ScrapeGym walks every configured group contest through the
// authenticated session. A contest whose pagination cannot complete
// fails the whole call; a partial scrape would silently drop solves.
func ScrapeGym(ctx context.Context, session *cfgym.Session, group string, contests []GymContest, roster []HandleRecord, allowUnsolved bool, policy retry.Policy, pageDelay time.Duration) ([]Submission, error) {
	lookup := rosterLookup(roster)

	var out []Submission
	for _, contest := range contests {
		state, err := session.ScrapeContest(ctx, cfgym.ScrapeOptions{
			Group:         group,
			Contest:       contest.Name,
			Start:         contest.Start,
			Roster:        lookup,
			AllowUnsolved: allowUnsolved,
			PageDelay:     pageDelay,
			Retry:         policy,
		})
		if err != nil {
			return nil, err
		}

		subs := finalizeSolves(state, contest, allowUnsolved)
		slog.Info("scraped group contest",
			"contest", contest.Name,
			"participants", len(state),
			"records", len(subs),
		)
		out = append(out, subs...)
	}
	return out, nil
}
