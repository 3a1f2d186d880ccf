package tracker

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"cptracker-backend/lib/platforms/codeforces"
	"cptracker-backend/lib/retry"
)

const codeforcesAccepted = "OK"

type codeforcesKey struct {
	contest int64
	problem string
}

func validateCodeforces(subs []codeforces.Submission, reg *Registry, window Window) []codeforces.Submission {
	var out []codeforces.Submission
	for _, s := range subs {
		// mid-contest calls return entries still in the judging queue
		if s.Verdict != codeforcesAccepted {
			continue
		}
		if !window.Contains(s.CreationTimeSeconds) {
			continue
		}
		if !codeforcesParticipantTypes[s.Author.ParticipantType] {
			continue
		}
		if !reg.Known(strconv.FormatInt(s.Problem.ContestId, 10)) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// user.status lists newest first; scanning from the back keeps the
// chronologically earliest accepted submission per problem.
func dedupCodeforces(subs []codeforces.Submission) []codeforces.Submission {
	var out []codeforces.Submission
	seen := map[codeforcesKey]bool{}
	for i := len(subs) - 1; i >= 0; i-- {
		s := subs[i]
		key := codeforcesKey{contest: s.Problem.ContestId, problem: s.Problem.Index}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func transformCodeforces(subs []codeforces.Submission, reg *Registry, handle string) []Submission {
	out := make([]Submission, 0, len(subs))
	for _, s := range subs {
		contestId := strconv.FormatInt(s.Problem.ContestId, 10)
		meta, ok := reg.Get(contestId)
		if !ok {
			continue
		}

		rating := int64(-1)
		if s.Problem.Rating != nil {
			rating = *s.Problem.Rating
		}

		out = append(out, Submission{
			Platform:     PlatformCodeforces,
			Handle:       handle,
			ContestId:    contestId,
			ProblemId:    s.Problem.Index,
			Rating:       rating,
			Division:     meta.Division,
			SubmissionId: s.Id,
			Time:         s.CreationTimeSeconds,
			Solved:       true,
			Upsolved:     Upsolved(s.CreationTimeSeconds, meta.EndTime),
		})
	}
	return out
}

// FetchCodeforces pulls one handle's full submission history and
// reduces it to canonical solves. A handle the API rejects is logged
// and skipped; transport failures go through the retry policy and
// propagate once it is exhausted.
func FetchCodeforces(ctx context.Context, client *codeforces.Client, reg *Registry, handle string, window Window, policy retry.Policy) ([]Submission, error) {
	raw, err := retry.Do(ctx, policy, "codeforces user.status "+handle,
		func(ctx context.Context) ([]codeforces.Submission, error) {
			return client.UserStatus(ctx, handle)
		})
	var apiErr *codeforces.ApiError
	if errors.As(err, &apiErr) {
		slog.Warn("skipping codeforces handle", "handle", handle, "err", apiErr)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	subs := transformCodeforces(dedupCodeforces(validateCodeforces(raw, reg, window)), reg, handle)
	slog.Info("fetched codeforces history", "handle", handle, "solves", len(subs))
	return subs, nil
}
