package tracker

import (
	"context"
	"log/slog"

	"cptracker-backend/lib/platforms/atcoder"
	"cptracker-backend/lib/retry"
)

const atcoderAccepted = "AC"

func validateAtcoder(subs []atcoder.Submission, reg *Registry, window Window) []atcoder.Submission {
	var out []atcoder.Submission
	for _, s := range subs {
		if s.Result != atcoderAccepted {
			continue
		}
		if !window.Contains(s.EpochSecond) {
			continue
		}
		if !reg.Known(s.ContestId) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// the submission list arrives oldest first, so the first accepted entry
// per problem is already the earliest one
func dedupAtcoder(subs []atcoder.Submission) []atcoder.Submission {
	var out []atcoder.Submission
	seen := map[string]bool{}
	for _, s := range subs {
		if seen[s.ProblemId] {
			continue
		}
		seen[s.ProblemId] = true
		out = append(out, s)
	}
	return out
}

func transformAtcoder(subs []atcoder.Submission, reg *Registry, difficulties map[string]atcoder.ProblemModel, handle string) []Submission {
	out := make([]Submission, 0, len(subs))
	for _, s := range subs {
		meta, ok := reg.Get(s.ContestId)
		if !ok {
			continue
		}

		rating := int64(-1)
		if model, ok := difficulties[s.ProblemId]; ok && model.Difficulty != nil {
			rating = *model.Difficulty
		}

		out = append(out, Submission{
			Platform:     PlatformAtcoder,
			Handle:       handle,
			ContestId:    s.ContestId,
			ProblemId:    s.ProblemId,
			Rating:       rating,
			Division:     meta.Division,
			SubmissionId: s.Id,
			Time:         s.EpochSecond,
			Solved:       true,
			Upsolved:     Upsolved(s.EpochSecond, meta.EndTime),
		})
	}
	return out
}

// FetchAtcoder pulls one user's history from the kenkoooo mirror. An
// unknown user simply has no submissions there, so the empty case needs
// no special handling.
func FetchAtcoder(ctx context.Context, client *atcoder.Client, reg *Registry, difficulties map[string]atcoder.ProblemModel, handle string, window Window, policy retry.Policy) ([]Submission, error) {
	raw, err := retry.Do(ctx, policy, "atcoder submissions "+handle,
		func(ctx context.Context) ([]atcoder.Submission, error) {
			return client.UserSubmissions(ctx, handle, window.Start)
		})
	if err != nil {
		return nil, err
	}

	subs := transformAtcoder(dedupAtcoder(validateAtcoder(raw, reg, window)), reg, difficulties, handle)
	slog.Info("fetched atcoder history", "handle", handle, "solves", len(subs))
	return subs, nil
}
