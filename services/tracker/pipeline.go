package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cptracker-backend/lib/platforms/atcoder"
	"cptracker-backend/lib/platforms/codeforces"
	"cptracker-backend/lib/retry"
	"cptracker-backend/lib/scrapers/cfgym"
)

type Credentials struct {
	Username string
	Password string
}

type Config struct {
	RosterPath      string
	GymContestsPath string
	UnratedIdsPath  string

	// group slug the gym contests live under; empty means public gyms
	Group         string
	AllowUnsolved bool
	Window        Window
	Credentials   Credentials

	CodeforcesUrl string
	AtcoderUrl    string
	PageDelay     time.Duration
	Retry         retry.Policy
}

func (c Config) withDefaults() Config {
	if c.CodeforcesUrl == "" {
		c.CodeforcesUrl = codeforces.DefaultBaseUrl
	}
	if c.AtcoderUrl == "" {
		c.AtcoderUrl = atcoder.DefaultBaseUrl
	}
	if c.PageDelay == 0 {
		c.PageDelay = time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = retry.Policy{
			MaxAttempts: 10,
			Delay:       time.Second * 5,
			Retryable:   c.Retry.Retryable,
		}
	}
	return c
}

// a FAILED api verdict (e.g. unknown handle) is a real answer, not a
// transient failure, so it must not burn the retry budget
func apiRetryable(err error) bool {
	var apiErr *codeforces.ApiError
	return !errors.As(err, &apiErr)
}

// Run executes one full ingestion pass: group contest scraping first,
// then per-handle API histories in roster order, merged and sorted into
// the canonical collection. Fatal errors (exhausted retries, failed
// authentication) abort the run with no partial output.
func Run(ctx context.Context, cfg Config) ([]Submission, error) {
	cfg = cfg.withDefaults()

	roster, err := ReadRoster(cfg.RosterPath)
	if err != nil {
		return nil, err
	}
	var gymContests []GymContest
	if cfg.GymContestsPath != "" {
		gymContests, err = ReadGymContests(cfg.GymContestsPath)
		if err != nil {
			return nil, err
		}
	}
	unrated := map[int64]bool{}
	if cfg.UnratedIdsPath != "" {
		unrated, err = ReadUnratedIds(cfg.UnratedIdsPath)
		if err != nil {
			return nil, err
		}
	}

	apiPolicy := cfg.Retry
	apiPolicy.Retryable = apiRetryable

	cfClient := codeforces.NewClient(cfg.CodeforcesUrl)
	cfContests, err := retry.Do(ctx, apiPolicy, "codeforces contest.list",
		func(ctx context.Context) ([]codeforces.Contest, error) {
			return cfClient.ContestList(ctx)
		})
	if err != nil {
		return nil, err
	}
	cfRegistry := NewCodeforcesRegistry(cfContests, unrated)
	slog.Info("built codeforces registry", "contests", cfRegistry.Len())

	acClient := atcoder.NewClient(cfg.AtcoderUrl)
	acContests, err := retry.Do(ctx, apiPolicy, "atcoder contests",
		func(ctx context.Context) ([]atcoder.Contest, error) {
			return acClient.Contests(ctx)
		})
	if err != nil {
		return nil, err
	}
	acRegistry := NewAtcoderRegistry(acContests)
	slog.Info("built atcoder registry", "contests", acRegistry.Len())

	difficulties, err := retry.Do(ctx, apiPolicy, "atcoder problem models",
		func(ctx context.Context) (map[string]atcoder.ProblemModel, error) {
			return acClient.ProblemModels(ctx)
		})
	if err != nil {
		return nil, err
	}

	var submissions []Submission

	if len(gymContests) > 0 {
		gymSubs, err := func() ([]Submission, error) {
			session, err := cfgym.NewSession(ctx, cfgym.SessionOptions{
				BaseUrl: cfg.CodeforcesUrl,
			})
			if err != nil {
				return nil, err
			}
			err = session.Login(ctx, cfg.Credentials.Username, cfg.Credentials.Password)
			if err != nil {
				return nil, err
			}
			defer session.Logout(ctx)

			return ScrapeGym(ctx, session, cfg.Group, gymContests, roster, cfg.AllowUnsolved, cfg.Retry, cfg.PageDelay)
		}()
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, gymSubs...)
	}

	for _, record := range roster {
		for _, handle := range record.CodeforcesHandles {
			subs, err := FetchCodeforces(ctx, cfClient, cfRegistry, handle, cfg.Window, apiPolicy)
			if err != nil {
				return nil, err
			}
			submissions = append(submissions, subs...)
		}
		for _, handle := range record.AtcoderHandles {
			subs, err := FetchAtcoder(ctx, acClient, acRegistry, difficulties, handle, cfg.Window, apiPolicy)
			if err != nil {
				return nil, err
			}
			submissions = append(submissions, subs...)
		}
		slog.Info("processed roster entry", "username", record.Username)
	}

	SortSubmissions(submissions)
	return submissions, nil
}
