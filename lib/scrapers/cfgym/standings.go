package cfgym

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cptracker-backend/lib/htmlutil"
	"cptracker-backend/lib/retry"
	"cptracker-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// verdict attribute value Codeforces uses for an accepted submission
const VerdictAccepted = "OK"

// wall-clock layout of "format-time" cells, interpreted in timezone.Location
const timeLayout = "Jan/02/2006 15:04"

// retryableError marks transient page states: login redirects, server
// error pages, a status table the server has not rendered yet.
type retryableError struct {
	reason string
}

func (e *retryableError) Error() string {
	return e.reason
}

func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// Row is one submission line of a contest status page. Team submissions
// carry every member in Handles.
type Row struct {
	Time    time.Time
	Handles []string
	Problem string
	Verdict string
}

func (r Row) equal(other Row) bool {
	if !r.Time.Equal(other.Time) || r.Problem != other.Problem || r.Verdict != other.Verdict {
		return false
	}
	if len(r.Handles) != len(other.Handles) {
		return false
	}
	for i := range r.Handles {
		if r.Handles[i] != other.Handles[i] {
			return false
		}
	}
	return true
}

func samePage(a, b []Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}

func lastPathSegment(href string) string {
	href = strings.TrimRight(href, "/")
	idx := strings.LastIndexByte(href, '/')
	if idx < 0 {
		return href
	}
	return href[idx+1:]
}

func parseStatusRows(doc *goquery.Document) ([]Row, error) {
	table := doc.Find("table.status-frame-datatable")
	if len(table.Nodes) == 0 {
		if len(doc.Find("form#enterForm").Nodes) > 0 || len(doc.Find("input[name=handleOrEmail]").Nodes) > 0 {
			return nil, &retryableError{reason: "redirected to the login page"}
		}
		return nil, &retryableError{reason: "status table missing from page"}
	}

	var rows []Row
	var parseErr error
	table.Find("tr[data-submission-id]").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		var timeText string
		if cell := tr.Find("span.format-time").First(); len(cell.Nodes) > 0 {
			timeText = htmlutil.CleanText(htmlutil.GetText(cell.Nodes[0]))
		}
		t, err := time.ParseInLocation(timeLayout, timeText, timezone.Location)
		if err != nil {
			parseErr = fmt.Errorf("parse row time %q: %w", timeText, err)
			return false
		}

		var handles []string
		tr.Find(`a[href*="/profile/"]`).Each(func(_ int, a *goquery.Selection) {
			handle := lastPathSegment(a.AttrOr("href", ""))
			if handle != "" {
				handles = append(handles, handle)
			}
		})

		problem := lastPathSegment(tr.Find(`a[href*="/problem/"]`).First().AttrOr("href", ""))
		verdict := tr.Find("span.submissionVerdictWrapper").First().AttrOr("submissionverdict", "")

		rows = append(rows, Row{
			Time:    t.UTC(),
			Handles: handles,
			Problem: problem,
			Verdict: verdict,
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return rows, nil
}

func statusPath(group, contest string) string {
	if group != "" {
		return fmt.Sprintf("/group/%s/contest/%s/status", group, contest)
	}
	return fmt.Sprintf("/gym/%s/status", contest)
}

// StatusPage fetches one page of a contest's submission list, newest
// judged first. Transient failures come back as retryable errors.
func (s *Session) StatusPage(ctx context.Context, group, contest string, index int) ([]Row, error) {
	ctx, span := tracer.Start(ctx, "session:StatusPage")
	defer span.End()
	span.SetAttributes(
		attribute.String("contest", contest),
		attribute.Int("page", index),
	)

	res, err := s.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"pageIndex": strconv.Itoa(index),
			"order":     "BY_JUDGED_DESC",
		}).
		Get(statusPath(group, contest))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch status page")
		return nil, err
	}
	if res.StatusCode() >= 500 {
		return nil, &retryableError{reason: fmt.Sprintf("server error page: status %d", res.StatusCode())}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse status page html")
		return nil, err
	}

	rows, err := parseStatusRows(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract status rows")
		return nil, err
	}
	return rows, nil
}

// Solve tracks the earliest activity of one roster member on one
// problem; zero times mean "never happened".
type Solve struct {
	FirstAttempt time.Time
	FirstAccept  time.Time
}

type SolveKey struct {
	Handle  string
	Problem string
}

type ScrapeOptions struct {
	// group slug; empty means a public gym contest
	Group   string
	Contest string
	// rows older than this end pagination: the status list is ordered
	// newest first, so everything past this point is out of scope
	Start time.Time
	// lower-cased platform handle -> the spelling output records carry
	Roster map[string]string
	// when false only accepted rows are recorded
	AllowUnsolved bool
	// politeness delay between page fetches
	PageDelay time.Duration
	Retry     retry.Policy
}

func minTime(existing, t time.Time) time.Time {
	if existing.IsZero() || t.Before(existing) {
		return t
	}
	return existing
}

// ScrapeContest paginates one contest's status view and reduces it to
// per (user, problem) first-attempt/first-accept times. Page order is
// strictly increasing and every merge takes the minimum timestamp, so
// the result does not depend on how the server duplicates rows across
// pages. A page fetch that exhausts its retry budget fails the whole
// call: a partially scraped contest would silently corrupt the
// earliest-solve times.
func (s *Session) ScrapeContest(ctx context.Context, opts ScrapeOptions) (map[SolveKey]Solve, error) {
	ctx, span := tracer.Start(ctx, "session:ScrapeContest")
	defer span.End()
	span.SetAttributes(attribute.String("contest", opts.Contest))

	state := map[SolveKey]Solve{}

	var prev []Row
	for index := 1; ; index++ {
		rows, err := retry.Do(ctx, opts.Retry,
			fmt.Sprintf("contest %s status page %d", opts.Contest, index),
			func(ctx context.Context) ([]Row, error) {
				return s.StatusPage(ctx, opts.Group, opts.Contest, index)
			})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch status page")
			return nil, err
		}

		// an empty page or a server-side echo of the previous page
		// means the listing is exhausted
		if len(rows) == 0 || samePage(prev, rows) {
			break
		}

		reachedStart := false
		for _, row := range rows {
			if row.Time.Before(opts.Start) {
				reachedStart = true
				break
			}
			if row.Verdict != VerdictAccepted && !opts.AllowUnsolved {
				continue
			}
			for _, handle := range row.Handles {
				username, ok := opts.Roster[strings.ToLower(handle)]
				if !ok {
					continue
				}
				key := SolveKey{Handle: username, Problem: row.Problem}
				solve := state[key]
				if row.Verdict == VerdictAccepted {
					solve.FirstAccept = minTime(solve.FirstAccept, row.Time)
				} else {
					solve.FirstAttempt = minTime(solve.FirstAttempt, row.Time)
				}
				state[key] = solve
			}
		}
		if reachedStart {
			break
		}

		slog.InfoContext(ctx, "scraped status page",
			"contest", opts.Contest,
			"page", index,
			"rows", len(rows),
		)

		prev = rows
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.PageDelay):
		}
	}

	return state, nil
}
