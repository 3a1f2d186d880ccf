package cfgym

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cptracker-backend/lib/retry"
	"cptracker-backend/lib/telemetry"
	"cptracker-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func statusRow(id int64, tm string, handles []string, problem, verdict string) string {
	var parties strings.Builder
	for _, h := range handles {
		fmt.Fprintf(&parties, `<a href="/profile/%s">%s</a> `, h, h)
	}
	return fmt.Sprintf(`<tr data-submission-id="%d">
<td><a href="/gym/1/submission/%d">%d</a></td>
<td><span class="format-time" data-locale="en">%s</span></td>
<td class="status-party-cell">%s</td>
<td><a href="/gym/1/problem/%s">%s - Some Problem</a></td>
<td><span class="submissionVerdictWrapper" submissionverdict="%s">verdict</span></td>
</tr>`, id, id, id, tm, parties.String(), problem, problem, verdict)
}

func statusPageHtml(rows ...string) string {
	return fmt.Sprintf(`<html><body>
<div class="datatable">
<table class="status-frame-datatable">
<tr><th>#</th><th>When</th><th>Who</th><th>Problem</th><th>Verdict</th></tr>
%s
</table>
</div>
</body></html>`, strings.Join(rows, "\n"))
}

const loginPageHtml = `<html><body>
<form id="enterForm" action="/enter">
<input name="handleOrEmail"/><input name="password" type="password"/>
</form>
</body></html>`

func moscow(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, timezone.Location)
}

func newTestSession(t *testing.T, url string) *Session {
	session, err := NewSession(context.Background(), SessionOptions{BaseUrl: url})
	require.NoError(t, err)
	return session
}

func TestParseStatusRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statusPageHtml(
			statusRow(11, "Jan/05/2024 10:40", []string{"Alice", "bob"}, "A", "OK"),
			statusRow(10, "Jan/05/2024 10:31", []string{"alice"}, "B", "WRONG_ANSWER"),
		))
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	rows, err := session.StatusPage(context.Background(), "", "1", 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, moscow(5, 10, 40).UTC(), rows[0].Time)
	require.Equal(t, []string{"Alice", "bob"}, rows[0].Handles)
	require.Equal(t, "A", rows[0].Problem)
	require.Equal(t, "OK", rows[0].Verdict)

	require.Equal(t, moscow(5, 10, 31).UTC(), rows[1].Time)
	require.Equal(t, []string{"alice"}, rows[1].Handles)
	require.Equal(t, "WRONG_ANSWER", rows[1].Verdict)
}

func TestStatusPageLoginRedirectIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginPageHtml)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	_, err := session.StatusPage(context.Background(), "", "1", 1)
	require.Error(t, err)
	require.True(t, IsRetryable(err))
}

func TestStatusPageServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	_, err := session.StatusPage(context.Background(), "", "1", 1)
	require.Error(t, err)
	require.True(t, IsRetryable(err))
}

func TestScrapeContestStopsOnDuplicatePage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/cfgym")
	defer cleanup()

	page := statusPageHtml(
		statusRow(11, "Jan/05/2024 10:40", []string{"Alice", "bob"}, "A", "OK"),
		statusRow(10, "Jan/05/2024 10:31", []string{"alice"}, "A", "WRONG_ANSWER"),
		statusRow(9, "Jan/05/2024 10:20", []string{"charlie"}, "B", "OK"),
	)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// the server keeps echoing the same page for every index
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	state, err := session.ScrapeContest(context.Background(), ScrapeOptions{
		Contest:       "1",
		Start:         moscow(5, 10, 0).UTC(),
		Roster:        map[string]string{"alice": "Alice"},
		AllowUnsolved: true,
		Retry:         retry.Policy{MaxAttempts: 1},
	})
	require.NoError(t, err)
	require.Equal(t, 2, requests)

	// only the rostered member is tracked, and the team member not on
	// the roster contributes nothing
	require.Len(t, state, 1)
	solve := state[SolveKey{Handle: "Alice", Problem: "A"}]
	require.Equal(t, moscow(5, 10, 40).UTC(), solve.FirstAccept)
	require.Equal(t, moscow(5, 10, 31).UTC(), solve.FirstAttempt)
}

func TestScrapeContestSkipsRejectedRowsWithoutAllowUnsolved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageIndex") == "1" {
			fmt.Fprint(w, statusPageHtml(
				statusRow(10, "Jan/05/2024 10:31", []string{"alice"}, "A", "WRONG_ANSWER"),
			))
			return
		}
		fmt.Fprint(w, statusPageHtml())
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	state, err := session.ScrapeContest(context.Background(), ScrapeOptions{
		Contest: "1",
		Start:   moscow(5, 10, 0).UTC(),
		Roster:  map[string]string{"alice": "alice"},
		Retry:   retry.Policy{MaxAttempts: 1},
	})
	require.NoError(t, err)
	require.Empty(t, state)
}

func TestScrapeContestStopsAtRowsBeforeContestStart(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, statusPageHtml(
			statusRow(11, "Jan/05/2024 10:40", []string{"alice"}, "A", "OK"),
			// an older run of the same contest, before this window
			statusRow(2, "Jan/01/2024 12:00", []string{"alice"}, "A", "OK"),
		))
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	state, err := session.ScrapeContest(context.Background(), ScrapeOptions{
		Contest: "1",
		Start:   moscow(5, 10, 0).UTC(),
		Roster:  map[string]string{"alice": "alice"},
		Retry:   retry.Policy{MaxAttempts: 1},
	})
	require.NoError(t, err)
	require.Equal(t, 1, requests)

	solve := state[SolveKey{Handle: "alice", Problem: "A"}]
	require.Equal(t, moscow(5, 10, 40).UTC(), solve.FirstAccept)
}

func TestScrapeContestFailsOncePagesExhaustRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	_, err := session.ScrapeContest(context.Background(), ScrapeOptions{
		Contest: "1",
		Start:   moscow(5, 10, 0).UTC(),
		Roster:  map[string]string{"alice": "alice"},
		Retry:   retry.Policy{MaxAttempts: 3, Delay: time.Millisecond},
	})
	require.Error(t, err)
	require.ErrorContains(t, err, "retry budget exhausted")
}
