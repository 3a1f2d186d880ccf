package atcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContestsAndProblemModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/resources/contests.json":
			fmt.Fprint(w, `[{"id": "abc300", "title": "AtCoder Beginner Contest 300", "start_epoch_second": 1700000000, "duration_second": 6000}]`)
		case "/resources/problem-models.json":
			fmt.Fprint(w, `{"abc300_a": {"difficulty": 12}, "abc300_b": {}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)

	contests, err := client.Contests(context.Background())
	require.NoError(t, err)
	require.Len(t, contests, 1)
	require.Equal(t, "abc300", contests[0].Id)

	models, err := client.ProblemModels(context.Background())
	require.NoError(t, err)
	require.NotNil(t, models["abc300_a"].Difficulty)
	require.Equal(t, int64(12), *models["abc300_a"].Difficulty)
	require.Nil(t, models["abc300_b"].Difficulty)
}

func TestUserSubmissionsWalksPages(t *testing.T) {
	// two full pages followed by a short one
	total := submissionPageLimit*2 + 3

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.Equal(t, "/atcoder-api/v3/user/submissions", r.URL.Path)
		require.Equal(t, "someone", r.URL.Query().Get("user"))

		from, err := strconv.ParseInt(r.URL.Query().Get("from_second"), 10, 64)
		require.NoError(t, err)

		var page []Submission
		for s := from; s < int64(total) && len(page) < submissionPageLimit; s++ {
			page = append(page, Submission{
				Id:          s,
				EpochSecond: s,
				ProblemId:   "abc300_a",
				ContestId:   "abc300",
				UserId:      "someone",
				Result:      "AC",
			})
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	submissions, err := client.UserSubmissions(context.Background(), "someone", 0)
	require.NoError(t, err)
	require.Len(t, submissions, total)
	require.Equal(t, int64(0), submissions[0].EpochSecond)
	require.Equal(t, int64(total-1), submissions[len(submissions)-1].EpochSecond)
}
