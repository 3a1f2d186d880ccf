// Package atcoder pulls AtCoder contest and submission data from the
// kenkoooo.com mirror, which serves what the official site has no API for.
package atcoder

import (
	"context"
	"fmt"
	"time"

	"cptracker-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("platforms/atcoder")

const DefaultBaseUrl = "https://kenkoooo.com/atcoder"

// the v3 submissions endpoint caps each response at this many rows
const submissionPageLimit = 500

type Client struct {
	http *resty.Client
}

func NewClient(baseUrl string) *Client {
	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, "platforms/atcoder/http")

	return &Client{http: client}
}

type Contest struct {
	Id               string `json:"id"`
	Title            string `json:"title"`
	StartEpochSecond int64  `json:"start_epoch_second"`
	DurationSecond   int64  `json:"duration_second"`
}

type Submission struct {
	Id          int64  `json:"id"`
	EpochSecond int64  `json:"epoch_second"`
	ProblemId   string `json:"problem_id"`
	ContestId   string `json:"contest_id"`
	UserId      string `json:"user_id"`
	// "AC" on success, judge-specific failure codes otherwise
	Result string `json:"result"`
}

type ProblemModel struct {
	Difficulty *int64 `json:"difficulty"`
}

func (c *Client) Contests(ctx context.Context) ([]Contest, error) {
	ctx, span := tracer.Start(ctx, "client:Contests")
	defer span.End()

	var contests []Contest
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&contests).
		Get("/resources/contests.json")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch contests")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("fetch contests: status %d", res.StatusCode())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return contests, nil
}

func (c *Client) ProblemModels(ctx context.Context) (map[string]ProblemModel, error) {
	ctx, span := tracer.Start(ctx, "client:ProblemModels")
	defer span.End()

	var models map[string]ProblemModel
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&models).
		Get("/resources/problem-models.json")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch problem models")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("fetch problem models: status %d", res.StatusCode())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return models, nil
}

// UserSubmissions walks the paged v3 endpoint starting at fromSecond and
// returns the user's full history from that point on, oldest first.
func (c *Client) UserSubmissions(ctx context.Context, user string, fromSecond int64) ([]Submission, error) {
	ctx, span := tracer.Start(ctx, "client:UserSubmissions")
	defer span.End()

	var all []Submission
	from := fromSecond
	for {
		var page []Submission
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"user":        user,
				"from_second": fmt.Sprint(from),
			}).
			SetResult(&page).
			Get("/atcoder-api/v3/user/submissions")
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch user submissions")
			return nil, err
		}
		if res.IsError() {
			err := fmt.Errorf("fetch user submissions: status %d", res.StatusCode())
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		all = append(all, page...)
		if len(page) < submissionPageLimit {
			return all, nil
		}
		from = page[len(page)-1].EpochSecond + 1
	}
}
