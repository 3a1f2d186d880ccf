// Package codeforces is a thin client for the public Codeforces REST API
// (https://codeforces.com/apiHelp). Only the two read-only endpoints the
// tracker needs are implemented.
package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cptracker-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("platforms/codeforces")

const DefaultBaseUrl = "https://codeforces.com"

// submissions to pull per user.status call; effectively "everything"
const userStatusCount = 100000

type Client struct {
	http *resty.Client
}

func NewClient(baseUrl string) *Client {
	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, "platforms/codeforces/http")

	return &Client{http: client}
}

type Contest struct {
	Id                  int64  `json:"id"`
	Name                string `json:"name"`
	Phase               string `json:"phase"`
	StartTimeSeconds    int64  `json:"startTimeSeconds"`
	DurationSeconds     int64  `json:"durationSeconds"`
	RelativeTimeSeconds int64  `json:"relativeTimeSeconds"`
}

type Problem struct {
	ContestId int64  `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	// Codeforces omits the rating on unrated problems
	Rating *int64 `json:"rating"`
}

type Member struct {
	Handle string `json:"handle"`
}

type Party struct {
	ParticipantType string   `json:"participantType"`
	Members         []Member `json:"members"`
}

type Submission struct {
	Id                  int64   `json:"id"`
	ContestId           int64   `json:"contestId"`
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	Problem             Problem `json:"problem"`
	Author              Party   `json:"author"`
	// empty while the submission is still in the judging queue
	Verdict string `json:"verdict"`
}

// every API response is wrapped in this envelope; Status is "OK" or "FAILED"
type apiResponse struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

// ApiError is a well-formed "FAILED" response, e.g. an unknown handle.
// Transport and decode failures are returned as plain errors instead.
type ApiError struct {
	Status  string
	Comment string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("api status %q: %s", e.Status, e.Comment)
}

func unwrap[T any](body []byte) (T, error) {
	var out T

	var envelope apiResponse
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return out, fmt.Errorf("decode api envelope: %w", err)
	}
	if envelope.Status != "OK" {
		return out, &ApiError{Status: envelope.Status, Comment: envelope.Comment}
	}

	err = json.Unmarshal(envelope.Result, &out)
	if err != nil {
		return out, fmt.Errorf("decode api result: %w", err)
	}
	return out, nil
}

func (c *Client) ContestList(ctx context.Context) ([]Contest, error) {
	ctx, span := tracer.Start(ctx, "client:ContestList")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get("/api/contest.list")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch contest list")
		return nil, err
	}

	contests, err := unwrap[[]Contest](res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode contest list")
		return nil, err
	}
	return contests, nil
}

func (c *Client) UserStatus(ctx context.Context, handle string) ([]Submission, error) {
	ctx, span := tracer.Start(ctx, "client:UserStatus")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"handle": handle,
			"from":   "1",
			"count":  fmt.Sprint(userStatusCount),
		}).
		Get("/api/user.status")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch user status")
		return nil, err
	}

	submissions, err := unwrap[[]Submission](res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode user status")
		return nil, err
	}
	return submissions, nil
}
