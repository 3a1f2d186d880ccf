// Package cfgym scrapes gym and group contest standings off Codeforces
// through an authenticated browser-like session. There is no API for
// these pages, so everything here works against rendered HTML.
package cfgym

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"cptracker-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/cfgym")

var ErrLoginFailed = fmt.Errorf("codeforces rejected the provided credentials")
var ErrCsrfToken = fmt.Errorf("could not find a csrf token on the login page")

const loginPath = "/enter"

type Session struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type SessionOptions struct {
	BaseUrl string
}

func NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, "scrapers/cfgym/http")

	s := &Session{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return s, nil
}

// fetches the login page, solving the anti-bot challenge first if the
// server serves it instead of the real page
func (s *Session) loginPage(ctx context.Context) (*goquery.Document, error) {
	res, err := s.Http.R().
		SetContext(ctx).
		Get(loginPath)
	if err != nil {
		return nil, err
	}
	body := res.Body()

	if isChallengePage(body) {
		token, err := solveChallenge(body)
		if err != nil {
			return nil, err
		}
		s.Http.SetCookie(&http.Cookie{Name: "RCPC", Value: token})

		res, err = s.Http.R().
			SetContext(ctx).
			Get(loginPath)
		if err != nil {
			return nil, err
		}
		body = res.Body()
	}

	return goquery.NewDocumentFromReader(bytes.NewBuffer(body))
}

func (s *Session) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "session:Login")
	defer span.End()

	doc, err := s.loginPage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}

	csrf := doc.Find("span.csrf-token").AttrOr("data-csrf", "")
	if csrf == "" {
		span.SetStatus(codes.Error, ErrCsrfToken.Error())
		return ErrCsrfToken
	}

	res, err := s.Http.R().
		SetContext(ctx).
		SetHeader("X-Csrf-Token", csrf).
		SetFormData(map[string]string{
			"csrf_token":    csrf,
			"action":        "enter",
			"handleOrEmail": username,
			"password":      password,
		}).
		Post(loginPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse post-login page")
		return err
	}
	if len(doc.Find(`a[href*="logout"]`).Nodes) == 0 {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return ErrLoginFailed
	}

	return nil
}

// Logout is best-effort; a session the server keeps around a little
// longer is harmless, so failures are only logged.
func (s *Session) Logout(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "session:Logout")
	defer span.End()

	res, err := s.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch front page for logout", "err", err)
		return
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse front page for logout", "err", err)
		return
	}

	href := doc.Find(`a[href*="logout"]`).AttrOr("href", "")
	if href == "" {
		return
	}
	_, err = s.Http.R().
		SetContext(ctx).
		Get(href)
	if err != nil {
		slog.WarnContext(ctx, "logout request failed", "err", err)
	}
}
