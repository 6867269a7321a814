package sysaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sysaid-bridge/lib/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

type CollectorOptions struct {
	BaseUrl string
	// path of the service record listing, defaults to /api/v1/sr
	Path           string
	RequestTimeout time.Duration
	// hard cap on the number of pages fetched in one run
	MaxPages int
	// retries of transport errors and 5xx responses, 0 disables retrying
	RetryCount int
	// page requests per second, <= 0 means unlimited
	RequestsPerSecond float64
	UserAgent         string
	CloudflareBypass  bool
}

type Collector struct {
	client   *resty.Client
	limiter  *rate.Limiter
	path     string
	maxPages int
}

func NewCollector(opts CollectorOptions) (*Collector, error) {
	if opts.BaseUrl == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if opts.Path == "" {
		opts.Path = "/api/v1/sr"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10000
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	// only the cookies harvested at login are sent
	client.SetCookieJar(nil)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetHeader("accept", "application/json")
	client.SetTimeout(opts.RequestTimeout)
	client.SetRetryCount(opts.RetryCount)
	client.SetRetryWaitTime(250 * time.Millisecond)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res.StatusCode() >= 500
	})
	telemetry.InstrumentResty(client, "sysaid.lib.scrapers.sysaid/http")

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Collector{
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		path:     opts.Path,
		maxPages: opts.MaxPages,
	}, nil
}

// Http exposes the underlying client so callers can attach extra
// instrumentation (ex. request dumps).
func (c *Collector) Http() *resty.Client {
	return c.client
}

type collectState int

const (
	stateFetching collectState = iota
	stateExhausted
	stateFailed
)

func (s collectState) String() string {
	switch s {
	case stateFetching:
		return "fetching"
	case stateExhausted:
		return "exhausted"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// CollectAll pages through every service record visible to the session,
// starting at offset 0 and advancing by pageSize until an empty page. any
// other outcome fails the whole collection, partial results are discarded.
func (c *Collector) CollectAll(ctx context.Context, jar CookieJar, pageSize int) ([]RawRecord, error) {
	ctx, span := tracer.Start(ctx, "CollectAll")
	defer span.End()

	if pageSize <= 0 {
		span.SetStatus(codes.Error, ErrInvalidPageSize.Error())
		return nil, &FetchError{Err: ErrInvalidPageSize}
	}

	var records []RawRecord
	var err error
	offset := 0
	pages := 0
	state := stateFetching

	for state == stateFetching {
		if pages >= c.maxPages {
			err = &FetchError{Offset: offset, Err: ErrPageLimitExceeded}
			state = stateFailed
			break
		}

		var page []RawRecord
		page, err = c.fetchPage(ctx, jar, pageSize, offset)
		pages++
		switch {
		case err != nil:
			state = stateFailed
		case len(page) == 0:
			state = stateExhausted
		default:
			records = append(records, page...)
			offset += pageSize
		}
	}

	span.SetAttributes(
		attribute.Int("pages", pages),
		attribute.Int("records", len(records)),
		attribute.String("state", state.String()),
	)
	if state == stateFailed {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to collect service records")
		return nil, err
	}

	slog.DebugContext(ctx, "collected service records", "pages", pages, "records", len(records))
	return records, nil
}

func (c *Collector) fetchPage(ctx context.Context, jar CookieJar, pageSize, offset int) ([]RawRecord, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, &FetchError{Offset: offset, Err: err}
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("cookie", jar.Header()).
		SetQueryParams(map[string]string{
			"limit":  strconv.Itoa(pageSize),
			"offset": strconv.Itoa(offset),
		}).
		Get(c.path)
	if err != nil {
		return nil, &FetchError{Offset: offset, Err: err}
	}

	status := res.StatusCode()
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, &FetchError{Offset: offset, StatusCode: status, Err: ErrSessionExpired}
	}
	if status < 200 || status > 299 {
		return nil, &FetchError{
			Offset:     offset,
			StatusCode: status,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status()),
		}
	}

	page, err := decodePage(res.Header().Get("content-type"), res.Body())
	if err != nil {
		return nil, &FetchError{Offset: offset, StatusCode: status, Err: err}
	}
	slog.DebugContext(ctx, "fetched page", "offset", offset, "records", len(page))
	return page, nil
}

// an expired session is redirected to the login page, which arrives as
// a successful html response.
func decodePage(contentType string, body []byte) ([]RawRecord, error) {
	body = bytes.TrimSpace(body)
	// an empty page ends the loop whatever content type it was sent with
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	if strings.Contains(strings.ToLower(contentType), "text/html") ||
		bytes.HasPrefix(body, []byte("<")) {
		return nil, ErrSessionExpired
	}

	var page []RawRecord
	err := json.Unmarshal(body, &page)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	return page, nil
}
