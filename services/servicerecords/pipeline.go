package servicerecords

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sysaid-bridge/lib/scrapers/sysaid"
	"time"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"
)

type SessionAcquirer interface {
	Acquire(ctx context.Context, creds sysaid.Credentials) (sysaid.CookieJar, error)
}

type RecordCollector interface {
	CollectAll(ctx context.Context, jar sysaid.CookieJar, pageSize int) ([]sysaid.RawRecord, error)
}

type RunRecorder interface {
	Record(ctx context.Context, run RunSummary) error
}

// ExtractionError wraps the first failure of a run, errors.As reaches the
// underlying *sysaid.AuthenticationError or *sysaid.FetchError.
type ExtractionError struct {
	RunID string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction run %s failed: %v", e.RunID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type PipelineOptions struct {
	PageSize          int
	MaxConcurrentRuns int64
	// defaults to DefaultRequiredFields
	Fields *RequiredFieldSet
	// optional
	History RunRecorder
}

type Pipeline struct {
	acquirer  SessionAcquirer
	collector RecordCollector
	projector Projector
	fields    RequiredFieldSet
	pageSize  int
	history   RunRecorder
	limiter   *semaphore.Weighted

	runCounter     metric.Int64Counter
	recordCounter  metric.Int64Counter
	durationRecord metric.Float64Histogram
}

func NewPipeline(acquirer SessionAcquirer, collector RecordCollector, opts PipelineOptions) (*Pipeline, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 500
	}
	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = 2
	}
	fields := DefaultRequiredFields
	if opts.Fields != nil {
		fields = *opts.Fields
	}

	runCounter, err := meter.Int64Counter(
		"extraction.runs",
		metric.WithDescription("extraction runs by outcome"),
	)
	if err != nil {
		return nil, err
	}
	recordCounter, err := meter.Int64Counter(
		"extraction.records",
		metric.WithDescription("service records returned by successful runs"),
	)
	if err != nil {
		return nil, err
	}
	durationRecord, err := meter.Float64Histogram(
		"extraction.duration",
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		acquirer:       acquirer,
		collector:      collector,
		projector:      NewProjector(fields),
		fields:         fields,
		pageSize:       opts.PageSize,
		history:        opts.History,
		limiter:        semaphore.NewWeighted(opts.MaxConcurrentRuns),
		runCounter:     runCounter,
		recordCounter:  recordCounter,
		durationRecord: durationRecord,
	}, nil
}

func newRunID() string {
	id, err := random.String(12)
	if err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return id
}

// Run performs a full extraction: login, collect every page, project.
// there are no partial results, any failure fails the whole run.
func (p *Pipeline) Run(ctx context.Context, creds sysaid.Credentials) ([]ProjectedRecord, error) {
	runID := newRunID()

	ctx, span := tracer.Start(ctx, "Pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID))

	err := p.limiter.Acquire(ctx, 1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "canceled while waiting for a run slot")
		return nil, &ExtractionError{RunID: runID, Err: err}
	}
	defer p.limiter.Release(1)

	started := time.Now()
	slog.InfoContext(ctx, "extraction started", "run_id", runID, "user", creds)

	records, err := p.extract(ctx, creds)
	duration := time.Since(started)

	summary := RunSummary{
		ID:         runID,
		StartedAt:  started.UTC(),
		DurationMs: duration.Milliseconds(),
		Records:    len(records),
		Status:     RunSucceeded,
	}
	if err != nil {
		summary.Status = RunFailed
		summary.ErrorKind = ErrorKind(err)
	}
	p.finish(ctx, summary, duration)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		slog.ErrorContext(
			ctx, "extraction failed",
			"run_id", runID,
			"kind", summary.ErrorKind,
			"duration", duration,
			"err", err,
		)
		return nil, &ExtractionError{RunID: runID, Err: err}
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	slog.InfoContext(
		ctx, "extraction finished",
		"run_id", runID,
		"records", len(records),
		"duration", duration,
	)
	return records, nil
}

func (p *Pipeline) extract(ctx context.Context, creds sysaid.Credentials) ([]ProjectedRecord, error) {
	jar, err := p.acquirer.Acquire(ctx, creds)
	if err != nil {
		return nil, err
	}
	raw, err := p.collector.CollectAll(ctx, jar, p.pageSize)
	if err != nil {
		return nil, err
	}

	for _, warning := range DetectDrift(p.fields, raw) {
		slog.WarnContext(
			ctx, "unrecognized caption resembles a required field",
			"caption", warning.Caption,
			"resembles", warning.Resembles,
			"similarity", warning.Similarity,
		)
	}
	return p.projector.Project(raw), nil
}

func (p *Pipeline) finish(ctx context.Context, summary RunSummary, duration time.Duration) {
	status := attribute.String("status", summary.Status)
	p.runCounter.Add(ctx, 1, metric.WithAttributes(status))
	p.durationRecord.Record(ctx, duration.Seconds(), metric.WithAttributes(status))
	if summary.Status == RunSucceeded {
		p.recordCounter.Add(ctx, int64(summary.Records))
	}

	if p.history == nil {
		return
	}
	// the run's own ctx may already be canceled
	err := p.history.Record(context.WithoutCancel(ctx), summary)
	if err != nil {
		slog.WarnContext(ctx, "failed to record run history", "run_id", summary.ID, "err", err)
	}
}

// ErrorKind classifies a run failure into a short stable label that is
// safe to store and expose.
func ErrorKind(err error) string {
	var authErr *sysaid.AuthenticationError
	if errors.As(err, &authErr) {
		return "authentication:" + authErr.Stage
	}

	var fetchErr *sysaid.FetchError
	if errors.As(err, &fetchErr) {
		switch {
		case errors.Is(err, sysaid.ErrSessionExpired):
			return "fetch:session_expired"
		case errors.Is(err, sysaid.ErrMalformedPage):
			return "fetch:malformed_page"
		case errors.Is(err, sysaid.ErrPageLimitExceeded):
			return "fetch:page_limit"
		case errors.Is(err, sysaid.ErrUnexpectedStatus):
			return "fetch:status"
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "fetch:timeout"
		}
		return "fetch:transport"
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "unknown"
}
