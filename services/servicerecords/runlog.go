package servicerecords

import (
	"context"
	"database/sql"
	"sysaid-bridge/services/servicerecords/db"
	"time"

	"go.opentelemetry.io/otel/codes"
)

const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// RunSummary is the metadata kept about one extraction. it never carries
// records, credentials or cookies.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Records    int       `json:"records"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
}

// RunLog is an append-only history of extraction runs.
type RunLog struct {
	qry       *db.Queries
	retention time.Duration
}

// NewRunLog stores history in database, runs older than retention are
// pruned on every insert. retention <= 0 keeps everything.
func NewRunLog(database *sql.DB, retention time.Duration) *RunLog {
	return &RunLog{
		qry:       db.New(database),
		retention: retention,
	}
}

func (l *RunLog) Record(ctx context.Context, run RunSummary) error {
	ctx, span := tracer.Start(ctx, "RunLog.Record")
	defer span.End()

	err := l.qry.CreateRun(ctx, db.CreateRunParams{
		ID:         run.ID,
		StartedAt:  run.StartedAt.UnixMilli(),
		DurationMs: run.DurationMs,
		Records:    int64(run.Records),
		Status:     run.Status,
		ErrorKind:  run.ErrorKind,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert run")
		return err
	}

	if l.retention <= 0 {
		return nil
	}
	cutoff := run.StartedAt.Add(-l.retention).UnixMilli()
	err = l.qry.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to prune runs")
		return err
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	ctx, span := tracer.Start(ctx, "RunLog.Recent")
	defer span.End()

	rows, err := l.qry.GetRecentRuns(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query runs")
		return nil, err
	}

	out := make([]RunSummary, len(rows))
	for i, row := range rows {
		out[i] = RunSummary{
			ID:         row.ID,
			StartedAt:  time.UnixMilli(row.StartedAt).UTC(),
			DurationMs: row.DurationMs,
			Records:    int(row.Records),
			Status:     row.Status,
			ErrorKind:  row.ErrorKind,
		}
	}
	return out, nil
}
