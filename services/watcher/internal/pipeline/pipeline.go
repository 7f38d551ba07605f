package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/cpcb"
	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/models"
	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/utils"
)

// ErrFetchFailed wraps fetch errors when the runner is strict.
var ErrFetchFailed = errors.New("fetch failed")

// Fetcher retrieves raw records from the feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.RawRecord, error)
}

// Normalizer converts raw records, one output per input.
type Normalizer interface {
	Normalize(records []models.RawRecord) []models.CanonicalRecord
}

// Exporter persists canonical records and returns the file written.
type Exporter interface {
	Export(records []models.CanonicalRecord) (string, error)
}

// Options tunes a Runner.
type Options struct {
	DryRun bool
	Strict bool
	Logger *slog.Logger
}

// Result summarizes one run.
type Result struct {
	Fetched           int
	Exported          int
	InvalidTimestamps int
	File              string
	FetchErr          error
}

// Runner wires fetch, normalize and export together.
type Runner struct {
	fetcher    Fetcher
	normalizer Normalizer
	exporter   Exporter
	dryRun     bool
	strict     bool
	logger     *slog.Logger
}

// New builds a Runner.
func New(f Fetcher, n Normalizer, e Exporter, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		fetcher:    f,
		normalizer: n,
		exporter:   e,
		dryRun:     opts.DryRun,
		strict:     opts.Strict,
		logger:     logger,
	}
}

// Run executes the pipeline once. Fetch failures are logged and treated as
// "no data" unless the runner is strict. When there is nothing to export the
// exporter is not called and no file is written.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result

	records, err := r.fetcher.Fetch(ctx)
	if err != nil {
		r.logFetchError(err)
		res.FetchErr = err
		if r.strict {
			return res, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
		records = nil
	}
	res.Fetched = len(records)

	if len(records) == 0 {
		r.logger.Info("no data fetched, exiting")
		return res, nil
	}
	r.logger.Info("fetched records", slog.Int("count", len(records)))

	canonical := r.normalizer.Normalize(records)
	for _, rec := range canonical {
		if rec.Timestamp != "" && rec.TimestampDate == nil {
			res.InvalidTimestamps++
		}
	}

	if r.dryRun {
		for _, rec := range canonical {
			r.logger.Debug("dry-run: would export",
				slog.String("station_id", rec.StationID),
				slog.String("parameter", rec.ParameterName),
				slog.String("value", utils.ValueString(rec.Value)),
				slog.String("unit", rec.Unit),
				slog.String("timestamp", rec.Timestamp))
		}
		r.logger.Info("dry-run: skipping export", slog.Int("count", len(canonical)))
		return res, nil
	}

	file, err := r.exporter.Export(canonical)
	if err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	res.File = file
	res.Exported = len(canonical)
	return res, nil
}

func (r *Runner) logFetchError(err error) {
	var statusErr *cpcb.StatusError
	switch {
	case errors.As(err, &statusErr):
		r.logger.Error("fetch error",
			slog.Int("status", statusErr.StatusCode),
			slog.String("body", statusErr.Body))
	case errors.Is(err, cpcb.ErrUnexpectedPayload):
		r.logger.Error("unexpected payload", slog.String("error", err.Error()))
	default:
		r.logger.Error("request failed", slog.String("error", err.Error()))
	}
}
