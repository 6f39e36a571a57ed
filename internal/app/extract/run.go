package extract

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// Option customizes a single Run.
type Option func(*runOptions)

type runOptions struct {
	obs      ports.Observability
	onRecord func(n int)
	every    int
}

// WithObservability reports skipped records and timings to obs.
func WithObservability(obs ports.Observability) Option {
	return func(o *runOptions) {
		o.obs = obs
	}
}

// WithRecordProgress calls fn with the running record count every n records.
func WithRecordProgress(n int, fn func(records int)) Option {
	return func(o *runOptions) {
		o.every = n
		o.onRecord = fn
	}
}

// Run drains stream into a fresh SeriesSet. Per-record problems are
// counted and skipped; only a failing stream aborts the run.
func Run(stream ports.RecordStream, opts ...Option) (*domain.SeriesSet, domain.ExtractStats, error) {
	var o runOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	start := time.Now()
	ex := NewExtractor()
	for {
		rec, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ex.Stats(), fmt.Errorf("read record: %w", err)
		}
		if rec == nil {
			continue
		}

		t, ok, err := ResolveTime(rec, stream)
		switch {
		case err != nil:
			ex.Malformed()
			o.skipped(rec.Type, err)
		case !ok:
			ex.Skip()
		default:
			if _, err := ex.Observe(rec, t); err != nil {
				o.skipped(rec.Type, err)
			}
		}

		if o.onRecord != nil && o.every > 0 && ex.stats.Records%o.every == 0 {
			o.onRecord(ex.stats.Records)
		}
	}

	stats := ex.Stats()
	if o.obs != nil {
		o.obs.IncCounter("flightlog_records_total", float64(stats.Records))
		o.obs.ObserveLatency("flightlog_extract_seconds", time.Since(start).Seconds())
		o.obs.LogInfo("extract_complete",
			ports.Field{Key: "records", Value: stats.Records},
			ports.Field{Key: "extracted", Value: stats.Extracted},
			ports.Field{Key: "no_time", Value: stats.NoTime},
			ports.Field{Key: "dropped", Value: stats.Dropped},
			ports.Field{Key: "malformed", Value: stats.Malformed})
	}
	return ex.Set(), stats, nil
}

func (o *runOptions) skipped(recordType string, err error) {
	if o.obs != nil {
		o.obs.RecordSkipped(recordType, err)
	}
}
