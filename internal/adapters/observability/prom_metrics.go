package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

const (
	MetricRecords        = "flightlog_records_total"
	MetricRecordsSkipped = "flightlog_records_skipped_total"
	MetricLinesRedacted  = "flightlog_lines_redacted_total"
	MetricJobsCompleted  = "flightlog_jobs_completed_total"
	MetricJobsFailed     = "flightlog_jobs_failed_total"
	MetricJobsDropped    = "flightlog_jobs_dropped_total"
	MetricQueueLength    = "flightlog_job_queue_length"
	MetricWALSize        = "flightlog_wal_size_bytes"
	MetricExtractSeconds = "flightlog_extract_seconds"
	MetricJobSeconds     = "flightlog_job_seconds"
)

// PromObs logs through slog and records metrics in a Prometheus registry.
// Unknown metric names are ignored.
type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	skipped  *prometheus.CounterVec
}

// NewPromObs registers the analyser metrics with reg. A nil reg uses the
// default registerer and a nil logger uses slog.Default().
func NewPromObs(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = slog.Default()
	}

	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricRecords,
		Help: "Log records read from flight logs.",
	})
	redacted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricLinesRedacted,
		Help: "Text log lines whose position fields were zeroed.",
	})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricJobsCompleted,
		Help: "Analysis jobs processed successfully.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricJobsFailed,
		Help: "Analysis jobs that ended in an error.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricJobsDropped,
		Help: "Jobs lost due to queue or WAL backpressure policies.",
	})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricRecordsSkipped,
		Help: "Records skipped because a value was missing or malformed.",
	}, []string{"type"})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricQueueLength,
		Help: "Jobs waiting in the in-memory queue.",
	})
	walGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricWALSize,
		Help: "Size of the job journal on disk.",
	})
	extract := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricExtractSeconds,
		Help:    "Time spent extracting series from one log.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	job := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricJobSeconds,
		Help:    "End-to-end time to process one analysis job.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	reg.MustRegister(records, redacted, completed, failed, dropped, skipped, queueGauge, walGauge, extract, job)

	return &PromObs{
		logger: logger,
		counters: map[string]prometheus.Counter{
			MetricRecords:       records,
			MetricLinesRedacted: redacted,
			MetricJobsCompleted: completed,
			MetricJobsFailed:    failed,
			MetricJobsDropped:   dropped,
		},
		gauges: map[string]prometheus.Gauge{
			MetricQueueLength: queueGauge,
			MetricWALSize:     walGauge,
		},
		histos: map[string]prometheus.Observer{
			MetricExtractSeconds: extract,
			MetricJobSeconds:     job,
		},
		skipped: skipped,
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("err", err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("err", err), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordSkipped(recordType string, err error) {
	p.skipped.WithLabelValues(recordType).Inc()
	p.logger.Debug("record skipped", slog.String("type", recordType), slog.Any("err", err))
}

func (p *PromObs) RecordDLQ(id ports.WALEntryID, j *domain.Job, err error) {
	p.IncCounter(MetricJobsFailed, 1)
	args := []any{slog.Uint64("wal_id", uint64(id)), slog.Any("err", err)}
	if j != nil {
		args = append(args, slog.String("job", j.ID), slog.String("log", j.LogFile))
	}
	p.logger.Error("job failed", args...)
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
