package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(reg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	obs.IncCounter(MetricRecords, 5)
	if got := testutil.ToFloat64(obs.counters[MetricRecords]); got != 5 {
		t.Fatalf("expected records counter 5, got %f", got)
	}

	obs.IncCounter(MetricJobsDropped, 2)
	if got := testutil.ToFloat64(obs.counters[MetricJobsDropped]); got != 2 {
		t.Fatalf("expected dropped counter 2, got %f", got)
	}

	obs.IncCounter("not_a_metric", 1)

	obs.SetGauge(MetricWALSize, 42)
	if got := testutil.ToFloat64(obs.gauges[MetricWALSize]); got != 42 {
		t.Fatalf("expected wal gauge 42, got %f", got)
	}

	obs.ObserveLatency(MetricExtractSeconds, 0.5)
	hCollector := obs.histos[MetricExtractSeconds].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected extract histogram to record 1 sample, got %d", samples)
	}

	obs.RecordSkipped("ESC", errors.New("bad RPM"))
	obs.RecordSkipped("ESC", errors.New("bad RPM"))
	obs.RecordSkipped("ATT", errors.New("bad Roll"))
	if got := testutil.ToFloat64(obs.skipped.WithLabelValues("ESC")); got != 2 {
		t.Fatalf("expected 2 skipped ESC records, got %f", got)
	}

	obs.RecordDLQ(1, nil, nil)
	if got := testutil.ToFloat64(obs.counters[MetricJobsFailed]); got != 1 {
		t.Fatalf("expected failed counter 1, got %f", got)
	}
}

func TestPromObsLogsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	obs := NewPromObs(prometheus.NewRegistry(), slog.New(slog.NewTextHandler(&buf, nil)))

	obs.LogInfo("job done", ports.Field{Key: "job", Value: "j-1"})
	obs.RecordDLQ(7, &domain.Job{ID: "j-2", LogFile: "x.BIN"}, errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"job done", "job=j-1", "wal_id=7", "job=j-2", "log=x.BIN", "err=boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}
