package analyser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/wal"
)

const textLog = `FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns
FMT, 129, 45, ATT, QccccCC, TimeUS,DesRoll,Roll,DesPitch,Pitch,DesYaw,Yaw
ATT, 10000000, 1.10, 1.00, 2.10, 2.00, 3.10, 3.00
ATT, 10100000, 1.20, 1.05, 2.20, 2.05, 3.20, 3.05
GPS,1,2,3,4,5,6,7,37.4,-122.1,30
`

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Policy.IdleSleep = time.Millisecond
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Storage.PlotDir = filepath.Join(dir, "plots")
	cfg.WAL.Dir = filepath.Join(dir, "wal")
	cfg.Metrics.Addr = "127.0.0.1:0"
	return cfg
}

func TestNewRuntimeWithCustomAdapters(t *testing.T) {
	cfg := testConfig(t)

	walStub := &stubWAL{}
	queueStub := &stubQueue{}
	obsStub := &stubObservability{}
	sessionsStub := &stubSessions{}
	seriesStub := &stubSeries{}
	results := NewCallbackResultSink("", func(JobResult) error { return nil })

	rt, err := NewRuntime(
		cfg,
		WithWAL(walStub),
		WithJobQueue(queueStub),
		WithObservability(obsStub),
		WithSessionStore(sessionsStub),
		WithSeriesSink(seriesStub),
		WithResultSink(results),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	if rt.wal != walStub {
		t.Fatalf("expected custom WAL to be used")
	}
	if rt.queue != queueStub {
		t.Fatalf("expected custom queue to be used")
	}
	if rt.obs != obsStub {
		t.Fatalf("expected custom observability to be used")
	}
	if rt.sessions != sessionsStub || rt.processor.Sessions != sessionsStub {
		t.Fatalf("expected custom session store to be used")
	}
	if rt.processor.Series != seriesStub {
		t.Fatalf("expected custom series sink to be used")
	}
	if rt.results != results {
		t.Fatalf("expected result sink to be used")
	}
	if rt.db != nil {
		t.Fatalf("expected db to be nil without a connection string")
	}
}

func TestRuntimeWithoutSessionStore(t *testing.T) {
	rt, err := NewRuntime(testConfig(t), WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Shutdown(context.Background())

	if _, err := rt.Sessions(context.Background(), "u1"); !errors.Is(err, ErrNoSessionStore) {
		t.Fatalf("expected ErrNoSessionStore, got %v", err)
	}
	if _, err := rt.Session(context.Background(), "s1", "u1"); !errors.Is(err, ErrNoSessionStore) {
		t.Fatalf("expected ErrNoSessionStore, got %v", err)
	}
}

func TestRuntimeProcessesSubmittedJob(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Storage.UploadDir, "u1_flight.log"), []byte(textLog), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}

	sink, ch, closeFn := NewChannelResultSink("results", 1)
	defer closeFn()
	sessions := &stubSessions{}
	progress := make(chan Progress, 16)

	rt, err := NewRuntime(cfg,
		WithObservability(&stubObservability{}),
		WithSessionStore(sessions),
		WithRenderer(&stubRenderer{}),
		WithResultSink(sink),
		WithProgress(func(p Progress) { progress <- p }),
	)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}

	id, err := rt.Submit(&Job{UserID: "u1", LogFile: "u1_flight.log", Anonymize: true, OutputName: "u1_anon.log"})
	if err != nil || id == "" {
		t.Fatalf("submit: id=%q err=%v", id, err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var res JobResult
	select {
	case res = <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job result")
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if res.Err != nil {
		t.Fatalf("job failed: %v", res.Err)
	}
	if res.JobID != id || res.LogFile != "u1_anon.log" || res.Stats.Extracted != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, ok := res.PlotFiles["attitude"]; !ok {
		t.Fatalf("expected attitude chart, got %v", res.PlotFiles)
	}
	if len(progress) != 5 {
		t.Fatalf("expected 5 progress updates, got %d", len(progress))
	}
	if p, ok := rt.JobProgress(id); !ok || p.Stage != StageDone || p.Step != p.Total {
		t.Fatalf("expected finished progress, got %+v ok=%v", p, ok)
	}

	if _, err := rt.Submit(&Job{LogFile: "u1_flight.log"}); !errors.Is(err, ErrRuntimeClosed) {
		t.Fatalf("expected ErrRuntimeClosed after shutdown, got %v", err)
	}

	// the processed job is acked, so a new runtime replays nothing
	rt2, err := NewRuntime(cfg, WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rt2.Shutdown(context.Background())
	if n := rt2.queue.Len(); n != 0 {
		t.Fatalf("expected no replayed jobs, got %d", n)
	}
}

func TestRuntimeReplaysUnprocessedJobs(t *testing.T) {
	cfg := testConfig(t)

	rt, err := NewRuntime(cfg, WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if _, err := rt.Submit(&Job{ID: "pending", LogFile: "x.BIN"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	rt2, err := NewRuntime(cfg, WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rt2.Shutdown(context.Background())

	batch := rt2.queue.DequeueBatch(10)
	if len(batch) != 1 || batch[0].Job.ID != "pending" {
		t.Fatalf("expected pending job to be replayed, got %+v", batch)
	}
}

func TestRuntimeStartsWithBacklogLargerThanQueue(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.MaxQueueLen = 1
	cfg.Policy.OnQueueFull = "block"

	journal, err := wal.NewFileWAL(cfg.WAL.Dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, err := journal.Append(&Job{ID: id, LogFile: id + ".BIN"}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	if err := journal.Close(); err != nil {
		t.Fatalf("close wal: %v", err)
	}

	sink, ch, closeFn := NewChannelResultSink("results", 3)
	defer closeFn()

	started := make(chan *Runtime, 1)
	errCh := make(chan error, 1)
	go func() {
		rt, err := NewRuntime(cfg, WithObservability(&stubObservability{}), WithResultSink(sink))
		if err != nil {
			errCh <- err
			return
		}
		started <- rt
	}()

	var rt *Runtime
	select {
	case rt = <-started:
	case err := <-errCh:
		t.Fatalf("NewRuntime: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("NewRuntime blocked on the journal backlog")
	}
	defer rt.Shutdown(context.Background())

	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	seen := map[string]bool{}
	for len(seen) < 3 {
		select {
		case res := <-ch:
			seen[res.JobID] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out with results for %v", seen)
		}
	}
}

type stubWAL struct{}

func (s *stubWAL) Append(*Job) (WALEntryID, error)            { return 0, nil }
func (s *stubWAL) Ack(...WALEntryID) error                    { return nil }
func (s *stubWAL) Pending(func(WALEntryID, *Job) error) error { return nil }
func (s *stubWAL) Compact() error                             { return nil }
func (s *stubWAL) Stats() WALStats                            { return WALStats{} }

type stubQueue struct{}

func (s *stubQueue) Enqueue(WALEntryID, *Job) bool { return true }
func (s *stubQueue) Restore([]QueuedJob)           {}
func (s *stubQueue) DequeueBatch(int) []QueuedJob  { return nil }
func (s *stubQueue) Len() int                      { return 0 }

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordSkipped(string, error)         {}
func (s *stubObservability) RecordDLQ(WALEntryID, *Job, error)   {}

type stubSessions struct{}

func (s *stubSessions) SaveSession(context.Context, *Session) error { return nil }
func (s *stubSessions) GetSession(context.Context, string, string) (*Session, error) {
	return nil, ErrSessionNotFound
}
func (s *stubSessions) ListSessions(context.Context, string) ([]Session, error) { return nil, nil }

type stubSeries struct{}

func (s *stubSeries) WriteSeries(string, *SeriesSet) error { return nil }
func (s *stubSeries) Name() string                         { return "stub" }

type stubRenderer struct{}

func (s *stubRenderer) Render(_ context.Context, set *SeriesSet, dir string) (map[string]string, error) {
	out := make(map[string]string)
	for _, g := range set.Groups() {
		out[g.Topic] = filepath.Join(dir, g.Topic+".png")
	}
	return out, nil
}
