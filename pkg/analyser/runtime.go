package analyser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/blob"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/notes"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/observability"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/queue"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/render"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/sink"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/store"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/wal"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/app/pipeline"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/app/redact"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

var (
	// ErrQueueFull indicates the job queue rejected the job according to policy.
	ErrQueueFull = pipeline.ErrQueueFull
	// ErrWALFull indicates the journal is at capacity and OnWALFull != "block".
	ErrWALFull = pipeline.ErrWALFull
	// ErrRuntimeClosed is returned by Submit after Shutdown.
	ErrRuntimeClosed = errors.New("analyser: runtime closed")
	// ErrNoSessionStore is returned by session lookups when no store is configured.
	ErrNoSessionStore = errors.New("analyser: no session store configured")
	// ErrSessionNotFound is returned for unknown sessions and sessions owned by another user.
	ErrSessionNotFound = ports.ErrSessionNotFound
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	wal           WAL
	queue         JobQueue
	observability Observability
	logger        *slog.Logger
	sessions      SessionStore
	blobs         BlobStore
	renderer      Renderer
	notes         NotesRenderer
	series        SeriesSink
	results       ResultSink
	progress      ProgressFunc
}

// WithWAL lets callers bring their own journal implementation.
func WithWAL(w WAL) RuntimeOption {
	return func(o *runtimeOverrides) { o.wal = w }
}

// WithJobQueue injects a custom queue implementation.
func WithJobQueue(q JobQueue) RuntimeOption {
	return func(o *runtimeOverrides) { o.queue = q }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) { o.observability = obs }
}

// WithLogger sets the logger used by the default Prometheus observability.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(o *runtimeOverrides) { o.logger = l }
}

// WithSessionStore replaces the Postgres session store.
func WithSessionStore(s SessionStore) RuntimeOption {
	return func(o *runtimeOverrides) { o.sessions = s }
}

// WithBlobStore replaces the upload directory.
func WithBlobStore(b BlobStore) RuntimeOption {
	return func(o *runtimeOverrides) { o.blobs = b }
}

// WithRenderer replaces the PNG chart renderer.
func WithRenderer(r Renderer) RuntimeOption {
	return func(o *runtimeOverrides) { o.renderer = r }
}

// WithNotesRenderer replaces the markdown renderer.
func WithNotesRenderer(n NotesRenderer) RuntimeOption {
	return func(o *runtimeOverrides) { o.notes = n }
}

// WithSeriesSink exports every extracted series to s.
func WithSeriesSink(s SeriesSink) RuntimeOption {
	return func(o *runtimeOverrides) { o.series = s }
}

// WithResultSink receives the result of every processed job.
func WithResultSink(s ResultSink) RuntimeOption {
	return func(o *runtimeOverrides) { o.results = s }
}

// WithProgress receives a progress update after every job stage.
func WithProgress(fn ProgressFunc) RuntimeOption {
	return func(o *runtimeOverrides) { o.progress = fn }
}

// Runtime wires job intake → WAL → queue → worker → (blobs, sessions,
// charts, series export) and exposes simple lifecycle hooks for embedding
// the analyser inside any Go service.
type Runtime struct {
	cfg       *Config
	policy    ports.Policy
	obs       ports.Observability
	wal       ports.WAL
	queue     ports.JobQueue
	intake    *pipeline.Intake
	processor *pipeline.Processor
	blobs     ports.BlobStore
	sessions  ports.SessionStore
	results   ResultSink
	progress  ProgressFunc
	tracker   *progressTracker
	db        *sql.DB

	mu          sync.Mutex
	closed      bool
	cancel      context.CancelFunc
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
	workerDone  chan struct{}
}

// NewRuntime bootstraps the default adapters (file WAL, in-memory queue,
// upload directory, PNG charts, markdown notes, Postgres sessions and
// series export when configured, Prometheus observability). Any of them
// can be replaced with a RuntimeOption. Jobs the WAL still holds as
// pending are queued again before NewRuntime returns, even when they
// outnumber the queue's capacity.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		logger := overrides.logger
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		}
		obs = observability.NewPromObs(nil, logger)
	}

	var (
		walAdapter ports.WAL
		err        error
	)
	if overrides.wal != nil {
		walAdapter = overrides.wal
	} else {
		walAdapter, err = wal.NewFileWAL(cfg.WAL.Dir)
		if err != nil {
			return nil, err
		}
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	blobs := overrides.blobs
	if blobs == nil {
		blobs, err = blob.NewFileBlobs(cfg.Storage.UploadDir, cfg.Storage.Compress)
		if err != nil {
			return nil, err
		}
	}

	renderer := overrides.renderer
	if renderer == nil {
		renderer = render.NewChartRenderer(cfg.Render.Width, cfg.Render.Height, cfg.Render.Parallelism)
	}

	notesRenderer := overrides.notes
	if notesRenderer == nil {
		notesRenderer = notes.NewMarkdown()
	}

	var db *sql.DB
	needDB := (overrides.sessions == nil || (cfg.Postgres.ExportSeries && overrides.series == nil)) && cfg.Postgres.ConnString != ""
	if needDB {
		db, err = sql.Open("postgres", cfg.Postgres.ConnString)
		if err != nil {
			return nil, err
		}
	}

	sessions := overrides.sessions
	if sessions == nil && db != nil {
		sessions = store.NewPostgresSessions(db, cfg.Postgres.SessionsTable)
	}

	series := overrides.series
	if series == nil && cfg.Postgres.ExportSeries && db != nil {
		series = sink.NewTimescaleSink(db, cfg.Postgres.SeriesTable)
	}

	if _, err := pipeline.Replay(walAdapter, q, obs); err != nil {
		return nil, err
	}

	proc := &pipeline.Processor{
		Blobs:    blobs,
		Sessions: sessions,
		Renderer: renderer,
		Notes:    notesRenderer,
		Series:   series,
		Redactor: redact.New(nil),
		Obs:      obs,
		PlotDir:  cfg.Storage.PlotDir,
	}

	return &Runtime{
		cfg:       cfg,
		policy:    cfg.Policy,
		obs:       obs,
		wal:       walAdapter,
		queue:     q,
		intake:    pipeline.NewIntake(walAdapter, q, cfg.Policy, obs),
		processor: proc,
		blobs:     blobs,
		sessions:  sessions,
		results:   overrides.results,
		progress:  overrides.progress,
		tracker:   newProgressTracker(maxTrackedJobs),
		db:        db,
	}, nil
}

// Submit journals j and queues it for processing. A missing ID or
// submission time is filled in.
func (r *Runtime) Submit(j *Job) (string, error) {
	if j == nil {
		return "", fmt.Errorf("job is required")
	}
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return "", ErrRuntimeClosed
	}

	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.SubmittedAt.IsZero() {
		j.SubmittedAt = time.Now().UTC()
	}
	r.tracker.set(Progress{JobID: j.ID, Stage: StageQueued, Total: pipeline.TotalSteps})
	if _, err := r.intake.Submit(j); err != nil {
		r.tracker.forget(j.ID)
		return j.ID, err
	}
	return j.ID, nil
}

// JobProgress returns the latest progress of a recently submitted job.
func (r *Runtime) JobProgress(id string) (Progress, bool) {
	return r.tracker.get(id)
}

// Process runs j synchronously, bypassing the journal and queue.
func (r *Runtime) Process(ctx context.Context, j *Job) JobResult {
	res := r.processor.Process(ctx, j, r.reportProgress)
	r.tracker.set(finalProgress(res))
	return res
}

// Sessions lists userID's sessions, newest first.
func (r *Runtime) Sessions(ctx context.Context, userID string) ([]Session, error) {
	if r.sessions == nil {
		return nil, ErrNoSessionStore
	}
	return r.sessions.ListSessions(ctx, userID)
}

// Session returns one session if userID owns it.
func (r *Runtime) Session(ctx context.Context, id, userID string) (*Session, error) {
	if r.sessions == nil {
		return nil, ErrNoSessionStore
	}
	return r.sessions.GetSession(ctx, id, userID)
}

// Start launches the worker and the observability stack. It returns
// immediately; call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRuntimeClosed
	}
	if r.workerDone != nil {
		return fmt.Errorf("runtime already started")
	}

	for _, target := range []any{r.sessions, r.processor.Series} {
		s, ok := target.(interface{ EnsureSchema(context.Context) error })
		if !ok {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.workerDone = make(chan struct{})
	go func() {
		defer close(r.workerDone)
		pipeline.RunWorker(ctx, r.wal, r.queue, r.handle, r.deliver, r.policy, r.obs)
	}()

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the worker after its current job, then the metrics server,
// the journal and the DB connection. Queued jobs stay in the journal.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	var errs []error

	if r.cancel != nil {
		r.cancel()
		select {
		case <-r.workerDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("worker shutdown: %w", ctx.Err()))
		}
	}

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if c, ok := r.wal.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Runtime) handle(ctx context.Context, j *Job) JobResult {
	return r.processor.Process(ctx, j, r.reportProgress)
}

func (r *Runtime) reportProgress(p Progress) {
	r.tracker.set(p)
	if r.progress != nil {
		r.progress(p)
	}
}

func (r *Runtime) deliver(res JobResult) error {
	r.tracker.set(finalProgress(res))
	if r.results == nil {
		return nil
	}
	return r.results.Deliver(res)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.registerJobRoutes(mux)

	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := r.wal.Stats()
			r.obs.SetGauge(observability.MetricWALSize, float64(stats.SizeBytes))
			r.obs.SetGauge(observability.MetricQueueLength, float64(r.queue.Len()))
		}
	}
}
