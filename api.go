package analyser

import (
	"context"
	"io"
	"log/slog"

	base "github.com/Arrow-air/Flight-Log-Analyser/pkg/analyser"
)

// Job stages reported outside the processing steps.
const (
	StageQueued = base.StageQueued
	StageDone   = base.StageDone
	StageFailed = base.StageFailed
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrWALFull           = base.ErrWALFull
	ErrRuntimeClosed     = base.ErrRuntimeClosed
	ErrResultSinkClosed  = base.ErrResultSinkClosed
	ErrSessionNotFound   = base.ErrSessionNotFound
	ErrNoSessionStore    = base.ErrNoSessionStore
	ErrUnsupportedFormat = base.ErrUnsupportedFormat
	ErrDatabaseRequired  = base.ErrDatabaseRequired
	ErrInvalidBlobName   = base.ErrInvalidBlobName
)

// Type aliases so consumers can import github.com/Arrow-air/Flight-Log-Analyser directly.
type (
	Config         = base.Config
	Policy         = base.Policy
	StorageConfig  = base.StorageConfig
	PostgresConfig = base.PostgresConfig
	MetricsConfig  = base.MetricsConfig
	WALConfig      = base.WALConfig
	RenderConfig   = base.RenderConfig
	LogConfig      = base.LogConfig
	Runtime        = base.Runtime
	RuntimeOption  = base.RuntimeOption
	Job            = base.Job
	JobResult      = base.JobResult
	Session        = base.Session
	SeriesSet      = base.SeriesSet
	Group          = base.Group
	Series         = base.Series
	ExtractStats   = base.ExtractStats
	ExtractOption  = base.ExtractOption
	Record         = base.Record
	RecordStream   = base.RecordStream
	Observability  = base.Observability
	Field          = base.Field
	WAL            = base.WAL
	WALStats       = base.WALStats
	WALEntryID     = base.WALEntryID
	JobQueue       = base.JobQueue
	QueuedJob      = base.QueuedJob
	SessionStore   = base.SessionStore
	BlobStore      = base.BlobStore
	Renderer       = base.Renderer
	NotesRenderer  = base.NotesRenderer
	SeriesSink     = base.SeriesSink
	Progress       = base.Progress
	ProgressFunc   = base.ProgressFunc
	ResultSink     = base.ResultSink
	ResultHandler  = base.ResultHandler
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithWAL(w WAL) RuntimeOption {
	return base.WithWAL(w)
}

func WithJobQueue(q JobQueue) RuntimeOption {
	return base.WithJobQueue(q)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithLogger(l *slog.Logger) RuntimeOption {
	return base.WithLogger(l)
}

func WithSessionStore(s SessionStore) RuntimeOption {
	return base.WithSessionStore(s)
}

func WithBlobStore(b BlobStore) RuntimeOption {
	return base.WithBlobStore(b)
}

func WithRenderer(r Renderer) RuntimeOption {
	return base.WithRenderer(r)
}

func WithNotesRenderer(n NotesRenderer) RuntimeOption {
	return base.WithNotesRenderer(n)
}

func WithSeriesSink(s SeriesSink) RuntimeOption {
	return base.WithSeriesSink(s)
}

func WithResultSink(s ResultSink) RuntimeOption {
	return base.WithResultSink(s)
}

func WithProgress(fn ProgressFunc) RuntimeOption {
	return base.WithProgress(fn)
}

// Result sink adapters.
func NewCallbackResultSink(name string, fn ResultHandler) ResultSink {
	return base.NewCallbackResultSink(name, fn)
}

func NewChannelResultSink(name string, buffer int) (ResultSink, <-chan JobResult, func()) {
	return base.NewChannelResultSink(name, buffer)
}

// One-shot analysis.
func OpenLog(path string) (RecordStream, error) {
	return base.OpenLog(path)
}

func Extract(path string, opts ...ExtractOption) (*SeriesSet, ExtractStats, error) {
	return base.Extract(path, opts...)
}

func ExtractStream(s RecordStream, opts ...ExtractOption) (*SeriesSet, ExtractStats, error) {
	return base.ExtractStream(s, opts...)
}

func WithExtractObservability(obs Observability) ExtractOption {
	return base.WithExtractObservability(obs)
}

func WithRecordProgress(n int, fn func(records int)) ExtractOption {
	return base.WithRecordProgress(n, fn)
}

func Redact(src io.Reader, dst io.Writer) (int, error) {
	return base.Redact(src, dst)
}

func RedactLines(lines []string) []string {
	return base.RedactLines(lines)
}

func RedactFile(in, out string) (int, error) {
	return base.RedactFile(in, out)
}

func RenderCharts(ctx context.Context, set *SeriesSet, dir string, rc RenderConfig) (map[string]string, error) {
	return base.RenderCharts(ctx, set, dir, rc)
}

func RenderNotes(src []byte) (string, error) {
	return base.RenderNotes(src)
}
