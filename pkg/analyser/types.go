package analyser

import (
	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// Job is one analysis request: an uploaded log plus optional notes and videos.
type Job = domain.Job

// JobResult is delivered for every processed job, failed ones included.
type JobResult = domain.JobResult

// Session is the persisted record of a processed job.
type Session = domain.Session

// SeriesSet holds every time series extracted from one log.
type SeriesSet = domain.SeriesSet

// Group is a set of series sharing one time basis.
type Group = domain.Group

// Series is a single column with its own time basis.
type Series = domain.Series

// ExtractStats counts what happened to the records of one log.
type ExtractStats = domain.ExtractStats

// Record is one decoded log message.
type Record = domain.Record

// RecordStream yields decoded records from a .BIN or .log file.
type RecordStream = ports.RecordStream

// Observability emits logs and metrics about jobs and extraction.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// WAL abstracts the journal that makes submitted jobs survive restarts.
type WAL = ports.WAL

// WALStats exposes journal metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a journal entry.
type WALEntryID = ports.WALEntryID

// JobQueue is the bounded, in-memory queue between intake and the worker.
type JobQueue = ports.JobQueue

// QueuedJob is an item buffered inside the job queue.
type QueuedJob = ports.QueuedJob

// SessionStore persists sessions per user.
type SessionStore = ports.SessionStore

// BlobStore keeps uploaded files.
type BlobStore = ports.BlobStore

// Renderer turns a SeriesSet into chart files.
type Renderer = ports.Renderer

// NotesRenderer converts session notes to HTML.
type NotesRenderer = ports.NotesRenderer

// SeriesSink exports extracted series to a downstream store.
type SeriesSink = ports.SeriesSink

// Progress reports how far a job has advanced.
type Progress = ports.Progress

// ProgressFunc receives progress updates.
type ProgressFunc = ports.ProgressFunc
