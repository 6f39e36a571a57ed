package ports

import "github.com/Arrow-air/Flight-Log-Analyser/internal/domain"

type QueuedJob struct {
	ID  WALEntryID
	Job *domain.Job
}

type JobQueue interface {
	// Enqueue adds a new submission, reporting false when the queue is full.
	Enqueue(id WALEntryID, j *domain.Job) bool
	// Restore puts journalled jobs back ahead of new submissions. It never
	// refuses; capacity only limits Enqueue.
	Restore(items []QueuedJob)
	DequeueBatch(max int) []QueuedJob
	Len() int
}
