package ports

import "github.com/Arrow-air/Flight-Log-Analyser/internal/domain"

type WALEntryID uint64

// WAL journals submitted jobs. Every job stays pending until it is acked
// individually; pending jobs are what a restart replays.
type WAL interface {
	Append(j *domain.Job) (WALEntryID, error)
	Ack(ids ...WALEntryID) error
	Pending(fn func(id WALEntryID, j *domain.Job) error) error
	Compact() error
	Stats() WALStats
}

type WALStats struct {
	Pending        int
	OldestPending  WALEntryID
	LatestAppended WALEntryID
	SizeBytes      int64
}
