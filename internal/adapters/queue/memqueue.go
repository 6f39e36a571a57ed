package queue

import (
	"sync"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// MemQueue is the in-memory FIFO between job intake and the worker.
// New submissions are bounded by capacity; jobs restored from the journal
// after a restart are not, so a backlog never blocks startup.
type MemQueue struct {
	mu       sync.Mutex
	restored []ports.QueuedJob
	fresh    []ports.QueuedJob
	capacity int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{
		fresh:    make([]ports.QueuedJob, 0, capacity),
		capacity: capacity,
	}
}

// Enqueue reports false once the total length reaches capacity, restored
// jobs included.
func (q *MemQueue) Enqueue(id ports.WALEntryID, j *domain.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.restored)+len(q.fresh) >= q.capacity {
		return false
	}
	q.fresh = append(q.fresh, ports.QueuedJob{ID: id, Job: j})
	return true
}

func (q *MemQueue) Restore(items []ports.QueuedJob) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.restored = append(q.restored, items...)
	q.mu.Unlock()
}

// DequeueBatch returns up to max jobs, restored ones first. max <= 0
// drains the queue.
func (q *MemQueue) DequeueBatch(max int) []ports.QueuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := len(q.restored) + len(q.fresh)
	if total == 0 {
		return nil
	}
	if max <= 0 || max > total {
		max = total
	}
	out := make([]ports.QueuedJob, 0, max)
	out, q.restored = take(out, q.restored, max)
	out, q.fresh = take(out, q.fresh, max-len(out))
	return out
}

func take(dst, src []ports.QueuedJob, n int) ([]ports.QueuedJob, []ports.QueuedJob) {
	if n > len(src) {
		n = len(src)
	}
	dst = append(dst, src[:n]...)
	rest := src[n:]
	if len(rest) == 0 {
		return dst, src[:0]
	}
	return dst, append(src[:0], rest...)
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.restored) + len(q.fresh)
}

var _ ports.JobQueue = (*MemQueue)(nil)
