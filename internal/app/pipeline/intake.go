package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

var (
	// ErrQueueFull indicates the job queue rejected a job according to policy.
	ErrQueueFull = errors.New("job queue full")
	// ErrWALFull indicates the journal is at capacity and OnWALFull != "block".
	ErrWALFull = errors.New("job journal full")
)

const defaultIdle = 5 * time.Millisecond

// Intake journals jobs and hands them to the queue. Append and enqueue
// happen under one lock so queue order always follows journal order.
type Intake struct {
	mu  sync.Mutex
	wal ports.WAL
	q   ports.JobQueue
	pol ports.Policy
	obs ports.Observability
}

func NewIntake(wal ports.WAL, q ports.JobQueue, pol ports.Policy, obs ports.Observability) *Intake {
	return &Intake{wal: wal, q: q, pol: pol, obs: obs}
}

// Submit makes j durable and queues it. A job the queue policy turns away
// is acked on the spot: the caller got ErrQueueFull and owns resubmission,
// so a restart never runs it behind their back.
func (in *Intake) Submit(j *domain.Job) (ports.WALEntryID, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if !waitForWALCapacity(in.wal, in.pol, in.obs) {
		in.obs.IncCounter("flightlog_jobs_dropped_total", 1)
		return 0, ErrWALFull
	}

	id, err := in.wal.Append(j)
	if err != nil {
		in.obs.LogCritical("wal_append_failed", err, ports.Field{Key: "job", Value: j.ID})
		return 0, fmt.Errorf("journal job %s: %w", j.ID, err)
	}

	if !enqueueWithPolicy(in.q, id, j, in.pol, in.obs) {
		in.obs.IncCounter("flightlog_jobs_dropped_total", 1)
		if err := in.wal.Ack(id); err != nil {
			in.obs.LogError("wal_ack_rejected_failed", err, ports.Field{Key: "job", Value: j.ID})
		}
		return 0, ErrQueueFull
	}
	in.obs.SetGauge("flightlog_job_queue_length", float64(in.q.Len()))
	return id, nil
}

// Replay restores every pending journal entry into the queue. Restored
// jobs bypass the queue bound, so a backlog larger than the queue never
// blocks or fails startup.
func Replay(wal ports.WAL, q ports.JobQueue, obs ports.Observability) (int, error) {
	if wal.Stats().Pending == 0 {
		return 0, nil
	}

	var items []ports.QueuedJob
	err := wal.Pending(func(id ports.WALEntryID, j *domain.Job) error {
		items = append(items, ports.QueuedJob{ID: id, Job: j})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replay journal: %w", err)
	}
	q.Restore(items)

	if len(items) > 0 {
		obs.LogInfo("wal_replay_complete",
			ports.Field{Key: "jobs", Value: len(items)},
			ports.Field{Key: "from_id", Value: uint64(items[0].ID)})
	}
	return len(items), nil
}

func waitForWALCapacity(wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := idleOrDefault(pol.IdleSleep)

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			obs.LogError("wal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithPolicy(q ports.JobQueue, id ports.WALEntryID, j *domain.Job, pol ports.Policy, obs ports.Observability) bool {
	sleep := idleOrDefault(pol.IdleSleep)

	for {
		if ok := q.Enqueue(id, j); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen),
				ports.Field{Key: "job", Value: j.ID})
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

func idleOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultIdle
	}
	return d
}
