package pipeline

import (
	"context"
	"time"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// Handler processes one job to completion.
type Handler func(ctx context.Context, j *domain.Job) domain.JobResult

// Deliver receives every result, failed ones included.
type Deliver func(domain.JobResult) error

// RunWorker drains the queue until ctx is done. A job counts as handled
// once its result is produced, whether or not it failed; failed jobs go to
// the DLQ log and are not retried. Handled jobs are acked after each batch
// and the journal is compacted whenever the queue runs dry.
func RunWorker(ctx context.Context, wal ports.WAL, q ports.JobQueue, handle Handler, deliver Deliver, pol ports.Policy, obs ports.Observability) {
	idle := idleOrDefault(pol.IdleSleep)
	var dirty bool

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch := q.DequeueBatch(pol.MaxBatchSize)
		obs.SetGauge("flightlog_job_queue_length", float64(q.Len()))
		if len(batch) == 0 {
			if dirty {
				compact(wal, obs)
				dirty = false
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
			continue
		}

		handled := make([]ports.WALEntryID, 0, len(batch))
		for _, item := range batch {
			if ctx.Err() != nil {
				// unhandled jobs stay pending and replay on restart
				break
			}
			start := time.Now()
			res := handle(ctx, item.Job)
			obs.ObserveLatency("flightlog_job_seconds", time.Since(start).Seconds())

			if res.Err != nil {
				obs.RecordDLQ(item.ID, item.Job, res.Err)
			} else {
				obs.IncCounter("flightlog_jobs_completed_total", 1)
			}
			if deliver != nil {
				if err := deliver(res); err != nil {
					obs.LogError("result_delivery_failed", err, ports.Field{Key: "job", Value: item.Job.ID})
				}
			}
			handled = append(handled, item.ID)
		}

		if len(handled) == 0 {
			continue
		}
		if err := wal.Ack(handled...); err != nil {
			obs.LogError("wal_ack_failed", err)
			continue
		}
		dirty = true
	}
}

func compact(wal ports.WAL, obs ports.Observability) {
	if err := wal.Compact(); err != nil {
		obs.LogError("wal_compact_failed", err)
		return
	}
	obs.SetGauge("flightlog_wal_size_bytes", float64(wal.Stats().SizeBytes))
}
