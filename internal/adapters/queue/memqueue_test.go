package queue

import (
	"testing"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

func TestMemQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewMemQueue(4)

	j1 := &domain.Job{ID: "j1", LogFile: "a.BIN"}
	j2 := &domain.Job{ID: "j2", LogFile: "b.log"}

	if !q.Enqueue(1, j1) || !q.Enqueue(2, j2) {
		t.Fatalf("expected successful enqueue")
	}

	batch := q.DequeueBatch(1)
	if len(batch) != 1 || batch[0].ID != 1 || batch[0].Job.ID != "j1" {
		t.Fatalf("unexpected first batch: %+v", batch)
	}

	remaining := q.DequeueBatch(10)
	if len(remaining) != 1 || remaining[0].ID != 2 {
		t.Fatalf("unexpected second batch: %+v", remaining)
	}

	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
	if q.DequeueBatch(5) != nil {
		t.Fatalf("empty queue should return a nil batch")
	}
}

func TestMemQueueCapacity(t *testing.T) {
	q := NewMemQueue(2)

	job := &domain.Job{ID: "cap"}

	if !q.Enqueue(1, job) || !q.Enqueue(2, job) {
		t.Fatalf("expected enqueue within capacity")
	}
	if q.Enqueue(3, job) {
		t.Fatalf("enqueue should fail when capacity exceeded")
	}

	q.DequeueBatch(1)
	if !q.Enqueue(4, job) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}
}

func TestMemQueueRestoreIgnoresCapacity(t *testing.T) {
	q := NewMemQueue(1)

	if !q.Enqueue(10, &domain.Job{ID: "new"}) {
		t.Fatalf("expected room for one submission")
	}
	q.Restore([]ports.QueuedJob{
		{ID: 1, Job: &domain.Job{ID: "old-1"}},
		{ID: 2, Job: &domain.Job{ID: "old-2"}},
		{ID: 3, Job: &domain.Job{ID: "old-3"}},
	})
	if q.Len() != 4 {
		t.Fatalf("expected restored jobs beyond capacity, len=%d", q.Len())
	}
	if q.Enqueue(11, &domain.Job{ID: "late"}) {
		t.Fatalf("new submissions must wait while the backlog is above capacity")
	}

	var order []string
	for _, item := range q.DequeueBatch(0) {
		order = append(order, item.Job.ID)
	}
	want := []string{"old-1", "old-2", "old-3", "new"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("expected restored jobs first, got %v", order)
		}
	}
	if !q.Enqueue(12, &domain.Job{ID: "after"}) {
		t.Fatalf("expected capacity to free up once drained")
	}
}
