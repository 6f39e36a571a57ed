package analyser

import (
	"sync"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/app/pipeline"
)

// Stages a job passes through outside the processing steps.
const (
	StageQueued = "queued"
	StageDone   = "done"
	StageFailed = "failed"
)

const maxTrackedJobs = 1024

// progressTracker keeps the latest Progress of recent jobs. The oldest
// entries are forgotten once more than limit jobs are tracked.
type progressTracker struct {
	mu    sync.Mutex
	last  map[string]Progress
	order []string
	limit int
}

func newProgressTracker(limit int) *progressTracker {
	return &progressTracker{last: make(map[string]Progress), limit: limit}
}

func (t *progressTracker) set(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.last[p.JobID]; !ok {
		t.order = append(t.order, p.JobID)
		for len(t.order) > t.limit {
			delete(t.last, t.order[0])
			t.order = t.order[1:]
		}
	}
	t.last[p.JobID] = p
}

func (t *progressTracker) forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.last[id]; !ok {
		return
	}
	delete(t.last, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *progressTracker) get(id string) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.last[id]
	return p, ok
}

func finalProgress(res JobResult) Progress {
	stage := StageDone
	if res.Err != nil {
		stage = StageFailed
	}
	return Progress{JobID: res.JobID, Stage: stage, Step: pipeline.TotalSteps, Total: pipeline.TotalSteps}
}
