package core

import (
	"sync"
)

const DefaultRecentLimit = 20

// JobQueue is the in-memory record of every job in submission order.
// Positions never change; entries leave only by explicit removal.
type JobQueue struct {
	mu          sync.RWMutex
	jobs        []PrintJob
	recentLimit int
}

func NewJobQueue(recentLimit int) *JobQueue {
	if recentLimit < 1 {
		recentLimit = DefaultRecentLimit
	}
	return &JobQueue{recentLimit: recentLimit}
}

func (q *JobQueue) Append(job PrintJob) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
}

// Recent returns up to the recent limit of jobs, newest first.
func (q *JobQueue) Recent() []PrintJob {
	q.mu.RLock()
	defer q.mu.RUnlock()

	n := len(q.jobs)
	if n > q.recentLimit {
		n = q.recentLimit
	}

	out := make([]PrintJob, 0, n)
	for i := len(q.jobs) - 1; i >= len(q.jobs)-n; i-- {
		out = append(out, q.jobs[i])
	}
	return out
}

// Snapshot returns every job in insertion order.
func (q *JobQueue) Snapshot() []PrintJob {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]PrintJob, len(q.jobs))
	copy(out, q.jobs)
	return out
}

func (q *JobQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.jobs)
}

func (q *JobQueue) Get(id int64) (PrintJob, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, j := range q.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return PrintJob{}, false
}

// Complete moves a pending job to completed.
func (q *JobQueue) Complete(id int64) (PrintJob, bool) {
	return q.finish(id, JobStatusCompleted, "")
}

// Fail moves a pending job to failed with the given reason.
func (q *JobQueue) Fail(id int64, reason string) (PrintJob, bool) {
	return q.finish(id, JobStatusFailed, reason)
}

// finish is a no-op when the job was removed or is already terminal.
func (q *JobQueue) finish(id int64, status JobStatus, reason string) (PrintJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.jobs {
		if q.jobs[i].ID != id {
			continue
		}
		if q.jobs[i].Status != JobStatusPending {
			return q.jobs[i], false
		}
		q.jobs[i].Status = status
		q.jobs[i].Error = reason
		return q.jobs[i], true
	}
	return PrintJob{}, false
}

// Remove deletes the first job with the given id.
func (q *JobQueue) Remove(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.jobs {
		if q.jobs[i].ID == id {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveFailed deletes all failed jobs and returns how many were removed.
func (q *JobQueue) RemoveFailed() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.jobs[:0]
	removed := 0
	for _, j := range q.jobs {
		if j.Status == JobStatusFailed {
			removed++
			continue
		}
		kept = append(kept, j)
	}
	for i := len(kept); i < len(q.jobs); i++ {
		q.jobs[i] = PrintJob{}
	}
	q.jobs = kept
	return removed
}
