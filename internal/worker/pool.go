package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned by Submit when the job queue has no room left.
// Callers are expected to fail fast rather than block.
var ErrQueueFull = errors.New("job queue is full")

// ErrPoolClosed is returned by Submit after Shutdown has begun.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Status is the lifecycle state of a background job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// maxRetainedJobs bounds how many finished jobs stay queryable.
const maxRetainedJobs = 1000

// Task is one unit of background work. The returned value is retained on the
// job record for later inspection.
type Task func(ctx context.Context) (any, error)

// Job is a queryable snapshot of one submitted task.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Result      any       `json:"result,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

type queuedJob struct {
	id   uuid.UUID
	task Task
}

// Pool runs background jobs on a fixed number of workers with a bounded
// queue, keeping per-job status so callers can observe completion instead of
// firing and forgetting.
type Pool struct {
	logger  *slog.Logger
	workers int
	queue   chan queuedJob
	group   *errgroup.Group
	cancel  context.CancelFunc

	mu       sync.RWMutex
	closed   bool
	jobs     map[uuid.UUID]*Job
	finished []uuid.UUID
}

// NewPool builds a pool with the given worker count and queue depth.
func NewPool(workers, queueDepth int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		logger:  logger,
		workers: workers,
		queue:   make(chan queuedJob, queueDepth),
		jobs:    make(map[uuid.UUID]*Job),
	}
}

// Start launches the workers. Jobs submitted before Start sit in the queue.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	group, groupCtx := errgroup.WithContext(ctx)
	p.group = group

	for i := 0; i < p.workers; i++ {
		group.Go(func() error {
			for job := range p.queue {
				p.run(groupCtx, job)
			}
			return nil
		})
	}
}

// Submit enqueues a task and returns its job id. Fails fast with
// ErrQueueFull when the queue is at capacity.
func (p *Pool) Submit(description string, task Task) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return uuid.Nil, ErrPoolClosed
	}

	id := uuid.New()
	job := &Job{
		ID:          id,
		Description: description,
		Status:      StatusPending,
		EnqueuedAt:  time.Now().UTC(),
	}

	// The enqueue happens under the same lock that guards closed, so a
	// concurrent Shutdown cannot close the channel mid-send.
	select {
	case p.queue <- queuedJob{id: id, task: task}:
		p.jobs[id] = job
		return id, nil
	default:
		return uuid.Nil, ErrQueueFull
	}
}

// Job returns a snapshot of a submitted job.
func (p *Pool) Job(id uuid.UUID) (Job, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	job, ok := p.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Shutdown stops accepting work, drains the queue, and waits for in-flight
// jobs to finish or the context to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		if p.group != nil {
			done <- p.group.Wait()
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if p.cancel != nil {
			p.cancel()
		}
		return err
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		return ctx.Err()
	}
}

func (p *Pool) run(ctx context.Context, queued queuedJob) {
	p.setRunning(queued.id)

	result, err := queued.task(ctx)

	p.mu.Lock()
	job, ok := p.jobs[queued.id]
	if ok {
		job.FinishedAt = time.Now().UTC()
		if err != nil {
			job.Status = StatusFailed
			job.Error = err.Error()
		} else {
			job.Status = StatusSucceeded
			job.Result = result
		}
		p.finished = append(p.finished, queued.id)
		p.pruneLocked()
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("background job failed", "job_id", queued.id, "error", err)
	} else {
		p.logger.Info("background job finished", "job_id", queued.id)
	}
}

func (p *Pool) setRunning(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if job, ok := p.jobs[id]; ok {
		job.Status = StatusRunning
		job.StartedAt = time.Now().UTC()
	}
}

func (p *Pool) pruneLocked() {
	for len(p.finished) > maxRetainedJobs {
		oldest := p.finished[0]
		p.finished = p.finished[1:]
		delete(p.jobs, oldest)
	}
}
