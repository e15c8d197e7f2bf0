package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrQueueUnavailable is returned when a job cannot be accepted. Callers are
// expected to log a warning and carry on: background sync is an enhancement,
// not a required path.
var ErrQueueUnavailable = errors.New("sync queue unavailable")

// Handler processes one job.
type Handler func(ctx context.Context, job Job)

// Queue accepts sync jobs for background processing. It is an injected
// dependency with no import-time state, so tests run against MemoryQueue and
// a broker-backed implementation can slot in without touching callers.
type Queue interface {
	// Enqueue submits a job for immediate processing.
	Enqueue(job Job) error
	// Repeat schedules a job on a fixed interval until Close.
	Repeat(job Job, interval time.Duration) error
	// Available reports whether the queue is accepting jobs.
	Available() bool
	// Close stops workers and schedules.
	Close()
}

// DefaultConcurrency is the worker count when none is configured.
const DefaultConcurrency = 5

// DefaultRepeatInterval is the periodic sync interval when none is configured.
const DefaultRepeatInterval = 15 * time.Minute

// MemoryQueue is an in-process Queue: a buffered channel drained by a fixed
// pool of workers.
type MemoryQueue struct {
	jobs    chan Job
	handler Handler
	workers int
	logger  *slog.Logger

	stopCh  chan struct{}
	closed  atomic.Bool
	started atomic.Bool
	wg      sync.WaitGroup
}

// NewMemoryQueue creates a queue with the given concurrency.
func NewMemoryQueue(workers int, handler Handler, logger *slog.Logger) *MemoryQueue {
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	return &MemoryQueue{
		jobs:    make(chan Job, 64),
		handler: handler,
		workers: workers,
		logger:  logger.With("component", "sync_queue"),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker pool. Calling it twice is a no-op.
func (q *MemoryQueue) Start(ctx context.Context) {
	if !q.started.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.logger.Info("sync queue started", "workers", q.workers)
}

func (q *MemoryQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case job := <-q.jobs:
			q.handler(ctx, job)
		}
	}
}

// Enqueue implements Queue. A full buffer counts as unavailable rather than
// blocking the caller.
func (q *MemoryQueue) Enqueue(job Job) error {
	if q.closed.Load() {
		return ErrQueueUnavailable
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueUnavailable
	}
}

// Repeat implements Queue.
func (q *MemoryQueue) Repeat(job Job, interval time.Duration) error {
	if q.closed.Load() {
		return ErrQueueUnavailable
	}
	if interval <= 0 {
		interval = DefaultRepeatInterval
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-q.stopCh:
				return
			case <-ticker.C:
				if err := q.Enqueue(job); err != nil {
					q.logger.Warn("failed to enqueue scheduled sync", "user_id", job.UserID, "error", err)
				}
			}
		}
	}()
	return nil
}

// Available implements Queue.
func (q *MemoryQueue) Available() bool {
	return !q.closed.Load()
}

// Close implements Queue. Queued but unstarted jobs are dropped.
func (q *MemoryQueue) Close() {
	if !q.closed.CompareAndSwap(false, true) {
		return
	}
	close(q.stopCh)
	q.wg.Wait()
	q.logger.Info("sync queue stopped")
}
