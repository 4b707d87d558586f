// Package queue runs pipeline requests on a bounded in-process queue
// drained by a fixed pool of workers.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/workflow"
	"github.com/JaimeStill/tally/pkg/lifecycle"
)

// ReasonShutdown is recorded on requests still queued at shutdown.
const ReasonShutdown = "service shut down before processing started"

// Executor runs one request to a terminal state.
type Executor interface {
	Execute(ctx context.Context, req workflow.Request) error
	Abort(ctx context.Context, req workflow.Request, reason string)
}

// Queue is a FIFO of pipeline requests. Enqueue never blocks; work on one
// document is never run concurrently.
type Queue struct {
	jobs    chan workflow.Request
	workers int
	exec    Executor
	locks   *keyedMutex
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a Queue sized by cfg.
func New(cfg *config.QueueConfig, exec Executor, logger *slog.Logger) *Queue {
	return &Queue{
		jobs:    make(chan workflow.Request, cfg.Capacity),
		workers: max(cfg.Workers, 1),
		exec:    exec,
		locks:   newKeyedMutex(),
		logger:  logger.With("system", "queue"),
	}
}

// Enqueue adds req to the queue. It fails fast with ErrQueueFull when the
// queue is at capacity.
func (q *Queue) Enqueue(req workflow.Request) error {
	if err := check(req); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.jobs <- req:
		q.logger.Debug("request enqueued", "document_id", req.DocumentID, "operation", req.Operation, "pending", len(q.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued requests.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Capacity returns the queue size.
func (q *Queue) Capacity() int {
	return cap(q.jobs)
}

// Start launches the workers under lc. On shutdown the queue stops
// accepting requests, and requests that never started are aborted.
func (q *Queue) Start(lc *lifecycle.Coordinator) error {
	q.logger.Info("starting queue workers", "workers", q.workers, "capacity", cap(q.jobs))

	for i := range q.workers {
		lc.Run(func(ctx context.Context) {
			q.work(ctx, i)
		})
	}

	lc.OnDrain(func() {
		<-lc.Context().Done()
		q.close()

		ctx := context.WithoutCancel(lc.Context())
		for {
			select {
			case req := <-q.jobs:
				q.exec.Abort(ctx, req, ReasonShutdown)
				req.Release()
			default:
				q.logger.Info("queue closed")
				return
			}
		}
	})

	return nil
}

func (q *Queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *Queue) work(ctx context.Context, id int) {
	logger := q.logger.With("worker", id)
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped")
			return
		case req := <-q.jobs:
			q.process(ctx, logger, req)
		}
	}
}

func (q *Queue) process(ctx context.Context, logger *slog.Logger, req workflow.Request) {
	defer req.Release()

	unlock := q.locks.Lock(req.DocumentID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker recovered from panic", "document_id", req.DocumentID, "panic", r)
			q.exec.Abort(ctx, req, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := q.exec.Execute(ctx, req); err != nil {
		logger.Error("request failed", "document_id", req.DocumentID, "operation", req.Operation, "error", err)
		q.exec.Abort(ctx, req, err.Error())
	}
}

func check(req workflow.Request) error {
	if !req.Operation.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidRequest, req.Operation)
	}
	if req.Operation == workflow.FullProcess {
		if req.Filename == "" {
			return fmt.Errorf("%w: filename is required", ErrInvalidRequest)
		}
		if len(req.Content) == 0 {
			return fmt.Errorf("%w: file content is empty", ErrInvalidRequest)
		}
	}
	return nil
}
