// Package async runs pipeline work on a bounded worker pool. The batch
// ingester enqueues message files; workers process them independently since
// each message is self-contained.
package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
)

// Job is one message file awaiting processing.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

// NewJob stamps a job with a trace id and submit time.
func NewJob(path string) Job {
	return Job{Path: path, SubmittedAt: time.Now().UTC(), TraceID: uuid.NewString()}
}

// ProcessFunc consumes one job. Errors are logged, not retried; maildir files
// stay on disk for a manual re-run.
type ProcessFunc func(ctx context.Context, job Job) error

type Queue struct {
	process ProcessFunc
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(process ProcessFunc, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		process: process,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.process(ctx, job)
					cancel()

					if err != nil {
						q.logger.Error("queue.job.failed",
							"worker_id", workerID, "path", job.Path, "trace_id", job.TraceID, "error", err)
					} else {
						q.logger.Info("queue.job.done",
							"worker_id", workerID, "path", job.Path, "trace_id", job.TraceID)
					}
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.rejected", "path", job.Path)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueue.ok", "path", job.Path, "trace_id", job.TraceID)
	default:
		q.logger.Warn("queue.enqueue.backpressure", "path", job.Path)
		q.ch <- job
	}
	return nil
}

func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
