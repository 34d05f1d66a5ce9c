package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is stopped")
)

// Job is a unit of background work. Jobs sharing a non-empty Key are coalesced
// while one of them is still waiting, so scheduling the same refresh twice runs it once.
type Job struct {
	ID        string
	Kind      string
	Key       string
	Run       func(ctx context.Context) error
	CreatedAt time.Time
}

// Queue is a bounded channel drained by a fixed pool of workers.
type Queue struct {
	jobs    chan *Job
	workers int
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	queued  map[string]bool
	pending sync.WaitGroup
}

// Options configures a Queue.
type Options struct {
	Workers int
	Buffer  int
	// JobTimeout bounds a single job run.
	JobTimeout time.Duration
}

// New creates a queue. Call Start before submitting.
func New(opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 100
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		jobs:    make(chan *Job, opts.Buffer),
		workers: opts.Workers,
		timeout: opts.JobTimeout,
		ctx:     ctx,
		cancel:  cancel,
		queued:  make(map[string]bool),
	}
}

// Start launches the workers.
func (q *Queue) Start() {
	logger.Log.Info("Starting job queue", zap.Int("workers", q.workers))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop refuses new jobs, lets workers finish what is queued, and waits for them
// until ctx expires. Jobs still running when ctx expires see their context cancelled.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

// Submit enqueues job without blocking.
func (q *Queue) Submit(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrQueueClosed
	}
	if job.Key != "" && q.queued[job.Key] {
		return nil
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	q.pending.Add(1)
	select {
	case q.jobs <- job:
		if job.Key != "" {
			q.queued[job.Key] = true
		}
		metrics.Get().QueueDepth.Inc()
		return nil
	default:
		q.pending.Done()
		return ErrQueueFull
	}
}

// Wait blocks until every submitted job has finished or ctx expires.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(id, job)
	}
}

func (q *Queue) run(workerID int, job *Job) {
	defer q.pending.Done()
	metrics.Get().QueueDepth.Dec()

	q.mu.Lock()
	delete(q.queued, job.Key)
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.Get().JobsTotal.WithLabelValues(job.Kind, "panic").Inc()
			logger.Log.Error("Job panicked",
				zap.String("job_id", job.ID),
				zap.String("kind", job.Kind),
				zap.Any("panic", r))
		}
	}()

	if err := job.Run(ctx); err != nil {
		metrics.Get().JobsTotal.WithLabelValues(job.Kind, "error").Inc()
		logger.Log.Warn("Job failed",
			zap.Int("worker", workerID),
			zap.String("job_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Duration("queued_for", time.Since(job.CreatedAt)),
			zap.Error(err))
		return
	}
	metrics.Get().JobsTotal.WithLabelValues(job.Kind, "ok").Inc()
}
