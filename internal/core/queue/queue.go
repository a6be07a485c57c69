package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"newslk/internal/core/recreate"
	"newslk/internal/logger"
)

// Recreator runs one recreation. It must not fail; the outcome carries the
// URL to serve either way.
type Recreator interface {
	Recreate(ctx context.Context, req recreate.Request) recreate.Outcome
}

// Recorder persists job lifecycle records.
type Recorder interface {
	RecordPending(ctx context.Context, jobID string, req recreate.Request) error
	RecordProcessing(ctx context.Context, articleID string) error
	RecordFinished(ctx context.Context, articleID string, out recreate.Outcome) error
}

// Metrics receives queue depth and per-job results.
type Metrics interface {
	SetQueueDepth(pending, processing int)
	ObserveJob(outcome string, elapsed time.Duration)
}

// Job outcomes reported to Metrics.
const (
	OutcomeRecreated = "recreated"
	OutcomeCached    = "cached"
	OutcomeFallback  = "fallback"
	OutcomePanic     = "panic"
)

// Job is one queued recreation.
type Job struct {
	ID string `json:"id"`
	recreate.Request
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Status is a point-in-time snapshot of the queue.
type Status struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
}

// Message summarises a snapshot for the status endpoint.
func (s Status) Message() string {
	switch {
	case s.Processing > 0:
		return fmt.Sprintf("Processing %d image(s), %d in queue", s.Processing, s.Pending)
	case s.Pending > 0:
		return fmt.Sprintf("%d image(s) queued for recreation", s.Pending)
	default:
		return "Queue is empty"
	}
}

type Options struct {
	// Cooldown is the pause after each job before the next one starts.
	Cooldown time.Duration
	Recorder Recorder
	Metrics  Metrics
}

// Queue deduplicates recreation requests by article id and feeds them, one at
// a time and in FIFO order, to the engine.
type Queue struct {
	engine   Recreator
	cooldown time.Duration
	journal  *journal
	metrics  Metrics

	mu         sync.Mutex
	pending    []Job
	queued     map[string]struct{}
	processing map[string]Job

	wake    chan struct{}
	running atomic.Bool
	log     *logger.Logger
}

func New(engine Recreator, opts Options) *Queue {
	log := logger.New("RecreationQueue")
	return &Queue{
		engine:     engine,
		cooldown:   opts.Cooldown,
		journal:    newJournal(opts.Recorder, log),
		metrics:    opts.Metrics,
		queued:     make(map[string]struct{}),
		processing: make(map[string]Job),
		wake:       make(chan struct{}, 1),
		log:        log,
	}
}

// Enqueue adds a job unless the article is already queued or processing. It
// never blocks on the recreation or on job records, and reports whether a job
// was added.
func (q *Queue) Enqueue(_ context.Context, req recreate.Request) bool {
	if req.ArticleID == "" {
		return false
	}

	q.mu.Lock()
	if q.isQueuedLocked(req.ArticleID) {
		q.mu.Unlock()
		q.log.LogDebugf("Article %s already queued or processing", req.ArticleID)
		return false
	}
	job := Job{ID: uuid.NewString(), Request: req, EnqueuedAt: time.Now()}
	q.pending = append(q.pending, job)
	q.queued[req.ArticleID] = struct{}{}
	q.journal.push(record{stage: "pending", articleID: req.ArticleID, write: func(ctx context.Context) error {
		return q.journal.recorder.RecordPending(ctx, job.ID, req)
	}})
	st := q.statusLocked()
	q.mu.Unlock()

	q.publishDepth(st)
	q.log.LogInfof("Queued article %s for recreation (queue size: %d)", req.ArticleID, st.Pending)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Status never blocks on job processing and never mutates state.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statusLocked()
}

// IsQueued reports whether the article is pending or being processed.
func (q *Queue) IsQueued(articleID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isQueuedLocked(articleID)
}

// Pending returns a copy of the waiting jobs in processing order.
func (q *Queue) Pending() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, len(q.pending))
	copy(out, q.pending)
	return out
}

func (q *Queue) isQueuedLocked(articleID string) bool {
	if _, ok := q.queued[articleID]; ok {
		return true
	}
	_, ok := q.processing[articleID]
	return ok
}

func (q *Queue) statusLocked() Status {
	return Status{Pending: len(q.pending), Processing: len(q.processing)}
}

// Run drains the queue until ctx is cancelled. Only the first concurrent
// call does any work; others return immediately. Jobs still pending at
// shutdown are dropped; their records are flushed before Run returns.
func (q *Queue) Run(ctx context.Context) {
	if !q.running.CompareAndSwap(false, true) {
		q.log.LogWarn("Queue worker already running")
		return
	}
	defer q.running.Store(false)

	if q.journal != nil {
		stop, flushed := make(chan struct{}), make(chan struct{})
		go func() {
			defer close(flushed)
			q.journal.run(stop)
		}()
		defer func() {
			close(stop)
			<-flushed
		}()
	}
	q.log.LogInfof("Queue worker started (cooldown %v)", q.cooldown)

	for {
		job, ok := q.next()
		if !ok {
			select {
			case <-ctx.Done():
				q.stopped()
				return
			case <-q.wake:
				continue
			}
		}

		q.process(ctx, job)

		if q.cooldown > 0 {
			timer := time.NewTimer(q.cooldown)
			select {
			case <-ctx.Done():
				timer.Stop()
				q.stopped()
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			q.stopped()
			return
		}
	}
}

// next moves the oldest pending job into the single processing slot.
func (q *Queue) next() (Job, bool) {
	q.mu.Lock()
	if len(q.pending) == 0 || len(q.processing) > 0 {
		q.mu.Unlock()
		return Job{}, false
	}
	job := q.pending[0]
	q.pending[0] = Job{}
	q.pending = q.pending[1:]
	delete(q.queued, job.ArticleID)
	q.processing[job.ArticleID] = job
	q.journal.push(record{stage: "processing", articleID: job.ArticleID, write: func(ctx context.Context) error {
		return q.journal.recorder.RecordProcessing(ctx, job.ArticleID)
	}})
	st := q.statusLocked()
	q.mu.Unlock()

	q.publishDepth(st)
	return job, true
}

func (q *Queue) process(ctx context.Context, job Job) {
	start := time.Now()
	q.log.LogInfof("Processing article %s (job %s, waited %v)", job.ArticleID, job.ID, start.Sub(job.EnqueuedAt).Round(time.Millisecond))

	out, outcome := q.run(ctx, job)
	elapsed := time.Since(start)

	q.mu.Lock()
	delete(q.processing, job.ArticleID)
	// pushed before the lock drops so a re-enqueue of the article records after it
	q.journal.push(record{stage: "finished", articleID: job.ArticleID, write: func(ctx context.Context) error {
		return q.journal.recorder.RecordFinished(ctx, job.ArticleID, out)
	}})
	st := q.statusLocked()
	q.mu.Unlock()

	q.publishDepth(st)
	if q.metrics != nil {
		q.metrics.ObserveJob(outcome, elapsed)
	}

	switch outcome {
	case OutcomeRecreated:
		q.log.LogSuccessf("Recreated image for article %s in %v", job.ArticleID, elapsed.Round(time.Millisecond))
	case OutcomeCached:
		q.log.LogInfof("Article %s already had a thumbnail", job.ArticleID)
	default:
		q.log.LogWarnf("Recreation for article %s did not produce an image (%s)", job.ArticleID, outcome)
	}
}

// run calls the engine, turning a panic into a discarded job.
func (q *Queue) run(ctx context.Context, job Job) (out recreate.Outcome, outcome string) {
	defer func() {
		if r := recover(); r != nil {
			q.log.LogErrorf("Recreation for article %s panicked: %v", job.ArticleID, r)
			out, outcome = recreate.Outcome{URL: job.OriginalImageURL}, OutcomePanic
		}
	}()
	out = q.engine.Recreate(ctx, job.Request)
	switch {
	case out.Recreated:
		return out, OutcomeRecreated
	case out.Cached:
		return out, OutcomeCached
	default:
		return out, OutcomeFallback
	}
}

func (q *Queue) publishDepth(st Status) {
	if q.metrics != nil {
		q.metrics.SetQueueDepth(st.Pending, st.Processing)
	}
}

func (q *Queue) stopped() {
	st := q.Status()
	if st.Pending > 0 {
		q.log.LogWarnf("Queue worker stopped with %d job(s) still pending", st.Pending)
		return
	}
	q.log.LogInfo("Queue worker stopped")
}
