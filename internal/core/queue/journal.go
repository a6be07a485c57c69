package queue

import (
	"context"
	"sync"
	"time"

	"newslk/internal/logger"
)

const (
	recordTimeout = 2 * time.Second
	maxBacklog    = 1000
)

type record struct {
	stage     string
	articleID string
	write     func(context.Context) error
}

// journal writes job records on its own goroutine in the order they were
// pushed. Callers push while holding the queue lock, so the stored lifecycle
// of an article always follows its path through the queue.
type journal struct {
	recorder Recorder
	log      *logger.Logger

	mu      sync.Mutex
	backlog []record
	wake    chan struct{}
}

func newJournal(recorder Recorder, log *logger.Logger) *journal {
	if recorder == nil {
		return nil
	}
	return &journal{recorder: recorder, log: log, wake: make(chan struct{}, 1)}
}

// push never blocks. A full backlog drops the record.
func (j *journal) push(r record) {
	if j == nil {
		return
	}
	j.mu.Lock()
	if len(j.backlog) >= maxBacklog {
		j.mu.Unlock()
		j.log.LogWarnf("Job record backlog full, dropped %s state for article %s", r.stage, r.articleID)
		return
	}
	j.backlog = append(j.backlog, r)
	j.mu.Unlock()

	select {
	case j.wake <- struct{}{}:
	default:
	}
}

func (j *journal) pop() (record, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.backlog) == 0 {
		return record{}, false
	}
	r := j.backlog[0]
	j.backlog[0] = record{}
	j.backlog = j.backlog[1:]
	return r, true
}

// run drains the backlog until stop closes, then flushes what is left under
// a single recordTimeout budget.
func (j *journal) run(stop <-chan struct{}) {
	for {
		for {
			select {
			case <-stop:
				j.flush()
				return
			default:
			}
			r, ok := j.pop()
			if !ok {
				break
			}
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			j.write(ctx, r)
			cancel()
		}

		select {
		case <-stop:
			j.flush()
			return
		case <-j.wake:
		}
	}
}

func (j *journal) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	for {
		r, ok := j.pop()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			j.log.LogWarnf("Shutdown dropped %s state for article %s", r.stage, r.articleID)
			continue
		}
		j.write(ctx, r)
	}
}

func (j *journal) write(ctx context.Context, r record) {
	if err := r.write(ctx); err != nil {
		j.log.LogWarnf("Could not record %s state for article %s: %v", r.stage, r.articleID, err)
	}
}
