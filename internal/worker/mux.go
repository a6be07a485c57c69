package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"newslk/internal/logger"
)

// Mux routes asynq tasks to handlers and logs each run.
type Mux struct {
	mux *asynq.ServeMux
	log *logger.Logger
}

func NewMux() *Mux {
	m := &Mux{mux: asynq.NewServeMux(), log: logger.New("Worker")}
	m.mux.Use(m.logging)
	return m
}

func (m *Mux) HandleFunc(t string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(t, h)
}

func (m *Mux) Mux() *asynq.ServeMux { return m.mux }

func (m *Mux) logging(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", task.Type(), r)
			}
			if err != nil {
				m.log.LogWarnf("Task %s failed after %v: %v", task.Type(), time.Since(start).Round(time.Millisecond), err)
				return
			}
			m.log.LogDebugf("Task %s done in %v", task.Type(), time.Since(start).Round(time.Millisecond))
		}()
		return next.ProcessTask(ctx, task)
	})
}
