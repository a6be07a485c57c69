package tasks

import (
	"newslk/internal/platform/redis"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeWarm reads a news feed so thumbnail misses get queued.
	TaskTypeWarm = "thumbnails:warm"
)

type Client struct{ c *asynq.Client }

func New(r *redis.Service) *Client { return &Client{c: asynq.NewClient(r.AsynqRedisOpt())} }

func (t *Client) Enqueue(task *asynq.Task, queue string, maxRetries int) error {
	_, err := t.c.Enqueue(task, asynq.Queue(queue), asynq.MaxRetry(maxRetries))
	return err
}

func (t *Client) Close() error { return t.c.Close() }

// Scheduler registers periodic tasks.
type Scheduler struct{ s *asynq.Scheduler }

func NewScheduler(r *redis.Service) *Scheduler {
	return &Scheduler{s: asynq.NewScheduler(r.AsynqRedisOpt(), nil)}
}

// Register runs task on the cron spec ("@every 15m", "*/10 * * * *").
func (s *Scheduler) Register(spec string, task *asynq.Task, queue string) (string, error) {
	return s.s.Register(spec, task, asynq.Queue(queue))
}

func (s *Scheduler) Start() error { return s.s.Start() }
func (s *Scheduler) Shutdown()    { s.s.Shutdown() }
