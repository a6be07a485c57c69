package news

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"newslk/internal/core/category"
	tasks "newslk/internal/platform/tasks"
)

const defaultWarmLimit = 10

// WarmPayload selects the feed a warm task reads. An empty category means
// the latest news.
type WarmPayload struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit"`
}

// NewWarmTask builds a thumbnails:warm task.
func NewWarmTask(p WarmPayload) (*asynq.Task, error) {
	if p.Limit <= 0 {
		p.Limit = defaultWarmLimit
	}
	if p.Category != "" {
		c, ok := category.Parse(p.Category)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", p.Category)
		}
		p.Category = string(c)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(tasks.TaskTypeWarm, payload), nil
}

// HandleWarmTask runs a warm task from the worker.
func (s *Service) HandleWarmTask(ctx context.Context, task *asynq.Task) error {
	var p WarmPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("invalid warm payload: %v: %w", err, asynq.SkipRetry)
	}
	var cat category.Category
	if p.Category != "" {
		c, ok := category.Parse(p.Category)
		if !ok {
			return fmt.Errorf("unknown category %q: %w", p.Category, asynq.SkipRetry)
		}
		cat = c
	}
	if p.Limit <= 0 {
		p.Limit = defaultWarmLimit
	}

	queued, err := s.Warm(ctx, cat, p.Limit)
	if err != nil {
		return fmt.Errorf("warm %q: %w", p.Category, err)
	}
	feed := p.Category
	if feed == "" {
		feed = "latest"
	}
	s.log.LogInfof("Warm %s feed queued %d recreation(s)", feed, queued)
	return nil
}
