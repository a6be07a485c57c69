package server

import (
	"newslk/internal/core/job"
	"newslk/internal/core/news"
	"newslk/internal/core/queue"
	"newslk/internal/core/recreate"
	"newslk/internal/core/thumbnail"
	"newslk/internal/health"
	"newslk/internal/platform/metrics"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Jobs       *job.Service
	News       *news.Service
	Queue      *queue.Queue
	Engine     *recreate.Engine
	Thumbnails *thumbnail.Store
	Metrics    *metrics.Metrics
	// Analyzer and Tasks may be nil; the endpoints using them answer 503.
	Analyzer       recreate.Analyzer
	Tasks          news.TaskEnqueuer
	TaskMaxRetries int
	Redis          health.Checker
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	// Health endpoints
	healthHandler := health.NewHealthHandler(map[string]health.Checker{
		"redis":      d.Redis,
		"thumbnails": d.Thumbnails,
	})
	app.Get("/api/health", health.HealthLimiter(), healthHandler.HandleHealth)

	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics.Handler())
	}

	api := app.Group("/api")

	newsHandler := news.NewHandler(d.News, d.Tasks, d.TaskMaxRetries)
	api.Get("/news", newsHandler.HandleList)
	api.Get("/articles/:id", newsHandler.HandleGet)

	recreateHandler := recreate.NewHandler(d.Engine, d.Analyzer)
	api.Post("/recreate-image", recreateHandler.HandleRecreate)
	api.Post("/recreate-image/batch", recreateHandler.HandleBatch)
	api.Get("/recreate-image/analyze", recreateHandler.HandleAnalyze)

	queueHandler := queue.NewHandler(d.Queue)
	jobHandler := job.NewHandler(d.Jobs)
	api.Get("/recreation-queue/status", queueHandler.HandleStatus)
	api.Get("/recreation-queue/jobs/:articleId", jobHandler.HandleGet)
	api.Post("/recreation-queue/warm", newsHandler.HandleWarm)

	thumbHandler := thumbnail.NewHandler(d.Thumbnails)
	api.Get("/thumbnails/stats", thumbHandler.HandleStats)
	api.Get("/thumbnails", thumbHandler.HandleList)
	api.Delete("/thumbnails/:category/:articleId", thumbHandler.HandleDelete)

	return healthHandler
}
