package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"

	"newslk/internal/config"
	"newslk/internal/core/job"
	"newslk/internal/core/news"
	"newslk/internal/core/prompt"
	"newslk/internal/core/provider"
	"newslk/internal/core/queue"
	"newslk/internal/core/recreate"
	"newslk/internal/core/thumbnail"
	"newslk/internal/logger"
	"newslk/internal/platform/eino"
	"newslk/internal/platform/metrics"
	rds "newslk/internal/platform/redis"
	tasks "newslk/internal/platform/tasks"
	"newslk/internal/server"
	"newslk/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[newslk] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	defer taskClient.Close()
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{"default": 1},
	})

	m, err := metrics.New()
	if err != nil {
		log.Fatal(err)
	}

	// Thumbnail store
	backend, err := thumbnail.NewBackend(cfg)
	if err != nil {
		log.Fatalf("failed to initialize thumbnail storage: %v", err)
	}
	store := thumbnail.New(backend, thumbnail.Options{})
	logr.LogInfof("Thumbnails stored in %s backend", store.BackendName())

	// Gemini is optional; without it prompts use the fixed template and
	// imagen is skipped. Interfaces stay nil rather than holding a nil *Service.
	var (
		promptAnalyzer  prompt.Analyzer
		handlerAnalyzer recreate.Analyzer
		imagen          provider.ImageGenerator
		categorizer     news.Categorizer
	)
	einoSvc, err := eino.NewService(eino.Config{
		Provider:    cfg.LLMProvider,
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.DefaultLLMModel,
		VisionModel: cfg.VisionModel,
		ImagenModel: cfg.ImagenModel,
		Observer:    m,
	})
	switch {
	case errors.Is(err, eino.ErrNotConfigured):
		logr.LogWarn("GEMINI_API_KEY not set, image analysis and imagen disabled")
	case err != nil:
		log.Fatalf("failed to initialize Gemini service: %v", err)
	default:
		promptAnalyzer, handlerAnalyzer, imagen = einoSvc, einoSvc, einoSvc
		if cfg.AICategorization {
			categorizer = einoSvc
		}
	}

	// Recreation pipeline
	providers := provider.Build(cfg.ImageProviders, provider.Config{
		ReplicateAPIKey:   cfg.ReplicateAPIKey,
		HuggingFaceAPIKey: cfg.HuggingFaceAPIKey,
		DeepAIAPIKey:      cfg.DeepAIAPIKey,
		Imagen:            imagen,
	})
	chain := provider.NewChain(providers...).WithObserver(m)
	logr.LogInfof("Image providers: %v", chain.Names())

	engine := recreate.NewEngine(store, chain, prompt.NewBuilder(promptAnalyzer), recreate.Options{
		Method: cfg.ImageRecreationMethod,
	})
	jobSvc := job.NewService(redisSvc)
	recreationQueue := queue.New(engine, queue.Options{
		Cooldown: cfg.RecreationCooldown,
		Recorder: jobSvc,
		Metrics:  m,
	})

	// News read path
	newsSvc := news.NewService(
		news.NewClient(cfg.NewsAPIBaseURL, cfg.NewsAPITimeout, nil),
		redisSvc, store, recreationQueue,
		news.Options{
			Recreation:  cfg.RecreationEnabled(),
			CacheTTL:    cfg.NewsCacheTTL,
			Categorizer: categorizer,
			Metrics:     m,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	queueDone := make(chan struct{})
	go func() {
		recreationQueue.Run(ctx)
		close(queueDone)
	}()

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(tasks.TaskTypeWarm, newsSvc.HandleWarmTask)
	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	var scheduler *tasks.Scheduler
	if cfg.RecreationEnabled() && cfg.WarmCron != "" {
		warm, err := news.NewWarmTask(news.WarmPayload{Limit: cfg.WarmLimit})
		if err != nil {
			log.Fatalf("failed to build warm task: %v", err)
		}
		scheduler = tasks.NewScheduler(redisSvc)
		if _, err := scheduler.Register(cfg.WarmCron, warm, "default"); err != nil {
			log.Fatalf("failed to schedule warm task: %v", err)
		}
		if err := scheduler.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
		logr.LogInfof("Thumbnail warm scheduled (%s)", cfg.WarmCron)
	}

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "NewsLK",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})
	app.Use(recover.New())
	// Thumbnails kept on local disk are served from DATA_DIR under /files
	app.Static("/files", cfg.DataDir)

	healthHandler := server.RegisterRoutes(app, server.Dependencies{
		Jobs:           jobSvc,
		News:           newsSvc,
		Queue:          recreationQueue,
		Engine:         engine,
		Thumbnails:     store,
		Metrics:        m,
		Analyzer:       handlerAnalyzer,
		Tasks:          taskClient,
		TaskMaxRetries: cfg.TaskMaxRetries,
		Redis:          redisSvc,
	})
	healthHandler.SetReady()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		cancel()
		if scheduler != nil {
			scheduler.Shutdown()
		}
		asynqServer.Shutdown()
		select {
		case <-queueDone:
		case <-time.After(5 * time.Second):
			logr.LogWarn("Recreation queue did not stop in time")
		}
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
