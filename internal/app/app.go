package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsRadar/internal/config"
	"NewsRadar/internal/infrastructure/discord"
	"NewsRadar/internal/infrastructure/github"
	"NewsRadar/internal/infrastructure/llm"
	"NewsRadar/internal/infrastructure/scheduler"
	"NewsRadar/internal/infrastructure/storage"
	"NewsRadar/internal/infrastructure/xapi"
	"NewsRadar/internal/logging"
	"NewsRadar/internal/usecase"
)

// Application wires configs to pipelines and lifecycle orchestration. All
// external clients are constructed once here and injected, so tests can
// substitute fakes at every seam.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	redis   *redis.Client
	social  *usecase.Pipeline
	repo    *usecase.Pipeline
	cleanup *usecase.Cleanup
	sched   *scheduler.Scheduler
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	if cfg.Oracle.APIKey == "" {
		return nil, fmt.Errorf("oracle api key is required")
	}
	model, err := llm.NewGeminiModel(ctx, cfg.Oracle.APIKey)
	if err != nil {
		return nil, err
	}

	publisher := discord.NewPublisher(cfg.Discord, nil, baseLogger.With("component", "publisher"))

	socialStore := storage.NewRedisStore(client, "", baseLogger.With("component", "store.social"))
	repoStore := storage.NewRedisStore(client, "gh_", baseLogger.With("component", "store.repo"))

	social := usecase.NewPipeline(usecase.PipelineDeps{
		Name:          "social",
		Fetcher:       xapi.NewFetcher(cfg.Social, nil, baseLogger.With("component", "fetcher.social")),
		Scorer:        llm.NewScorer(model, cfg.Oracle.Model, cfg.Social.Rubric, baseLogger.With("component", "scorer.social")),
		Store:         socialStore,
		Publisher:     publisher,
		TopN:          cfg.Social.TopN,
		MinEngagement: cfg.Social.MinEngagement,
		Logger:        baseLogger,
	})

	repo := usecase.NewPipeline(usecase.PipelineDeps{
		Name:      "repository",
		Fetcher:   github.NewFetcher(cfg.GitHub, nil, baseLogger.With("component", "fetcher.repo")),
		Scorer:    llm.NewScorer(model, cfg.Oracle.Model, cfg.GitHub.Rubric, baseLogger.With("component", "scorer.repo")),
		Store:     repoStore,
		Publisher: publisher,
		TopN:      cfg.GitHub.TopN,
		Logger:    baseLogger,
	})

	cleanup := usecase.NewCleanup(publisher, baseLogger.With("component", "cleanup"), socialStore, repoStore)

	sched := scheduler.New(
		cfg.Scheduler.Location(),
		cfg.Scheduler.StartHour,
		cfg.Scheduler.EndHour,
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:     cfg,
		logger:  baseLogger,
		redis:   client,
		social:  social,
		repo:    repo,
		cleanup: cleanup,
		sched:   sched,
	}, nil
}

// Run registers the scheduled jobs, fires one initial social cycle, and
// blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	socialEvery := time.Duration(a.cfg.Social.FetchInterval) * time.Minute
	repoEvery := time.Duration(a.cfg.GitHub.CheckInterval) * time.Minute

	if err := a.sched.AddEvery("social-pipeline", socialEvery, a.social.Run); err != nil {
		return err
	}
	if err := a.sched.AddEvery("repository-pipeline", repoEvery, a.repo.Run); err != nil {
		return err
	}
	if err := a.sched.AddDaily("midnight-cleanup", a.cleanup.Run); err != nil {
		return err
	}

	a.logger.Info("running initial pipeline cycle")
	if err := a.social.Run(ctx); err != nil {
		a.logger.Error("initial cycle failed", "error", err)
	}

	a.sched.Start(ctx)
	a.logger.Info("scheduler started",
		"social_interval", socialEvery,
		"repo_interval", repoEvery,
		"hours", fmt.Sprintf("%02d-%02d", a.cfg.Scheduler.StartHour, a.cfg.Scheduler.EndHour),
	)

	<-ctx.Done()

	a.logger.Info("shutting down")
	a.sched.Stop()
	if err := a.redis.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
