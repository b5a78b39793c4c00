package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"IntelBrief/internal/collector"
	"IntelBrief/internal/config"
	"IntelBrief/internal/dedup"
	"IntelBrief/internal/domain"
	"IntelBrief/internal/extractor"
	"IntelBrief/internal/httpapi"
	"IntelBrief/internal/infrastructure/llm"
	"IntelBrief/internal/infrastructure/scheduler"
	"IntelBrief/internal/infrastructure/sources"
	"IntelBrief/internal/infrastructure/storage"
	"IntelBrief/internal/infrastructure/telegram"
	"IntelBrief/internal/logging"
	"IntelBrief/internal/metrics"
	"IntelBrief/internal/model"
	"IntelBrief/internal/ports"
	"IntelBrief/internal/report"
	"IntelBrief/internal/trends"
	"IntelBrief/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	artifacts *storage.FileArtifacts
	pipeline  *usecase.Pipeline
}

// New builds every adapter from cfg. The video fetcher is only registered
// when a YouTube API key is configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	fetchers := collector.NewRegistry(
		sources.NewFeedFetcher(httpClient),
		sources.NewForumFetcher(httpClient, sources.ForumConfig{
			BaseURL:   cfg.Forum.BaseURL,
			UserAgent: cfg.Forum.UserAgent,
			Retries:   cfg.Forum.Retries,
		}),
	)
	if cfg.YouTube.APIKey != "" {
		video, err := sources.NewVideoFetcher(ctx, cfg.YouTube.APIKey)
		if err != nil {
			return nil, fmt.Errorf("video fetcher: %w", err)
		}
		fetchers.Register(video)
	} else {
		baseLogger.Info("youtube api key not set, video sources disabled")
	}

	cache := dedup.NewCache(cfg.Dedup.CacheFile, baseLogger.With("component", "dedup"))
	harvester := collector.New(fetchers, cache, collector.Options{Dedup: cfg.Dedup.Enabled}, rec,
		baseLogger.With("component", "collector"))

	invoker := model.NewInvoker(newEndpoint(cfg), model.Config{
		Primary:  cfg.Model.Primary,
		Fallback: cfg.Model.Fallback,
		Timeout:  cfg.Model.Timeout,
	}, rec, baseLogger.With("component", "model"))

	artifacts := storage.NewFileArtifacts(cfg.Storage.Dir)

	var notifier ports.ReviewNotifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Collector: harvester,
		Cache:     cache,
		Analysts:  analystFactory(cfg, invoker, baseLogger),
		Artifacts: artifacts,
		Notifier:  notifier,
		Metrics:   rec,
		Logger:    baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		registry:  reg,
		artifacts: artifacts,
		pipeline:  pipeline,
	}, nil
}

func newEndpoint(cfg config.Config) ports.TextGenerator {
	if cfg.Model.Provider == config.ProviderOpenAI {
		return llm.NewOpenAIClient(cfg.OpenAI)
	}
	return llm.NewOllamaClient(cfg.Ollama.Host)
}

// analystFactory binds the per-run model selection and report toggles to
// fresh extractor, aggregator and composer instances.
func analystFactory(cfg config.Config, invoker *model.Invoker, logger *slog.Logger) usecase.AnalystFactory {
	return func(settings domain.RunSettings) usecase.Analysts {
		gen := invoker.WithModels(settings.Model, settings.FallbackModel)
		extraction := model.Options{Temperature: cfg.Model.Temperature, MaxTokens: cfg.Model.ExtractionMaxTokens}
		reporting := model.Options{Temperature: cfg.Model.Temperature, MaxTokens: cfg.Model.ReportMaxTokens}

		maxItems := 0
		if settings.Quick {
			maxItems = cfg.Extraction.QuickMaxItems
		}

		return usecase.Analysts{
			Extractor: extractor.New(gen, extractor.Config{
				MaxContentLength: cfg.Extraction.MaxContentLength,
				MaxItems:         maxItems,
				KeyPoints:        extraction,
				Sentiment:        extraction,
			}, logger.With("component", "extractor")),
			Trends: trends.New(gen, trends.Config{
				Topics:      cfg.Topics.Trend,
				OtherBucket: cfg.Topics.OtherBucket,
				Options:     extraction,
			}, logger.With("component", "trends")),
			Composer: report.New(gen, report.Config{
				Topics:                 cfg.Topics.Report,
				OtherBucket:            cfg.Topics.OtherBucket,
				MaxSections:            cfg.Report.MaxSections,
				MaxBriefLength:         settings.MaxLength,
				TitleTemplate:          cfg.Report.TitleTemplate,
				ReportFormat:           settings.ReportFormat,
				IncludeSummary:         settings.IncludeSummary,
				IncludeRecommendations: settings.IncludeRecommendations,
				GenerationModel:        gen.PrimaryModel(),
				Section:                reporting,
				Summary:                reporting,
				Recommendations:        reporting,
			}, logger.With("component", "composer")),
		}
	}
}

// Pipeline exposes the orchestrator.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// RunOnce starts a single run and blocks until it leaves the active stages.
func (a *Application) RunOnce(ctx context.Context, settings domain.RunSettings) (domain.PipelineRun, error) {
	if _, err := a.pipeline.Start(ctx, settings); err != nil {
		return a.pipeline.Status(), err
	}
	return a.pipeline.Wait(ctx)
}

// Serve runs the HTTP API and, when enabled, the cron scheduler until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	server := httpapi.New(httpapi.Deps{
		Runner:   a.pipeline,
		Briefs:   a.artifacts,
		Defaults: a.cfg.DefaultSettings,
		Gatherer: a.registry,
		Logger:   a.logger.With("component", "http"),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http api listening", "addr", a.cfg.Server.Addr)
		return server.Run(ctx, a.cfg.Server.Addr)
	})

	if a.cfg.Scheduler.Enabled {
		driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
		if err != nil {
			return err
		}
		sched := usecase.NewScheduler(driver, a.pipeline, a.cfg.DefaultSettings, a.logger.With("component", "scheduler"))
		g.Go(func() error {
			if err := sched.Start(ctx); err != nil {
				return err
			}
			a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "next", driver.Next(time.Now()))
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return sched.Stop(stopCtx)
		})
	}

	return g.Wait()
}
