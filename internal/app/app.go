package app

import (
	"context"
	"log/slog"

	"aidigest/internal/config"
	"aidigest/internal/domain"
	"aidigest/internal/infrastructure/email"
	"aidigest/internal/infrastructure/feed"
	"aidigest/internal/infrastructure/llm"
	"aidigest/internal/infrastructure/scheduler"
	"aidigest/internal/infrastructure/slack"
	"aidigest/internal/logging"
	"aidigest/internal/ports"
	"aidigest/internal/server"
	"aidigest/internal/usecase"
)

// Application wires config to adapters, pipeline, trigger surface, and
// lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	server    *server.Server
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	sources := make([]domain.FeedSource, 0, len(cfg.Feeds))
	for _, fc := range cfg.Feeds {
		sources = append(sources, domain.FeedSource{Name: fc.Name, URL: fc.URL})
	}

	fetcher := feed.NewFetcher(nil, sources, feed.Options{
		Timeout:      cfg.Selection.FeedTimeout(),
		PerFeedLimit: cfg.Selection.PerFeedLimit,
		ExcerptLimit: cfg.Selection.ExcerptLimit,
	}, baseLogger.With("component", "fetcher"))

	summarizer := llm.NewOpenAIClient(cfg.OpenAI)

	var destinations []ports.Destination
	if cfg.Notifications.Slack.WebhookURL != "" {
		destinations = append(destinations, slack.NewNotifier(cfg.Notifications.Slack.WebhookURL))
	}
	if cfg.Notifications.Email.APIKey != "" && cfg.Notifications.Email.To != "" {
		destinations = append(destinations, email.NewNotifier(cfg.Notifications.Email))
	}

	dispatcher := usecase.NewDispatcher(destinations, baseLogger.With("component", "dispatcher"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     fetcher,
		Summarizer: summarizer,
		Dispatcher: dispatcher,
		Policy: usecase.SelectionPolicy{
			Window:      cfg.Selection.LookbackWindow(),
			MaxArticles: cfg.Selection.MaxArticles,
		},
		Logger: baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewDailyScheduler(cfg.Scheduler.Hour, cfg.Scheduler.Minute, cfg.Scheduler.Location())

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		pipeline:  pipeline,
		server:    server.New(cfg.Server.Addr, pipeline, baseLogger.With("component", "server")),
		scheduler: usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler")),
	}
}

// Run starts the daily timer and serves the HTTP trigger surface until ctx
// is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = a.scheduler.Stop(context.Background())
	}()

	return a.server.Run(ctx)
}

// RunOnce performs a single pipeline execution, used by the one-shot CLI mode.
func (a *Application) RunOnce(ctx context.Context) (domain.DigestResult, error) {
	return a.pipeline.Execute(ctx)
}
