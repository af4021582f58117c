// Package app assembles the venuewatch object graph from configuration.
// The HTTP server and the venuectl CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/config"
	"github.com/venuewatch/venuewatch/internal/control"
	"github.com/venuewatch/venuewatch/internal/database"
	"github.com/venuewatch/venuewatch/internal/enrichment"
	"github.com/venuewatch/venuewatch/internal/eventmanager"
	"github.com/venuewatch/venuewatch/internal/export"
	"github.com/venuewatch/venuewatch/internal/ingestion"
	"github.com/venuewatch/venuewatch/internal/metrics"
	"github.com/venuewatch/venuewatch/internal/models"
	"github.com/venuewatch/venuewatch/internal/notify"
	"github.com/venuewatch/venuewatch/internal/scheduler"
	"github.com/venuewatch/venuewatch/internal/venues"
)

// App holds every long-lived component.
type App struct {
	Config        config.Config
	Logger        *slog.Logger
	Clock         clock.Clock
	Repo          ingestion.EventRepository
	Venues        *venues.Registry
	Collector     *ingestion.MultiCollector
	Pipeline      *enrichment.Pipeline
	Notifications *notify.RingSink
	Orchestrator  *eventmanager.Orchestrator
	Automation    *scheduler.AutomationContext
	Approvals     *eventmanager.ApprovalService
	Stats         *eventmanager.StatsService
	Surface       *control.Surface
	Exporter      *export.Exporter
	Metrics       *metrics.HTTPCollector
	CycleRuns     *database.CycleRunRepository
	DBHealth      *database.Health

	closers []io.Closer
}

// New builds the application. Callers must Close the result.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Clock: clock.NewSystem()}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	httpMetrics, err := metrics.NewHTTPCollector()
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}
	a.Metrics = httpMetrics
	cycles, err := metrics.NewCycleCollector(httpMetrics.Registry())
	if err != nil {
		return fmt.Errorf("initialize cycle metrics: %w", err)
	}

	if err := a.openStore(ctx); err != nil {
		return err
	}

	if cfg.Sources.VenuesFile != "" {
		registry, err := venues.LoadFile(cfg.Sources.VenuesFile)
		if err != nil {
			return fmt.Errorf("load venues: %w", err)
		}
		a.Venues = registry
	} else {
		a.Venues = venues.Default()
	}
	a.Logger.Info("venue registry loaded", "venues", a.Venues.Len())

	a.Collector = ingestion.NewMultiCollector(ingestion.NewStandardCollectors(a.capability(), a.Logger), a.Logger)
	a.Pipeline = a.pipeline(cycles)

	sink, err := a.sinks()
	if err != nil {
		return err
	}
	notifier := notify.NewNotifier(sink, a.Clock, a.Logger)

	opts := []eventmanager.Option{eventmanager.WithMetrics(cycles)}
	if a.CycleRuns != nil {
		opts = append(opts, eventmanager.WithCycleRecorder(a.CycleRuns))
	}
	if cfg.Export.S3Bucket != "" {
		dest, err := export.NewS3Destination(ctx, cfg.Export.S3Bucket, cfg.Export.S3Key, cfg.Export.S3Region, cfg.Export.S3Endpoint)
		if err != nil {
			return fmt.Errorf("configure export: %w", err)
		}
		a.Exporter = export.NewExporter(a.Repo, a.Clock, a.Logger, dest)
		opts = append(opts, eventmanager.WithAfterCycle(a.Exporter.AfterCycle))
	}

	a.Orchestrator = eventmanager.NewOrchestrator(
		a.Venues,
		a.Collector,
		a.Repo,
		a.Pipeline,
		notifier,
		a.Clock,
		a.Logger,
		eventmanager.Config{BatchSize: cfg.Automation.BatchSize, BatchDelay: cfg.Automation.BatchDelay},
		opts...,
	)

	a.Automation = scheduler.NewAutomationContext(
		a.Orchestrator,
		scheduler.NewTickerScheduler(a.Logger),
		scheduler.Config{FullInterval: cfg.Automation.FullInterval, LightweightInterval: cfg.Automation.LightweightInterval},
		a.Clock,
		a.Logger,
	)
	a.Approvals = eventmanager.NewApprovalService(a.Repo, a.Logger)
	a.Stats = eventmanager.NewStatsService(a.Repo, a.Venues, a.Automation, a.Orchestrator, a.Collector, a.Clock)
	a.Surface = control.New(a.Automation, a.Orchestrator, a.Approvals, a.Stats, a.Notifications, a.Logger)
	return nil
}

func (a *App) openStore(ctx context.Context) error {
	storage := a.Config.Storage
	switch storage.Backend {
	case "postgres":
		dbCfg := database.DefaultConfig()
		dbCfg.URL = storage.DatabaseURL
		db, err := database.Connect(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db)
		if err := database.RunMigrations(db.DB, a.Logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		a.Repo = database.NewPostgresEventRepository(db, a.Clock)
		a.CycleRuns = database.NewCycleRunRepository(db)
		a.DBHealth = database.NewHealth(db)
	case "file":
		repo, err := ingestion.NewFileEventRepository(storage.FilePath, a.Logger, ingestion.WithClock(a.Clock))
		if err != nil {
			return fmt.Errorf("open event file: %w", err)
		}
		a.Repo = repo
	default:
		a.Repo = ingestion.NewMemoryEventRepository(ingestion.WithClock(a.Clock))
	}
	a.Logger.Info("event store ready", "backend", storage.Backend)
	return nil
}

func (a *App) capability() ingestion.DataSourceCapability {
	src := a.Config.Sources
	if src.Mode == "live" {
		bases := make(map[models.SourceChannel]string, 2)
		for channel, base := range map[models.SourceChannel]string{
			models.SourceChannelA: src.ChannelAURL,
			models.SourceChannelB: src.ChannelBURL,
		} {
			if base == "" {
				a.Logger.Warn("no page prefix configured; channel will report unavailable", "channel", channel)
				continue
			}
			bases[channel] = base
		}
		return ingestion.NewLiveSource(ingestion.LiveSourceConfig{
			Timeout:         src.HTTPTimeout,
			UserAgent:       src.UserAgent,
			RetryPolicy:     ingestion.DefaultRetryPolicy(),
			ChannelBaseURLs: bases,
		}, a.Clock, a.Logger)
	}
	return ingestion.NewSyntheticSource(a.Clock, uint64(a.Clock.Now().UnixNano()))
}

func (a *App) pipeline(cycles *metrics.CycleCollector) *enrichment.Pipeline {
	cfg := a.Config
	opts := []enrichment.Option{enrichment.WithFallbackHook(cycles.ObserveFallback)}

	switch cfg.Enrichment.Provider {
	case "openai":
		oc := enrichment.DefaultOpenAIConfig()
		oc.APIKey = cfg.Enrichment.OpenAIKey
		if cfg.Enrichment.Model != "" {
			oc.Model = cfg.Enrichment.Model
		}
		if cfg.Enrichment.RequestsPerMinute > 0 {
			oc.RequestsPerMinute = cfg.Enrichment.RequestsPerMinute
		}
		client := enrichment.NewOpenAIClient(oc, a.Logger)
		opts = append(opts, enrichment.WithDescriber(client))
		if cfg.Enrichment.GenerateImages {
			opts = append(opts, enrichment.WithImageGenerator(client))
		}
	case "openrouter":
		opts = append(opts, enrichment.WithDescriber(enrichment.NewOpenRouterDescriber(enrichment.OpenRouterConfig{
			APIKey:            cfg.Enrichment.OpenRouterKey,
			Model:             cfg.Enrichment.Model,
			RequestsPerMinute: cfg.Enrichment.RequestsPerMinute,
		}, a.Logger)))
	}

	return enrichment.NewPipeline(enrichment.PipelineConfig{
		FullDelay:        cfg.Automation.FullEnrichmentDelay,
		LightweightDelay: cfg.Automation.LightweightEnrichmentDelay,
	}, a.Logger, opts...)
}

func (a *App) sinks() (notify.Sink, error) {
	n := a.Config.Notify
	a.Notifications = notify.NewRingSink(n.RingCapacity)
	sinks := []notify.Sink{a.Notifications}

	if n.NATSURL != "" {
		ns, err := notify.NewNATSSink(n.NATSURL, n.NATSSubject)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ns)
		sinks = append(sinks, ns)
		a.Logger.Info("publishing notifications to NATS", "subject", n.NATSSubject)
	}
	if n.TelegramToken != "" {
		ts, err := notify.NewTelegramSink(n.TelegramToken, n.TelegramChatID)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ts)
		a.Logger.Info("sending new-event notifications to telegram", "chat_id", n.TelegramChatID)
	}
	return notify.NewMultiSink(a.Logger, sinks...), nil
}

// Close stops automation and releases connections in reverse order.
func (a *App) Close() error {
	if a.Automation != nil {
		a.Automation.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

