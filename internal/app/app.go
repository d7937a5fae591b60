package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"NewsPublisher/internal/breaker"
	"NewsPublisher/internal/config"
	"NewsPublisher/internal/diversity"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/gate"
	"NewsPublisher/internal/infrastructure/llm"
	"NewsPublisher/internal/infrastructure/moderation"
	"NewsPublisher/internal/infrastructure/platform"
	"NewsPublisher/internal/infrastructure/scheduler"
	"NewsPublisher/internal/infrastructure/storage"
	"NewsPublisher/internal/infrastructure/telegram"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/ports"
	"NewsPublisher/internal/ratelimit"
	"NewsPublisher/internal/safety"
	"NewsPublisher/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg         config.Config
	logger      *slog.Logger
	db          *sql.DB
	coordinator *usecase.Coordinator
	ingestor    *usecase.Ingestor
	store       *storage.PostgresStore
}

// New builds a runnable application instance against a live database.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := storage.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	var alerts ports.AlertNotifier
	if cfg.Alerts.Telegram.BotToken != "" && cfg.Alerts.Telegram.ChatID != "" {
		alerts = telegram.NewNotifier(cfg.Alerts.Telegram.BotToken, cfg.Alerts.Telegram.ChatID)
	}

	var remote ports.RiskScorer
	if cfg.Moderation.APIKey != "" {
		quota := ratelimit.NewQuota(time.Hour, cfg.Moderation.CallsPerHour)
		remote = moderation.NewClient(cfg.Moderation.Endpoint, cfg.Moderation.Model, cfg.Moderation.APIKey, quota)
	}

	scorer := safety.NewScorer(safety.DefaultRegistry(), remote, cfg.Safety.Threshold,
		logging.Component(baseLogger, "safety"))
	tracker := diversity.NewTracker(diversity.Config{
		CategoryThreshold: cfg.Diversity.CategoryThreshold,
		RegionThreshold:   cfg.Diversity.RegionThreshold,
		MaxAxisPenalty:    cfg.Diversity.MaxAxisPenalty,
	})

	breakerCfg := breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		FailureWindow:    time.Duration(cfg.Breaker.FailureWindowSecs) * time.Second,
		Cooldown:         time.Duration(cfg.Breaker.CooldownSecs) * time.Second,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
	}
	onOpen := breakerAlert(alerts, logging.Component(baseLogger, "breaker"))

	coordinator := usecase.NewCoordinator(usecase.CoordinatorDeps{
		Store:     store,
		Safety:    scorer,
		Diversity: tracker,
		Gate:      gate.New(cfg.Coordinator.AdmitThreshold),
		Caption:   llm.NewCaptioner(cfg.Caption),
		Platform:  platform.NewInstagramClient(cfg.Instagram),
		Alerts:    alerts,
		Logger:    logging.Component(baseLogger, "coordinator"),

		CaptionBreaker: breaker.New("caption-generation", breakerCfg, onOpen),
		PublishBreaker: breaker.New("platform-publish", breakerCfg, onOpen),
		Retry: breaker.RetryConfig{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
			MaxDelay:   time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     true,
		},

		Caps:              ratelimit.Caps{PerHour: cfg.Rate.PerHour, PerDay: cfg.Rate.PerDay},
		Lease:             cfg.Coordinator.Lease(),
		DiversityWindow:   cfg.Diversity.Window(),
		MaxSelectAttempts: cfg.Coordinator.MaxSelectAttempts,
		CommitRetries:     cfg.Coordinator.CommitRetries,
	})

	return &Application{
		cfg:         cfg,
		logger:      baseLogger,
		db:          db,
		coordinator: coordinator,
		ingestor:    usecase.NewIngestor(store, logging.Component(baseLogger, "ingest")),
		store:       store,
	}, nil
}

// breakerAlert surfaces breaker-open events to operators; expected
// failures stay in logs.
func breakerAlert(alerts ports.AlertNotifier, logger *slog.Logger) breaker.OnOpen {
	return func(name string) {
		if logger != nil {
			logger.Warn("circuit breaker opened", "dependency", name)
		}
		if alerts == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := alerts.Alert(ctx, "circuit breaker opened", "dependency: "+name); err != nil && logger != nil {
			logger.Warn("breaker alert failed", "error", err)
		}
	}
}

// RunCycle executes one coordinator cycle.
func (a *Application) RunCycle(ctx context.Context) usecase.CycleResult {
	return a.coordinator.RunCycle(ctx)
}

// Ingest reads a JSON array of raw items from the given path ("-" for
// stdin) and feeds them through the deduplicating ingestor.
func (a *Application) Ingest(ctx context.Context, path string) (usecase.IngestSummary, error) {
	var reader io.Reader
	if path == "" || path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return usecase.IngestSummary{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var items []domain.RawItem
	if err := json.NewDecoder(reader).Decode(&items); err != nil {
		return usecase.IngestSummary{}, fmt.Errorf("decode items: %w", err)
	}

	return a.ingestor.IngestBatch(ctx, items)
}

// Requeue applies the explicit recovery policy for failed candidates.
func (a *Application) Requeue(ctx context.Context, olderThan time.Duration) (int64, error) {
	return a.store.RequeueFailed(ctx, olderThan)
}

// RunLoop drives recurring cycles until the context ends.
func (a *Application) RunLoop(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval())
	loop := usecase.NewLoop(driver, a.coordinator)
	if err := loop.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return loop.Stop(context.Background())
}

// Close releases the database pool.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
