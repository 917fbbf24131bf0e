package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"nudge/internal/clock"
	"nudge/internal/config"
	"nudge/internal/digest"
	"nudge/internal/domain"
	"nudge/internal/infrastructure/api"
	"nudge/internal/infrastructure/extract"
	"nudge/internal/infrastructure/fakeapi"
	"nudge/internal/infrastructure/fakestore"
	"nudge/internal/infrastructure/llm"
	"nudge/internal/infrastructure/scheduler"
	"nudge/internal/infrastructure/storage"
	"nudge/internal/infrastructure/telegram"
	"nudge/internal/logging"
	"nudge/internal/ports"
	"nudge/internal/usecase"
)

// ErrNoNotifier is returned when publishing without a configured channel.
var ErrNoNotifier = errors.New("no notification channel configured: set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	api       ports.ItemsAPI
	fake      *fakestore.Store
	assembler *digest.Assembler

	mu  sync.Mutex
	log *storage.DigestLog
}

// New selects the real or in-memory backend and the digest strategies.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	if cfg.API.UseFake {
		a.fake = newFakeStore(cfg, baseLogger)
		a.api = a.fake
	} else {
		a.api = api.NewClient(cfg.API)
	}

	registry := digest.NewRegistry()
	if cfg.ChatGPT.APIKey != "" {
		registry.Register(llm.NewChatGPTSummarizer(cfg.ChatGPT))
	}
	summarizer, err := registry.Resolve(cfg.Digest.Summarizer)
	if err != nil {
		baseLogger.Warn("falling back to heuristic summarizer", "error", err)
		summarizer = digest.HeuristicSummarizer{}
	}

	a.assembler = digest.NewAssembler(
		digest.NewHeuristicLabeler(cfg.Digest.Stopwords),
		summarizer,
		baseLogger.With("component", "digest"),
	)
	return a
}

func newFakeStore(cfg config.Config, logger *slog.Logger) *fakestore.Store {
	opts := fakestore.Options{
		Clock:        clock.Real{},
		QueueDelay:   cfg.Fake.QueueDelay,
		ProcessDelay: cfg.Fake.ProcessDelay,
		MinTextLen:   cfg.Fake.MinTextLen,
		MaxTextLen:   cfg.Fake.MaxTextLen,
		Logger:       logger.With("component", "fakestore"),
	}
	if cfg.Fake.LiveExtraction {
		opts.Extractor = extract.NewReadability(nil)
	}
	return fakestore.New(opts)
}

// Config returns the loaded configuration.
func (a *Application) Config() config.Config {
	return a.cfg
}

// API exposes the selected items backend.
func (a *Application) API() ports.ItemsAPI {
	return a.api
}

// UsesFake reports whether the in-memory backend is active.
func (a *Application) UsesFake() bool {
	return a.fake != nil
}

// Location is the zone that defines digest weeks.
func (a *Application) Location() *time.Location {
	return a.cfg.Scheduler.Location()
}

// Now is the current time in the digest zone.
func (a *Application) Now() time.Time {
	return time.Now().In(a.Location())
}

// NewSession builds an interactive session over the selected backend.
func (a *Application) NewSession() *usecase.Session {
	return usecase.NewSession(usecase.SessionDeps{
		API:       a.api,
		Assembler: a.assembler,
		Clock:     clock.Real{},
		Logger:    a.logger.With("component", "session"),
		Config: usecase.SessionConfig{
			Debounce:     a.cfg.Autosave.Debounce,
			SavedDecay:   a.cfg.Autosave.SavedDecay,
			PollInterval: a.cfg.Sync.PollInterval,
			PageSize:     a.cfg.Sync.PageSize,
			FetchLimit:   a.cfg.Fetch.Concurrency,
			Timeout:      a.cfg.API.Timeout,
			Location:     a.Location(),
		},
	})
}

// BuildDigest assembles the current week without publishing.
func (a *Application) BuildDigest(ctx context.Context) (domain.WeeklyDigest, error) {
	return a.pipeline(nil, nil).Build(ctx, a.Now())
}

// Publish sends the current week's digest once. With dryRun the rendered
// digest goes to w and nothing is recorded.
func (a *Application) Publish(ctx context.Context, w io.Writer, dryRun bool) error {
	if dryRun {
		return a.pipeline(nil, writerNotifier{w: w}).ProcessWeek(ctx, a.Now())
	}

	notifier := a.notifier()
	if notifier == nil {
		return ErrNoNotifier
	}
	digestLog, err := a.digestLog(ctx)
	if err != nil {
		return err
	}
	return a.pipeline(digestLog, notifier).ProcessWeek(ctx, a.Now())
}

// History lists recent publications from the digest log.
func (a *Application) History(ctx context.Context, limit int) ([]domain.PublishedDigest, error) {
	digestLog, err := a.digestLog(ctx)
	if err != nil {
		return nil, err
	}
	return digestLog.History(ctx, limit)
}

// RunScheduler publishes on the configured cron expression until ctx is done.
func (a *Application) RunScheduler(ctx context.Context) error {
	notifier := a.notifier()
	if notifier == nil {
		return ErrNoNotifier
	}
	if err := scheduler.Validate(a.cfg.Scheduler.CronExpression); err != nil {
		return err
	}
	digestLog, err := a.digestLog(ctx)
	if err != nil {
		return err
	}

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.Location(), a.logger)
	sched := usecase.NewScheduler(driver, a.pipeline(digestLog, notifier), a.Location(), a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// ServeFake exposes an in-memory backend over HTTP until ctx is done.
func (a *Application) ServeFake(ctx context.Context) error {
	store := a.fake
	if store == nil {
		store = newFakeStore(a.cfg, a.logger)
		defer store.Close()
	}
	return fakeapi.New(store, a.logger.With("component", "fakeapi")).Run(ctx, a.cfg.Server.Addr)
}

// Close releases the fake store timers and the database.
func (a *Application) Close() error {
	if a.fake != nil {
		a.fake.Close()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.log != nil {
		err := a.log.Close()
		a.log = nil
		return err
	}
	return nil
}

func (a *Application) pipeline(digestLog ports.DigestLog, notifier ports.Notifier) *usecase.Pipeline {
	return usecase.NewPipeline(usecase.PipelineDeps{
		API:        a.api,
		Assembler:  a.assembler,
		Log:        digestLog,
		Notifier:   notifier,
		PageSize:   a.cfg.Sync.PageSize,
		FetchLimit: a.cfg.Fetch.Concurrency,
		Logger:     a.logger.With("component", "pipeline"),
	})
}

func (a *Application) notifier() ports.Notifier {
	tg := a.cfg.Notifications.Telegram
	if tg.BotToken == "" || tg.ChatID == "" {
		return nil
	}
	return telegram.NewNotifier(tg, a.logger)
}

func (a *Application) digestLog(ctx context.Context) (*storage.DigestLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.log != nil {
		return a.log, nil
	}
	digestLog, err := storage.Open(ctx, a.cfg.Storage.Driver, a.cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open digest log: %w", err)
	}
	a.log = digestLog
	return digestLog, nil
}

// writerNotifier prints the rendered digest instead of sending it.
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) PublishDigest(_ context.Context, text string) error {
	_, err := io.WriteString(n.w, text)
	return err
}
