package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/BatmanBruc/convert-menu-bot/internal/config"
	"github.com/BatmanBruc/convert-menu-bot/internal/converter"
	"github.com/BatmanBruc/convert-menu-bot/internal/handlers"
	"github.com/BatmanBruc/convert-menu-bot/internal/middleware"
	"github.com/BatmanBruc/convert-menu-bot/internal/router"
	"github.com/BatmanBruc/convert-menu-bot/internal/scheduler"
	"github.com/BatmanBruc/convert-menu-bot/internal/telemetry"
	"github.com/BatmanBruc/convert-menu-bot/store"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

const serviceName = "convert-menu-bot"

func main() {
	if err := config.LoadEnvFile("config.env"); err != nil {
		logrus.WithError(err).Fatal("failed to read config.env")
	}
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := cfg.NewLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, tracing, err := telemetry.Setup(ctx, serviceName)
	if err != nil {
		log.WithError(err).Fatal("failed to set up tracing")
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("failed to flush traces")
		}
	}()
	log.WithField("enabled", tracing).Debug("tracing configured")

	conv, err := converter.NewDefaultConverter(log, converter.WithTempDir(cfg.TempDir))
	if err != nil {
		log.WithError(err).Fatal("failed to create converter")
	}
	tools := conv.Tools()
	caps := tools.Capabilities(cfg.Disabled())
	log.WithFields(logrus.Fields{
		"cwebp":       tools.WebP,
		"imagemagick": tools.ImageMagick,
		"office":      tools.Office,
		"pdf2docx":    tools.PDF2DOCX,
	}).Info("conversion tools detected")

	var (
		journal types.Journal   = types.NopJournal{}
		users   types.UserStore = types.NopJournal{}
	)
	pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN, log.WithField("component", "postgres"))
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		log.Info("POSTGRES_DSN not set, conversion journal disabled")
	case err != nil:
		log.WithError(err).Fatal("failed to open postgres")
	default:
		defer pg.Close()
		journal, users = pg, pg
	}

	var limiter types.RateLimiter = store.NewMemoryRateLimiter(cfg.PerMinute)
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		limiter = store.NewRedisRateLimiter(rdb, cfg.PerMinute)
	}

	sched := scheduler.NewScheduler(scheduler.Config{Workers: cfg.Workers}, log.WithField("component", "scheduler"))
	sched.Start()
	defer sched.Stop()

	rt := router.New(router.Config{
		Store:          store.NewMemorySessionStore(),
		Converter:      conv,
		Executor:       sched,
		Journal:        journal,
		Caps:           caps,
		Timeout:        cfg.Timeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Log:            log,
	})

	httpClient := &http.Client{Timeout: cfg.PollTimeout + 10*time.Second}
	b, err := bot.New(cfg.Token,
		bot.WithHTTPClient(cfg.PollTimeout, httpClient),
		bot.WithWorkers(cfg.BotWorkers),
		bot.WithErrorsHandler(func(err error) {
			log.WithError(err).Warn("telegram api error")
		}),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create bot")
	}

	h := handlers.NewHandlers(handlers.Config{
		Router:         rt,
		Sender:         b,
		Downloader:     handlers.NewTelegramDownloader(b, nil),
		MaxUploadBytes: cfg.MaxUploadBytes,
		DefaultLang:    cfg.Lang(),
		Log:            log,
	})

	mw := middleware.New(middleware.Config{
		Users:       users,
		Limiter:     limiter,
		Notifier:    b,
		DefaultLang: cfg.Lang(),
		Log:         log,
	})

	handlerChain := middleware.Chain(h.MainHandler,
		mw.RecoverMiddleware,
		mw.LangMiddleware,
		mw.TrackUserMiddleware,
		mw.AnalyzeMessageMiddleware,
		mw.RateLimitMiddleware,
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	log.WithFields(logrus.Fields{
		"workers":         cfg.Workers,
		"bot_workers":     cfg.BotWorkers,
		"rate_per_minute": cfg.PerMinute,
	}).Info("bot started")
	b.Start(ctx)
	log.Info("bot stopped")
}
