package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"kanji-quiz-bot/internal/config"
	"kanji-quiz-bot/internal/delivery/telegram"
	"kanji-quiz-bot/internal/infra/postgres"
	"kanji-quiz-bot/internal/infra/postgres/repository"
	"kanji-quiz-bot/internal/logger"
	"kanji-quiz-bot/internal/service"
	"kanji-quiz-bot/internal/sheets"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.APIToken)
	if err != nil {
		zlog.Fatal("failed to create bot api", zap.Error(err))
	}

	// Set commands.
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "help", Description: "Show available commands"},
		{Command: "setup", Description: "Link your Google Sheet"},
		{Command: "quiz", Description: "Get a question right now"},
		{Command: "stopquiz", Description: "Cancel the current question"},
		{Command: "stopquizauto", Description: "Stop automatic questions"},
		{Command: "setinterval", Description: "Set the quiz interval"},
		{Command: "settimeout", Description: "Set the answer timeout"},
		{Command: "setquietinterval", Description: "Set quiet hours"},
		{Command: "setmode", Description: "Choose reading, meaning or random"},
		{Command: "settings", Description: "Show your settings"},
		{Command: "reset", Description: "Delete all your data"},
	}

	if _, err = bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		zlog.Warn("failed to set bot commands", zap.Error(err))
	}

	zlog.Info("authorized on telegram", zap.String("account", bot.Self.UserName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB.URL, postgres.PoolConfig{
		MaxConns:        cfg.DB.MaxConnections,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	transactor := postgres.NewTransactor(pool)
	configRepo := repository.NewUserConfigRepository(pool, transactor)
	sessionRepo := repository.NewSessionRepository(pool)

	settingsService := service.NewSettingsService(configRepo, zlog)
	sessionManager := service.NewSessionManager(sessionRepo, service.NewAnswerEvaluator(), zlog)
	if err := sessionManager.Restore(ctx); err != nil {
		zlog.Fatal("failed to restore sessions", zap.Error(err))
	}

	source, err := sheets.New(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.CacheTTL, zlog)
	if err != nil {
		zlog.Fatal("failed to create sheets source", zap.Error(err))
	}

	scheduler := service.NewScheduler(
		settingsService,
		sessionManager,
		source,
		zlog,
		cfg.Scheduler.TickInterval,
		cfg.Scheduler.MaxConcurrentDispatch,
	)

	handler := telegram.NewHandler(
		bot,
		zlog,
		settingsService,
		sessionManager,
		scheduler,
		source,
	)
	scheduler.SetNotifier(handler)

	go func() {
		if err := handler.Run(ctx); err != nil && ctx.Err() == nil {
			zlog.Error("handler stopped", zap.Error(err))
		}
	}()

	// Start blocks until shutdown and drains in-flight dispatches before
	// returning, so the deferred pool.Close runs only after the last write.
	scheduler.Start(ctx)
	zlog.Info("shutdown complete")
}
