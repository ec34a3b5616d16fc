package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/telefetch/telefetch/internal/bot"
	"github.com/telefetch/telefetch/internal/config"
	"github.com/telefetch/telefetch/internal/db"
	"github.com/telefetch/telefetch/internal/entitlement"
	"github.com/telefetch/telefetch/internal/infra"
	"github.com/telefetch/telefetch/internal/logging"
	"github.com/telefetch/telefetch/internal/login"
	"github.com/telefetch/telefetch/internal/policy"
	"github.com/telefetch/telefetch/internal/relay"
	"github.com/telefetch/telefetch/internal/retrieval"
	"github.com/telefetch/telefetch/internal/server"
	"github.com/telefetch/telefetch/internal/session"
	"github.com/telefetch/telefetch/internal/telegram"
)

const sessionCacheTTL = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("apply migrations", "error", err)
		os.Exit(1)
	}

	sealer, err := session.NewSealer(cfg.SessionSecret)
	if err != nil {
		logger.Error("build sealer", "error", err)
		os.Exit(1)
	}

	sessions := session.NewService(
		session.NewPostgresRepository(pool),
		session.NewCache(cache, sessionCacheTTL),
		sealer,
		logger,
	)
	ents := entitlement.NewPostgresRepository(pool)

	// The MTProto driver is linked by the build (see internal/telegram);
	// without one the service cannot run login or retrieval flows.
	driver, err := telegram.RegisteredDriver()
	if err != nil {
		logger.Error("mtproto driver", "error", err)
		os.Exit(1)
	}
	dialer := telegram.NewDialer(driver, cfg.APIID, cfg.APIHash, logger)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("authorize bot api", "error", err)
		os.Exit(1)
	}
	sender := relay.NewTelegramSender(api)

	logins := login.NewManager(dialer, sessions, login.NewThrottle(cache, 3), cfg.LoginTimeout, logger)
	go logins.Run(ctx)

	pipeline := retrieval.NewPipeline(sessions, dialer, policy.NewGate(ents, cfg.FreeTierLimit), sender, cfg.DownloadDir, logger)

	dispatcher, err := bot.New(bot.Deps{
		API:      api,
		Cfg:      cfg,
		Login:    logins,
		Pipeline: pipeline,
		Sessions: sessions,
		Ents:     ents,
		Dialer:   dialer,
		Sender:   sender,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("build dispatcher", "error", err)
		os.Exit(1)
	}
	go dispatcher.Run(ctx)

	srv, err := server.New(cfg, pool, cache, sessions, ents, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	logger.Info("service started", "app", cfg.AppName, "addr", cfg.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("service exited cleanly")
}
