package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/katakuxiko/kbrelay/internal/api"
	"github.com/katakuxiko/kbrelay/internal/config"
	"github.com/katakuxiko/kbrelay/internal/guard"
	"github.com/katakuxiko/kbrelay/internal/logger"
	"github.com/katakuxiko/kbrelay/internal/service"
	"github.com/katakuxiko/kbrelay/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireServer(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// audit store, optional
	var audit api.Auditor
	if cfg.PgConn != "" {
		pg, err := store.NewPgStore(ctx, cfg.PgConn)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer pg.Close()
		audit = pg
	} else {
		log.Info("PG_CONN not set, chat audit disabled")
	}

	// services
	llm := service.NewResponsesClient(cfg)
	chat := service.NewChatService(guard.New(cfg.MaxMessageChars), llm, cfg.ChatModel, cfg.VectorStoreID, log)

	// api
	app := api.NewApp(api.ServerConfig{
		BodyLimit:        cfg.BodyLimit,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	}, api.NewHandler(chat, audit, log), log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", cfg.ServerAddr), zap.String("model", cfg.ChatModel))
		errCh <- app.Listen(cfg.ServerAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	return app.ShutdownWithTimeout(5 * time.Second)
}
