package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/quanta/internal/api"
	"github.com/RichardoC/quanta/internal/chat"
	"github.com/RichardoC/quanta/internal/config"
	"github.com/RichardoC/quanta/internal/llm"
	"github.com/RichardoC/quanta/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slot, closeSlot, err := store.Open(ctx, store.Options{
		DBPath:        cfg.DBPath,
		RedisAddr:     cfg.RedisAddr,
		RedisUsername: cfg.RedisUsername,
		RedisPassword: cfg.RedisPassword,
	}, logger)
	if err != nil {
		logger.Fatal("failed to open conversation storage", zap.Error(err))
	}
	defer closeSlot()

	llmService, err := llm.New(llm.Options{
		BaseURL:     cfg.APIBaseURL,
		Token:       cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.UpstreamTimeout,
	})
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	controller := chat.New(ctx, store.New(slot), llmService, chat.Options{
		Logger:  logger.Named("chat"),
		Timeout: cfg.UpstreamTimeout,
	})
	defer controller.Close()

	handler := api.NewHandler(llmService, controller, logger)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.Routes(cfg.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting server",
		zap.String("addr", server.Addr),
		zap.String("model", cfg.Model),
		zap.Bool("apiKeyConfigured", cfg.APIKey != ""))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
