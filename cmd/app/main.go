package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"microearn/internal/api"
	"microearn/internal/middleware"
	"microearn/internal/notify"
	"microearn/internal/quiz"
	"microearn/internal/repository"
	"microearn/internal/service"
	"microearn/pkg/auth"
	"microearn/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const eventBuffer = 16

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer store.Close()

	hub := service.NewEventHub(eventBuffer)
	sinks := service.Sinks{hub}

	var telegram *notify.Telegram
	if cfg.Telegram.BotToken != "" {
		telegram, err = notify.NewTelegram(cfg.Telegram)
		if err != nil {
			zapLogger.Fatal("Failed to initialize telegram notifier", zap.Error(err))
		}
		sinks = append(sinks, telegram)
	}

	location, err := time.LoadLocation(cfg.Ledger.TimeZone)
	if err != nil {
		zapLogger.Fatal("Failed to load time zone", zap.Error(err))
	}

	ledgerService := service.NewLedgerService(repository.NewLedger(store), sinks, service.LedgerConfig{
		TotalUsers:  cfg.Ledger.TotalUsers,
		BasePayouts: cfg.Ledger.BasePayouts,
		Location:    location,
	})
	tokens := auth.NewTokenAuth(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(ledgerService, tokens, service.AuthConfig{
		OTPCode:   cfg.Auth.OTPCode,
		AdminCode: cfg.Auth.AdminCode,
	})
	quizService := service.NewQuizService(quiz.NewGeminiClient(cfg.Quiz), ledgerService)
	taskService := service.NewTaskService(ledgerService, service.DefaultTasks)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	router := api.NewRouter(api.Deps{
		Ledger:        ledgerService,
		Auth:          authService,
		Quiz:          quizService,
		Tasks:         taskService,
		Events:        hub,
		Tokens:        tokens,
		Limiter:       limiter,
		MinWithdrawal: cfg.Ledger.MinWithdrawal,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		zapLogger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		limiter.Cleanup(gctx)
		return nil
	})
	if telegram != nil {
		g.Go(func() error {
			telegram.Run(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
	}
}
