package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"relaychat/backend/internal/api"
	"relaychat/backend/internal/api/handler"
	"relaychat/backend/internal/api/middleware"
	"relaychat/backend/internal/auth"
	"relaychat/backend/internal/chathub"
	"relaychat/backend/internal/chats"
	"relaychat/backend/internal/config"
	"relaychat/backend/internal/gateway"
	"relaychat/backend/internal/localization"
	"relaychat/backend/internal/media"
	"relaychat/backend/internal/messaging"
	"relaychat/backend/internal/signaling"
	"relaychat/backend/internal/sms"
	"relaychat/backend/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func setupDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger) (*gorm.DB, *redis.Client, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	log.Info("database and redis ready", "redis", cfg.RedisAddr)
	return db, rdb, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, rdb, err := setupDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rdb.Close()
	store := storage.NewStorageService(db, rdb, cfg.StoreTimeout)

	hub := chathub.NewManagerService(log, cfg.CloseSuperseded)
	if cfg.PubSubEnabled {
		hub.SetRelay(chathub.NewRedisRelay(rdb, log))
	}

	var sender auth.CodeSender = sms.LogSender{Log: log}
	if cfg.SMSAPIID != "" {
		sender = sms.NewClient(cfg.SMSAPIID, cfg.SMSBaseURL, cfg.SMSTimeout, log)
	} else {
		log.Warn("SMS_API_ID not set, otp codes are only logged")
	}

	loc := localization.Bundled()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(store, store, sender, tokens, auth.Options{
		OTPTTL:       cfg.OTPTTL,
		TestCode:     cfg.OTPTestCode,
		GuestEnabled: cfg.GuestLoginEnabled,
	}, log)
	pipeline := messaging.NewPipeline(store, hub, messaging.NewIDGenerator(), log)
	calls := signaling.NewRouter(hub, log)
	chatSvc := chats.NewService(store, hub, log)

	mediaStore, err := media.NewStore(cfg.UploadDir, cfg.MaxUploadBytes, log)
	if err != nil {
		return err
	}

	limiter := middleware.NewLimiterStore(cfg.AuthRatePerMinute, cfg.AuthRateBurst, time.Minute)
	defer limiter.Stop()

	h := handler.NewHandler(handler.Deps{
		Hub:       hub,
		Gateway:   gateway.New(hub, pipeline, calls, store, loc, log),
		Auth:      authSvc,
		Chats:     chatSvc,
		Messages:  pipeline,
		Users:     store,
		Media:     mediaStore,
		Localizer: loc,
		Log:       log,
		Ping:      store.Ping,
	})
	router := api.NewRouter(h, api.OptionsFromConfig(cfg, limiter), log)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("hub: %w", err)
		}
	}()
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "prefix", cfg.APIPrefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(runErr, server.Shutdown(shutdownCtx))
}
