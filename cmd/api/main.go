package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/db"
	"marketplace/internal/email"
	apihttp "marketplace/internal/http"
	"marketplace/internal/oauth"
	"marketplace/internal/repository"
	"marketplace/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.WaitReady(ctx, pool, cfg.DBConnectRetries); err != nil {
		logger.Fatal("db not ready", zap.Error(err))
	}

	if cfg.DBAutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	memberRepo := repository.NewPgMemberRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	refreshTTL := time.Duration(cfg.JWTRefreshTTLMinutes) * time.Minute
	loginWindow := time.Duration(cfg.LoginRateWindowSeconds) * time.Second
	var (
		loginLimiter service.LoginRateLimiter
		tokenStore   service.RefreshTokenStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory stores", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, loginWindow, cfg.LoginRateMax)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient, refreshTTL)
		}
		cancel()
	}
	if loginLimiter == nil {
		loginLimiter = service.NewMemoryLoginRateLimiter(loginWindow, cfg.LoginRateMax)
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		cfg.JWTIssuer,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		refreshTTL,
		tokenStore,
	)

	memberSvc := service.NewMemberService(logger, memberRepo, service.NewBcryptEncoder(cfg.BcryptCost), jwtSvc, loginLimiter, emailSender)

	oauthTimeout := time.Duration(cfg.OAuthTimeoutSeconds) * time.Second
	httpProviders, err := oauth.EnabledProviders(cfg, &http.Client{Timeout: oauthTimeout})
	if err != nil {
		logger.Fatal("oauth providers", zap.Error(err))
	}
	providers := make([]service.OAuthProvider, 0, len(httpProviders))
	for _, p := range httpProviders {
		providers = append(providers, p)
	}
	oauthSvc := service.NewOAuthLoginService(logger, memberSvc, jwtSvc, oauthTimeout, providers...)
	logger.Info("oauth providers enabled", zap.Strings("providers", oauthSvc.Providers()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	service.RegisterMetrics(registry)
	apihttp.RegisterMetrics(registry)

	router := apihttp.NewRouter(
		logger,
		apihttp.NewMemberHandler(logger, memberSvc),
		apihttp.NewAuthHandler(logger, memberSvc, oauthSvc, jwtSvc),
		jwtSvc,
		registry,
		pool.Ping,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
