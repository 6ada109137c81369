package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/config"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/handler"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/devauth"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/memstore"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/resilience"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/supabase"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/policy"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.SupabaseEnabled()),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
		zap.Duration("session_idle_ttl", cfg.SessionIdleTTL),
		zap.Bool("dev_tools", cfg.DevTools),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "easybiz-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Backends ---
	var (
		store  port.DocumentStore
		pinger port.Pinger
		idp    port.IdentityProvider
	)
	if cfg.SupabaseEnabled() {
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		cb := resilience.NewCircuitBreaker("supabase", func(err error) bool {
			return err == nil || supabase.IsClientError(err)
		})
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			metrics,
			logger,
		)
		docs := supabase.NewDocumentStore(client)
		store, pinger = docs, docs
		idp = supabase.NewPhoneAuth(client, cfg.OTPTTL)
	} else {
		logger.Warn("Supabase not configured: using in-memory store and development OTP provider")
		mem := memstore.New()
		store, pinger = mem, mem
		dev := devauth.New(cfg.OTPTTL, cfg.DevOTPCode, logger)
		defer dev.Close()
		idp = dev
	}

	// --- Sessions ---
	hub := session.NewHub()
	resolver := session.NewResolver(store, cfg.ResolveTimeout, metrics, logger)
	registry := session.NewRegistry(resolver, cfg.SessionIdleTTL, cfg.MaxConcurrency, metrics, logger)
	defer registry.Close()
	detach := registry.Attach(hub)
	defer detach()

	// --- Policy ---
	paths := policy.DefaultPaths()
	paths.AgentHome = cfg.HomePathAgent
	pol := policy.New(paths)

	// --- Services ---
	authSvc := service.NewAuthService(idp, store, hub, service.AuthConfig{
		JWTSecret:        cfg.JWTSecret,
		AccessTTL:        cfg.JWTAccessTTL,
		RefreshTTL:       cfg.JWTRefreshTTL,
		OTPTTL:           cfg.OTPTTL,
		OTPRatePerMinute: cfg.OTPRatePerMin,
		OTPBurst:         cfg.OTPBurst,
		DialCode:         cfg.DefaultDialCode,
	}, metrics, logger)
	defer authSvc.Close()

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Auth:     authSvc,
		Profiles: service.NewProfileService(store, logger),
		Team:     service.NewTeamService(store, hub, cfg.DefaultDialCode, logger),
		Platform: service.NewPlatformService(store, hub, logger),
		Leads:    service.NewLeadService(store, cfg.DefaultDialCode, logger),
		Voice:    service.NewVoiceLogService(store, logger),
		Sessions: registry,
		Policy:   pol,
		Routes:   policy.NewRoutes(pol),
		Pingers:  map[string]port.Pinger{"store": pinger},
	}, handler.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AwaitTimeout:   cfg.AwaitTimeout,
		DevTools:       cfg.DevTools,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
