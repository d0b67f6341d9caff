package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"identity-plane/internal/audit"
	auditrepo "identity-plane/internal/audit/repository"
	"identity-plane/internal/config"
	"identity-plane/internal/db"
	"identity-plane/internal/events"
	"identity-plane/internal/federation"
	"identity-plane/internal/identity/domain"
	identityhandler "identity-plane/internal/identity/handler"
	identityrepo "identity-plane/internal/identity/repository"
	identityservice "identity-plane/internal/identity/service"
	"identity-plane/internal/logging"
	"identity-plane/internal/notify"
	"identity-plane/internal/security"
	"identity-plane/internal/server"
	otelsetup "identity-plane/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "identity-plane")
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "identity-plane", cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal("telemetry setup", zap.Error(err))
	}
	providers.SetGlobal()

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("jwt keys", zap.Error(err))
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTokenTTL())
	hasher := security.NewHasher(cfg.BcryptCost)
	classifier := domain.NewSentinelClassifier(cfg.PrimaryAffiliationCode)

	var verifier federation.TokenVerifier
	if cfg.FederationVerifyURL != "" {
		verifier = federation.NewHTTPVerifier(cfg.FederationVerifyURL, cfg.FederationVerifyTimeout(), logger)
	}

	dispatcher := events.NewDispatcher(logger, cfg.EventQueueSize, cfg.EventWorkers)

	var notifier notify.Notifier
	if cfg.NotifyBaseURL != "" {
		notifier = notify.NewMailNotifier(cfg.NotifyBaseURL, cfg.NotifyAPIKey, cfg.NotifyFrom, logger)
	}
	notifyHandler := notify.NewEventHandler(notifier, dispatcher, cfg.NotifyDispatchTimeout(), logger)
	dispatcher.Subscribe(notifyHandler, notifyHandler.Types()...)

	kafkaSink := events.NewKafkaSink(cfg.KafkaBrokersList(), cfg.EventsTopic, logger)
	if kafkaSink != nil {
		dispatcher.Subscribe(kafkaSink) // wildcard: every event hits the stream
	}

	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(pool), logger)

	authSvc := identityservice.NewAuthService(
		identityrepo.NewPostgresRepository(pool),
		hasher,
		tokens,
		classifier,
		verifier,
		dispatcher,
		auditor,
		cfg.FederationVerifyTimeout(),
		logger,
	)

	mux := http.NewServeMux()
	identityhandler.NewAuthHandler(authSvc, logger).Register(mux)
	mux.HandleFunc("GET /healthz", server.HealthHandler(pool))

	srv := server.New(cfg.HTTPAddr, mux, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server", zap.Error(err))
		}
		return
	case sig := <-quit:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	// Drain in-flight events before closing the sinks.
	dispatcher.Close()
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			logger.Error("kafka sink close", zap.Error(err))
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
