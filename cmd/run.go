package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"squadvault/config"
	"squadvault/database"
	"squadvault/events"
	"squadvault/httpapi"
	"squadvault/infrastructure"
	"squadvault/ledger"
	"squadvault/metrics"
	"squadvault/repository"
	"squadvault/service"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and format
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"httpAddr":    cfg.HTTPAddr,
	}).Info("Starting squadvault")

	// Database
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	eventBus := events.NewBus()

	// Event forwarding to NATS is optional
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Failed to close NATS connection")
			}
		}()

		subjectMapper := infrastructure.NewEventSubjectMapper()
		if err := natsClient.EnsureTreasuryEventStream(subjectMapper.StreamSubjects()); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		infrastructure.NewNATSEventForwarder(natsClient, subjectMapper).Attach(eventBus)
		log.Info("Forwarding committed events to NATS")
	} else {
		log.Info("NATS_SERVERS not set, event forwarding disabled")
	}

	m := metrics.New()
	clock := ledger.SystemClock{}
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	dispatcher := service.NewDispatcher(uowFactory, clock, service.DispatcherOptions{
		MintAuthorities: cfg.MintAuthorities,
		MaxSquadMembers: cfg.MaxSquadMembers,
		Observer:        m,
	})
	queries := service.NewQueryService(uowFactory, clock)

	// Vault reconciliation
	if cfg.ReconcileSchedule != "" {
		worker := service.NewReconciliationWorker(repository.NewVaultAuditor(db), m)
		stop, err := worker.Start(ctx, cfg.ReconcileSchedule)
		if err != nil {
			return fmt.Errorf("failed to start reconciliation worker: %w", err)
		}
		defer stop()
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Dispatcher:     dispatcher,
		Queries:        queries,
		Authenticator:  httpapi.NewAuthenticator(cfg.TokenMaxAge),
		RateLimiter:    httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Instrument:     m.InstrumentHandler,
		MetricsHandler: m.Handler(),
		Health: func(ctx context.Context) error {
			return db.Ping(ctx)
		},
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down squadvault")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown did not complete")
	}

	// let in-flight event handlers (NATS forwarding) finish before closing
	eventBus.Wait()

	log.Info("Shutdown completed")
	return nil
}
