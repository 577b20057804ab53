package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/badgehub/internal/adapter/driven/accredible"
	"github.com/ericfisherdev/badgehub/internal/adapter/driven/credly"
	kafkaadapter "github.com/ericfisherdev/badgehub/internal/adapter/driven/kafka"
	"github.com/ericfisherdev/badgehub/internal/adapter/driven/lognotify"
	"github.com/ericfisherdev/badgehub/internal/adapter/driven/providerhttp"
	sqliteadapter "github.com/ericfisherdev/badgehub/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/badgehub/internal/adapter/driving/http"
	"github.com/ericfisherdev/badgehub/internal/application"
	"github.com/ericfisherdev/badgehub/internal/config"
	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
	"github.com/ericfisherdev/badgehub/internal/seed"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"provider_timeout", cfg.ProviderTimeout,
		"sweep_interval", cfg.SweepInterval,
		"kafka_brokers", cfg.KafkaBrokers,
		"secret_key_set", cfg.HasSecretKey(),
	)
	if !cfg.HasSecretKey() {
		slog.Warn("BADGEHUB_SECRET_KEY not set, provider API keys cannot be stored or read")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire stores.
	templateStore := sqliteadapter.NewTemplateRepo(db)
	credentialStore := sqliteadapter.NewUserCredentialRepo(db)
	userDirectory := sqliteadapter.NewUserRepo(db)
	secretStore := sqliteadapter.NewSecretRepo(db, cfg.SecretKey)

	// 6. Apply the seed file, if any.
	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		sum, err := seed.Apply(ctx, f, seed.Stores{
			Secrets:   secretStore,
			Templates: templateStore,
			Users:     userDirectory,
		})
		if err != nil {
			return err
		}
		slog.Info("seed applied",
			"file", cfg.SeedFile,
			"secrets", sum.Secrets,
			"templates", sum.Templates,
			"users", sum.Users,
		)
	}

	// 7. Notification bus: Kafka when brokers are configured, logs otherwise.
	var notifier driven.BadgeNotifier
	if cfg.HasKafka() {
		kafkaNotifier := kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kafkaNotifier.Close(); err != nil {
				slog.Error("error closing kafka writer", "error", err)
			}
		}()
		notifier = kafkaNotifier
		slog.Info("publishing badge events to kafka", "topic", cfg.KafkaTopic)
	} else {
		notifier = lognotify.NewNotifier(slog.Default())
		slog.Info("no kafka brokers configured, badge events are logged only")
	}

	// 8. Provider clients share one caching HTTP client.
	httpClient := providerhttp.NewHTTPClient(cfg.ProviderTimeout)
	credlyClients := credly.NewFactory(secretStore, httpClient, cfg.CredlyBaseURL)
	accredibleClients := accredible.NewFactory(secretStore, httpClient, cfg.AccredibleBaseURL)

	// 9. Issuers, one per credential kind.
	registry := application.NewIssuerRegistry(templateStore,
		application.NewBadgeIssuer(model.CredentialKindBadgeTemplate, templateStore, credentialStore, notifier, nil),
		application.NewBadgeIssuer(model.CredentialKindCredly, templateStore, credentialStore, notifier,
			application.NewCredlyPropagator(credlyClients, userDirectory, credentialStore)),
		application.NewBadgeIssuer(model.CredentialKindAccredible, templateStore, credentialStore, notifier,
			application.NewAccrediblePropagator(accredibleClients, userDirectory, credentialStore)),
	)

	// 10. Propagation sweeper.
	if cfg.SweepInterval > 0 {
		sweeper := application.NewPropagationSweeper(registry, cfg.SweepInterval)
		go sweeper.Start(ctx)
	} else {
		slog.Info("propagation sweeper disabled")
	}

	// 11. HTTP API.
	apiHandler := httphandler.NewHandler(registry, templateStore, credentialStore, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("badgehub started", "listen_addr", cfg.ListenAddr)

	// 12. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
