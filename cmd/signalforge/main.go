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

	"github.com/signalforge/signalforge/internal/adapter/driven/hostinfo"
	"github.com/signalforge/signalforge/internal/adapter/driven/longport"
	sqliteadapter "github.com/signalforge/signalforge/internal/adapter/driven/sqlite"
	"github.com/signalforge/signalforge/internal/adapter/driven/yahoo"
	httphandler "github.com/signalforge/signalforge/internal/adapter/driving/http"
	"github.com/signalforge/signalforge/internal/application"
	"github.com/signalforge/signalforge/internal/config"
	"github.com/signalforge/signalforge/internal/observability"
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
		"quote_timeout", cfg.QuoteTimeout,
		"public_quote_url", cfg.PublicQuoteURL,
		"metrics_enabled", cfg.MetricsEnabled,
	)

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
	slog.Info("database opened", "path", db.Path())

	// 4. Run migrations on writer connection.
	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "schema_version", version)

	// 5. Wire adapters.
	accountStore := sqliteadapter.NewAccountRepo(db)
	licensed := longport.NewAdapter(slog.Default())
	public := yahoo.NewClient(cfg.PublicQuoteURL, cfg.QuoteTimeout)
	probe := hostinfo.NewProbe()

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics("signalforge")
	}

	// 6. Create services.
	accountSvc := application.NewAccountService(accountStore, slog.Default())
	dispatcher := application.NewQuoteDispatcher(accountStore, licensed, public, cfg.QuoteTimeout, metrics, slog.Default())

	// 7. Session gate.
	var gate *httphandler.Gate
	if cfg.HasSessionGate() {
		gate = httphandler.NewGate(cfg.SessionSecret, slog.Default())
	} else {
		slog.Warn("no session secret configured, every request is admitted")
	}

	// 8. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(accountSvc, dispatcher, probe, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, gate, metrics, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Quote tests may legitimately take the whole upstream timeout.
		WriteTimeout: cfg.QuoteTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// 9. Log startup complete.
	slog.Info("signalforge started",
		"listen_addr", cfg.ListenAddr,
		"session_gate", cfg.HasSessionGate(),
	)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 11. Graceful shutdown with 10s timeout to drain in-flight quote tests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
