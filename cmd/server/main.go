package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/betaconv/internal/config"
	"github.com/JonMunkholm/betaconv/internal/core"
	"github.com/JonMunkholm/betaconv/internal/logging"
	"github.com/JonMunkholm/betaconv/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_file_size", cfg.Upload.MaxFileSize,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"preview", [2]int{cfg.Preview.Rows, cfg.Preview.Cols},
		"rate_limit_enabled", cfg.Rate.Enabled,
		"audit_enabled", cfg.Database.Enabled(),
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	opts := core.Options{
		MaxDecompressedSize: cfg.Upload.MaxDecompressedSize,
		PreviewRows:         cfg.Preview.Rows,
		PreviewCols:         cfg.Preview.Cols,
		MaxConcurrent:       cfg.Upload.MaxConcurrent,
		MaxWait:             cfg.Upload.MaxWaitTime,
	}

	// The audit log is optional; without a database the service runs with a
	// no-op recorder and /api/audit is not mounted.
	var auditReader web.AuditReader
	if cfg.Database.Enabled() {
		pool, err := connectDatabase(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to audit database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		audit := core.NewAuditService(pool)
		if err := audit.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create audit schema", "error", err)
			os.Exit(1)
		}
		opts.Audit = audit
		auditReader = audit
	}

	service := core.NewService(opts)
	server := web.NewServer(service, cfg, auditReader)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active conversions to complete (with timeout)
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for conversions to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("conversions did not complete in time", "error", err)
			} else {
				slog.Info("all conversions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connectDatabase opens and pings the audit database pool.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to audit database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to audit database")
	}
	return pool, nil
}
