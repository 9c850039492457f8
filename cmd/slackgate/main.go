package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valinor-ai/slackgate/internal/audit"
	"github.com/valinor-ai/slackgate/internal/channels"
	"github.com/valinor-ai/slackgate/internal/platform/config"
	"github.com/valinor-ai/slackgate/internal/platform/database"
	"github.com/valinor-ai/slackgate/internal/platform/server"
	"github.com/valinor-ai/slackgate/internal/platform/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	telemetry.SetDefault(logger)

	slog.Info("slackgate starting",
		"port", cfg.Server.Port,
		"events_path", cfg.Slack.EventsPath,
	)

	// The verifier is built first: a missing signing secret must stop
	// startup before anything else is opened.
	verifier, err := buildVerifier(cfg.Slack)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var pool *database.Pool
	if cfg.Database.URL != "" {
		slog.Info("connecting to database")
		p, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			slog.Warn("database connection failed, starting without audit persistence", "error", err)
		} else {
			pool = p
			defer pool.Close()

			migrationsURL := fmt.Sprintf("file://%s", cfg.Database.MigrationsPath)
			if err := database.RunMigrations(cfg.Database.URL, migrationsURL); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			slog.Info("migrations complete")
		}
	}

	auditLogger := buildAuditLogger(pool, cfg.Audit)
	defer auditLogger.Close()

	gate := channels.NewGate(verifier,
		channels.WithLogger(logger),
		channels.WithAuditLogger(auditLogger),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(addr, server.Dependencies{
		Pool:          pool,
		Gate:          gate,
		EventsHandler: channels.NewHandler(channels.LogDispatcher{Logger: logger}),
		EventsPath:    cfg.Slack.EventsPath,
		MaxBodyBytes:  cfg.Slack.MaxBodyBytes,
		Logger:        logger,
	})

	slog.Info("server ready", "addr", addr, "audit", pool != nil && cfg.Audit.Enabled)
	return srv.Start(ctx)
}

func buildVerifier(cfg config.SlackConfig) (*channels.SlackVerifier, error) {
	verifier, err := channels.NewSlackVerifier(cfg.SigningSecret,
		channels.WithMaxAge(time.Duration(cfg.MaxAgeSeconds)*time.Second),
		channels.WithSignatureVersion(cfg.SignatureVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("configuring slack verifier (set SLACKGATE_SLACK_SIGNINGSECRET): %w", err)
	}
	return verifier, nil
}

func buildAuditLogger(pool *database.Pool, cfg config.AuditConfig) audit.Logger {
	if pool == nil || !cfg.Enabled {
		return audit.NopLogger{}
	}
	slog.Info("audit logger started")
	return audit.NewAsyncLogger(pool, audit.NewStore(), audit.LoggerConfig{
		BufferSize:    cfg.BufferSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushIntervalMS) * time.Millisecond,
	})
}
