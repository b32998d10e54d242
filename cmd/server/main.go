package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/agent"
	"github.com/msk-triage-server/internal/api"
	"github.com/msk-triage-server/internal/config"
	"github.com/msk-triage-server/internal/database"
	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/feedback"
	"github.com/msk-triage-server/internal/llm"
	"github.com/msk-triage-server/internal/repository"
	"github.com/msk-triage-server/internal/service"
	"github.com/msk-triage-server/internal/session"
	"github.com/msk-triage-server/internal/specs"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := specs.NewRegistry(logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load questionnaire specifications")
	}
	engine := service.NewRuleEngine(logger)

	var (
		durable session.Store
		reports *repository.ReportRepository
		reviews feedback.Store
	)
	if cfg.Database.Enabled {
		dbURL := postgresURL(cfg.Database)
		runner, err := database.NewMigrationRunner(dbURL, "migrations", logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		if err := runner.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}

		durable, err = session.NewPostgresStoreFromURL(dbURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect session store to PostgreSQL")
		}

		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect report archive to PostgreSQL")
		}
		defer db.Close()
		reports = repository.NewReportRepository(db.Pool, logger)

		reviews, err = feedback.NewPostgresStoreFromURL(dbURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect feedback store to PostgreSQL")
		}
	} else {
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.WithError(err).Fatal("Failed to create session store directory")
			}
		}
		durable, err = session.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open session store")
		}
		logger.Info("Report archive disabled, reports render on demand")

		reviews, err = feedback.NewSQLiteStore(cfg.SQLite.FeedbackPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open feedback store")
		}
	}
	defer reviews.Close()

	store := durable
	if cfg.Cache.RedisURL != "" {
		cache, err := session.NewRedisStore(cfg.Cache.RedisURL, cfg.Cache.SessionTTL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, running without session cache")
		} else {
			store = session.NewCachedStore(cache, durable, logger)
		}
	}
	defer store.Close()

	var completer domain.ChatCompleter
	if cfg.LLM.APIKey != "" {
		completer = llm.NewOpenAIClient(cfg.LLM, logger)
	} else {
		logger.Warn("No LLM API key configured, interviews use canonical question wording")
	}

	server := api.NewServer(cfg, api.Deps{
		Registry: registry,
		Engine:   engine,
		Sessions: store,
		Reports:  reports,
		Feedback: reviews,
		Triage:   agent.NewTriageAgent(completer, logger),
		Summary:  agent.NewSummaryAgent(completer, logger),
		Referral: agent.NewReferralAgent(completer, logger),
	}, logger)

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}
	return logger
}

func postgresURL(db domain.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(db.Username), url.QueryEscape(db.Password),
		db.Host, db.Port, db.Database, db.SSLMode)
}
