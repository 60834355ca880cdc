package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/betelcare/internal/backend"
	claudechat "github.com/vbonduro/betelcare/internal/backend/claude"
	ollamachat "github.com/vbonduro/betelcare/internal/backend/ollama"
	"github.com/vbonduro/betelcare/internal/backend/rest"
	"github.com/vbonduro/betelcare/internal/config"
	"github.com/vbonduro/betelcare/internal/db"
	"github.com/vbonduro/betelcare/internal/i18n"
	"github.com/vbonduro/betelcare/internal/logging"
	"github.com/vbonduro/betelcare/internal/previewstore/local"
	"github.com/vbonduro/betelcare/internal/session"
	"github.com/vbonduro/betelcare/internal/store"
	"github.com/vbonduro/betelcare/internal/web"
	"github.com/vbonduro/betelcare/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		cleanup()
		os.Exit(1)
	}
	cleanup()
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	previews, err := local.NewLocalPreviewStore(cfg.PreviewPath)
	if err != nil {
		return err
	}
	// Previews never outlive the process that made them.
	if n, err := previews.Purge(); err != nil {
		logger.Warn("failed to purge stale previews", "error", err)
	} else if n > 0 {
		logger.Info("purged stale previews", "count", n)
	}

	client := rest.NewClient(cfg.BackendURL)
	lang, ok := i18n.ParseLanguage(cfg.DefaultLang)
	if !ok {
		logger.Warn("unsupported DEFAULT_LANG, using English", "lang", cfg.DefaultLang)
		lang = i18n.Default
	}

	sessions := session.NewManager(session.Deps{
		Predictor:      client,
		Chatter:        newChatter(cfg, client, logger),
		Previews:       previews,
		Journal:        store.NewDiagnosisStore(database),
		RevealInterval: cfg.RevealInterval,
		DefaultLang:    lang,
		Logger:         logger,
	}, cfg.MaxSessions, cfg.SessionTTL)
	defer sessions.Close()

	logger.Info("inference backend configured", "url", cfg.BackendURL)
	server := web.NewServer(sessions, previews, templates.FS, logger)
	return server.ListenAndServe(ctx, cfg.ListenAddr)
}

func newChatter(cfg *config.Config, fallback *rest.Client, logger *slog.Logger) backend.Chatter {
	switch cfg.ChatBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when CHAT_BACKEND=claude, using inference backend chat")
			return fallback
		}
		logger.Info("using Claude chat backend", "model", cfg.ClaudeModel)
		return claudechat.NewChatter(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "ollama":
		logger.Info("using Ollama chat backend", "host", cfg.OllamaHost, "model", cfg.OllamaModel)
		return ollamachat.NewChatter(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("using inference backend chat")
		return fallback
	}
}
