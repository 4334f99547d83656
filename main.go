// main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"knowtree/internal/config"
	"knowtree/internal/database"
	"knowtree/internal/diff"
	"knowtree/internal/github"
	"knowtree/internal/gitlocal"
	"knowtree/internal/history"
	"knowtree/internal/knowledge"
	"knowtree/internal/llm"
	"knowtree/internal/prompt"
	"knowtree/internal/server"
	"knowtree/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Commits come from local clones when a repos directory is configured,
	// from the GitHub API otherwise.
	var source history.Source
	if cfg.ReposDir != "" {
		source = gitlocal.NewSource(cfg.ReposDir)
		log.Info("using local repository source", "dir", cfg.ReposDir)
	} else {
		source = github.NewClient(github.Options{
			AuthToken: cfg.GitHubToken,
			BaseURL:   cfg.GitHubBaseURL,
		})
	}

	prompts, err := prompt.Load(cfg.PromptPath)
	if err != nil {
		log.Error("failed to load prompt template", "path", cfg.PromptPath, "error", err)
		os.Exit(1)
	}
	defer prompts.Close()

	cache, err := diff.NewCache(cfg.CacheDir, 3)
	if err != nil {
		log.Error("failed to create diff cache", "dir", cfg.CacheDir, "error", err)
		os.Exit(1)
	}

	llmClient := llm.NewClient(llm.Options{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.Model,
	})

	engine := sync.NewEngine(source)
	svc := knowledge.NewService(db, source, llmClient, prompts)
	srv := server.New(log, db, engine, svc, source, cache)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
