package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/example/research-reporter/internal/agents"
	"github.com/example/research-reporter/internal/api"
	"github.com/example/research-reporter/internal/config"
	"github.com/example/research-reporter/internal/orchestrator"
	"github.com/example/research-reporter/internal/providers/gemini"
	"github.com/example/research-reporter/internal/tools"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	client := gemini.NewFromConfig(cfg)
	if !cfg.Emulated && !cfg.GeminiConfigured() {
		slog.Warn("gemini api key not configured; stage calls will fail")
	}
	searcher := tools.NewSearcherFromConfig(ctx, cfg)
	planner, reporter := agents.NewStages(cfg, client, searcher)

	srv := api.NewServer(orchestrator.New(planner, reporter))
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	addr := ":" + cfg.Port
	slog.Info("server listening", slog.String("addr", addr), slog.Bool("emulated", cfg.Emulated), slog.String("model", cfg.GeminiModel))
	if err := http.ListenAndServe(addr, cors(mux)); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// simple CORS middleware for local dev
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
