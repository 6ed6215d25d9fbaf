package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/careergurulabs/careerguru/internal/auth"
	"github.com/careergurulabs/careerguru/internal/coach"
	"github.com/careergurulabs/careerguru/internal/config"
	"github.com/careergurulabs/careerguru/internal/history"
	"github.com/careergurulabs/careerguru/internal/httpapi"
	"github.com/careergurulabs/careerguru/internal/llm"
	"github.com/careergurulabs/careerguru/internal/observability"
	"github.com/careergurulabs/careerguru/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	historyStore, err := history.NewStore(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer historyStore.Close()

	userStore, err := auth.NewStore(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("user store init failed: %v", err)
	}
	defer userStore.Close()
	authSvc := auth.NewService(userStore)

	client, err := llm.NewClient(llm.Config{
		Mode:        cfg.LLMMode,
		APIKey:      cfg.GroqAPIKey,
		BaseURL:     cfg.GroqBaseURL,
		Model:       cfg.GroqModel,
		Temperature: cfg.GroqTemperature,
	})
	if err != nil {
		log.Fatalf("llm client init failed: %v", err)
	}
	if _, ok := client.(*llm.MockClient); ok {
		log.Printf("llm client: mock (no GROQ_API_KEY configured)")
	} else {
		log.Printf("llm client: groq model=%s", cfg.GroqModel)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	assistant := coach.New(sessions, client, historyStore, metrics)

	api := httpapi.New(cfg, sessions, assistant, authSvc, historyStore, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
