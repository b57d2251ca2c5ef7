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
	"github.com/turing-station/backend/internal/config"
	"github.com/turing-station/backend/internal/handler"
	"github.com/turing-station/backend/internal/middleware"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/service/ai"
	"github.com/turing-station/backend/internal/service/game"
	"github.com/turing-station/backend/internal/service/interrogation"
	"github.com/turing-station/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cast := character.Default()

	aiService, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI service (%s): %v", cfg.AI.ProviderName(), err)
	}
	log.Printf("AI service initialized provider=%s model=%s streaming=%t",
		cfg.AI.ProviderName(), cfg.AI.ModelName(), aiService.StreamingEnabled())
	defer func() {
		if err := aiService.Close(); err != nil {
			log.Printf("warning: failed to close AI client: %v", err)
		}
	}()

	ledger, err := store.Open(cfg.Ledger)
	if err != nil {
		log.Fatalf("failed to open case ledger: %v", err)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			log.Printf("warning: failed to close case ledger: %v", err)
		}
	}()
	log.Printf("case ledger driver=%s", cfg.Ledger.Driver)

	registry := game.NewRegistry(cast, game.Config{
		MaxQuestions:   cfg.Game.MaxQuestions,
		SessionTimeout: cfg.Game.SessionTimeout,
		SweepInterval:  cfg.Game.SweepInterval,
	},
		game.WithArchive(ledger),
		game.WithKillerLogging(cfg.Server.Development()),
	)
	registry.Start(ctx)
	defer registry.Stop()

	coordinator := interrogation.NewCoordinator(registry, cast, aiService,
		interrogation.WithProviderTimeout(cfg.AI.Timeout))
	defer coordinator.Wait()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	limiter.StartEviction(ctx)

	router := handler.NewRouter(handler.Dependencies{
		Cast:           cast,
		Registry:       registry,
		Coordinator:    coordinator,
		Ledger:         ledger,
		Pinger:         aiService,
		Limiter:        limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Development:    cfg.Server.Development(),
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Turing Station backend listening on %s (env=%s)", addr, serverCfg.Env)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
