package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michael213532/ai-debate/internal/adapter/llm"
	"github.com/michael213532/ai-debate/internal/config"
	"github.com/michael213532/ai-debate/internal/credential"
	"github.com/michael213532/ai-debate/internal/debate"
	"github.com/michael213532/ai-debate/internal/hub"
	"github.com/michael213532/ai-debate/internal/metrics"
	"github.com/michael213532/ai-debate/internal/policy"
	"github.com/michael213532/ai-debate/internal/repository"
	"github.com/michael213532/ai-debate/internal/service"
	handler "github.com/michael213532/ai-debate/internal/transport/http"
	"github.com/michael213532/ai-debate/internal/transport/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if cfg.LogLevel == "debug" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	log.Printf("Starting debate service...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Configured provider keys: %d", len(cfg.ProviderKeys))

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize credential vault
	vault, err := credential.NewVault(db, cfg.EncryptionKey, cfg.ProviderKeys)
	if err != nil {
		log.Fatalf("Failed to initialize credential vault: %v", err)
	}
	if cfg.Mode == llm.ModeMock {
		vault.UsePlaceholder("mock")
	}

	// Initialize model catalog
	catalog, err := config.LoadCatalog(cfg.ModelCatalogPath)
	if err != nil {
		log.Fatalf("Failed to load model catalog: %v", err)
	}

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.LoadEngine(ctx, cfg.PolicyPath)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize providers
	providers := llm.NewProviderRegistry(llm.Options{
		BaseURLs:    cfg.ProviderBaseURLs,
		IdleTimeout: cfg.StreamIdleTimeout,
		Mode:        cfg.Mode,
		MockDelay:   50 * time.Millisecond,
	})
	log.Printf("Providers: %v", providers.Names())

	// Initialize metrics and connection hub
	m := metrics.New()
	connectionHub := hub.NewHub(cfg.OutboxSize, m)

	// Initialize service
	svc := service.New(db, providers, vault, catalog, policyEngine, connectionHub, m, debate.Config{
		ModelTimeout:      cfg.ModelTimeout,
		SessionTimeout:    cfg.SessionTimeout,
		MaxParticipants:   cfg.MaxParticipants,
		MaxRounds:         cfg.MaxRounds,
		FailOnSilentRound: cfg.FailOnSilentRound,
	})

	// Create Echo server
	wsServer := ws.NewServer(cfg, connectionHub, svc)
	server := handler.NewServer(svc, wsServer, m)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down debate service...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop sessions first so their transcripts are saved
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to stop sessions gracefully: %v", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Debate service stopped")
}
