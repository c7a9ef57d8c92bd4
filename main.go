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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/medpipe/orchestrator/internal/agent"
	"github.com/medpipe/orchestrator/internal/archive"
	"github.com/medpipe/orchestrator/internal/config"
	"github.com/medpipe/orchestrator/internal/llm"
	"github.com/medpipe/orchestrator/internal/policy"
	"github.com/medpipe/orchestrator/internal/service"
	"github.com/medpipe/orchestrator/internal/store"
	v1 "github.com/medpipe/orchestrator/internal/transport/http/v1"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting assessment orchestrator...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("LLM Base URL: %s", cfg.LLMBaseURL)
	log.Printf("LLM Model: %s", cfg.LLMModel)
	log.Printf("Archive DSN: %s", cfg.ArchiveDSN)

	// Initialize terminal-session archive
	archv, err := archive.NewSQLiteArchive(cfg.ArchiveDSN)
	if err != nil {
		log.Fatalf("Failed to initialize archive: %v", err)
	}
	defer archv.Close()

	// Initialize LLM client
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)

	// Initialize review-priority policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Assemble the assessment pipeline
	pipeline := []agent.Capability{
		agent.NewTriageAgent(llmClient, cfg.LLMModel),
		agent.NewPharmacistAgent(llmClient, cfg.LLMModel),
		agent.NewExamAgent(llmClient, cfg.LLMModel),
		agent.NewEMRCommsAgent(llmClient, cfg.LLMModel),
	}

	// Initialize service
	svc := service.New(store.NewMemoryStore(), pipeline, policyEngine, archv, cfg)

	// Initialize handler
	h := v1.NewHandler(svc)

	// Create Echo server
	server := echo.New()
	server.HideBanner = true

	// Middleware
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(server)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Assessment API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down orchestrator...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Orchestrator stopped")
}
