package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/prepdeck/backend/api"
	"github.com/prepdeck/backend/internal/aggregate"
	"github.com/prepdeck/backend/internal/config"
	"github.com/prepdeck/backend/internal/db"
	"github.com/prepdeck/backend/internal/jobs"
	"github.com/prepdeck/backend/internal/pipeline"
	"github.com/prepdeck/backend/internal/repository/sqlite"
	"github.com/prepdeck/backend/pkg/gemini"
	"github.com/prepdeck/backend/pkg/groq"
	"github.com/prepdeck/backend/pkg/reader"
	"github.com/prepdeck/backend/pkg/serper"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	// .env is optional; environment wins in production.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	groq.SetLogger(logger)
	gemini.SetLogger(logger)
	serper.SetLogger(logger)
	reader.SetLogger(logger)
	aggregate.SetLogger(logger)

	log.Printf("Starting prepdeck server version %s (built at %s)", version, buildTime)

	ctx := context.Background()

	// Open database connection and apply migrations
	database, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, database); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	repo := sqlite.New(database)

	// Generative backends
	lightClient, err := gemini.NewClient(ctx, cfg.Gemini)
	if err != nil {
		log.Fatalf("Failed to create gemini client: %v", err)
	}
	heavyClient, err := groq.NewDefaultClient(cfg.Groq)
	if err != nil {
		log.Fatalf("Failed to create groq client: %v", err)
	}

	// Web search and content fetching
	searchClient, err := serper.NewClient(cfg.Serper)
	if err != nil {
		log.Fatalf("Failed to create serper client: %v", err)
	}
	readerClient := reader.NewClient(cfg.Reader)
	collector := aggregate.New(searchClient, readerClient)

	pipe := pipeline.New(repo, repo, repo, repo, repo, nil, lightClient, heavyClient, collector,
		pipeline.Config{
			CallTimeout: cfg.Pipeline.CallTimeout,
			JobTimeout:  cfg.Pipeline.JobTimeout,
			MaxAttempts: cfg.Pipeline.MaxAttempts,
		}, logger)

	pool := jobs.NewWorkerPool(repo, pipe.Handlers(), logger, cfg.Workers.Count)
	pipe.SetQueue(pool)
	pool.Start(ctx)

	handler := api.SetupRoutes(api.Deps{
		Users:     repo,
		Questions: repo,
		Quizzes:   repo,
		Analyses:  repo,
		Pipeline:  pipe,
	}, version, buildTime)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	pool.Stop()
	if err := heavyClient.Close(); err != nil {
		log.Printf("Error closing groq client: %v", err)
	}
	if err := lightClient.Close(); err != nil {
		log.Printf("Error closing gemini client: %v", err)
	}
	searchClient.Close()
	readerClient.Close()

	// Close database connection
	if err := database.Close(); err != nil {
		log.Printf("Error closing DB: %v", err)
	}

	log.Println("Server exited")
}
