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

	"canvaslab/internal/api"
	"canvaslab/internal/config"
	"canvaslab/internal/db"
	"canvaslab/internal/repository"
	"canvaslab/internal/services"
	"canvaslab/internal/services/collaboration"
	"canvaslab/internal/session"
	"canvaslab/internal/telemetry"
)

func main() {
	log.Println("🚀 Starting CanvasLab collaboration server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Initialize Jaeger tracing first so all operations are traced
	jaegerShutdown, err := telemetry.InitJaeger("canvaslab", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	// Initialize GORM database
	database, err := db.NewGorm(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Session store: the external authentication collaborator. Sockets
	// without a resolvable identity are rejected before room admission.
	sessions, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to session store: %v", err)
	}
	log.Println("✓ Session store connected")

	// Initialize repositories
	labRepo := repository.NewLabRepository(database.DB)
	commitRepo := repository.NewCommitRepository(database.DB)

	// Commit persister worker pool: writes relayed commits to the log
	// off the broadcast hot path and trims each lab's log to the
	// configured retention
	persister := services.NewCommitPersister(commitRepo, cfg.PersistWorkers, cfg.PersistQueueSize, cfg.CommitRetention)
	persister.Start()

	// WebSocket session manager for real-time collaboration
	sessionManager := collaboration.NewSessionManager()
	sessionManager.SetCommitLog(persister)
	sessionManager.Start()

	// WebSocket handler runs the join sequence: authenticate, assign
	// presence color, replay commit history, register
	wsHandler := collaboration.NewWebSocketHandler(sessionManager, sessions)

	// Initialize handlers with dependency injection
	handler := api.NewHandler(labRepo, persister, commitRepo, wsHandler)

	// Setup routes
	router := api.SetupRoutes(handler)

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		log.Printf("📚 API Endpoints:")
		log.Printf("   POST   /api/labs               - Create lab")
		log.Printf("   GET    /api/labs               - List labs")
		log.Printf("   GET    /api/labs/:id           - Get lab")
		log.Printf("   DELETE /api/labs/:id           - Delete lab (soft)")
		log.Printf("   GET    /api/labs/:id/commits   - Commit history")
		log.Printf("   GET    /api/labs/:id/shapes/:shapeId/commits - Per-shape history")
		log.Printf("   WS     /ws/lab/:id             - Join lab session")
		log.Println()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// Close sockets first so no new commits reach the persister, then
	// drain the persister queue
	sessionManager.Shutdown()
	persister.Shutdown()

	log.Println("✓ Server shutdown complete")
}
