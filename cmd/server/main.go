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

	"glammatch-backend/internal/api"
	"glammatch-backend/internal/config"
	"glammatch-backend/internal/handlers"
	"glammatch-backend/internal/services"
	"glammatch-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting GlamMatch Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second) // Timeout for initial connection
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	if err := postgres.RunMigrations(dbCtx, dbpool); err != nil {
		log.Fatalf("FATAL: Failed to run database migrations: %v", err)
	}

	// 3. Initialize Dependencies (Store, Notifier, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)
	log.Println("Postgres store initialized.")

	notifier := services.NewNotifier()
	log.Println("Realtime notifier initialized.")

	authService := services.NewAuthService(pgStore, cfg)
	log.Println("AuthService initialized.")
	conversationService := services.NewConversationService(pgStore, notifier)
	log.Println("ConversationService initialized.")
	messageService := services.NewMessageService(pgStore, notifier, cfg.MessagePageSize)
	log.Println("MessageService initialized.")

	authHandler := handlers.NewAuthHandler(authService)
	conversationHandler := handlers.NewConversationHandlers(conversationService)
	messageHandler := handlers.NewMessageHandlers(messageService)
	feedHandler := handlers.NewFeedHandlers(conversationService, messageService)
	log.Println("Handlers initialized.")

	// 4. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		AuthHandler:         authHandler,
		ConversationHandler: conversationHandler,
		MessageHandler:      messageHandler,
		FeedHandler:         feedHandler,
		Config:              cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks.
		// WriteTimeout stays unset because the websocket feeds hold their
		// connections open indefinitely.
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	// Run server in a goroutine so it doesn't block
	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	// Wait for interrupt signal
	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
