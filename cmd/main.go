package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collab-chat/api"
	"collab-chat/internal"
	"collab-chat/moderation"
	"collab-chat/observability"
	"collab-chat/realtime"
	"collab-chat/repositories"
	"collab-chat/services"
	"collab-chat/ws"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Moderation
	censoredData, err := moderation.LoadCensoredWords()
	if err != nil {
		return fmt.Errorf("loading censored words failed: %w", err)
	}
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(censoredData.Words, replacement, log)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}
	log.Info("Moderation ready",
		"words", len(censoredData.Words), "languages", censoredData.Languages)

	// 4. Core wiring
	stats := observability.NewStatsManager()
	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(log, registry, stats)

	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	conversationRepository := repositories.NewConversationRepository(db, log)

	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	chatService := services.NewChatService(log, registry, broadcaster,
		conversationRepository, messageRepository, &moderator, stats)
	conversationService := services.NewConversationService(log,
		conversationRepository, messageRepository, broadcaster, &moderator, stats)

	// 5. HTTP surface (REST + WebSocket upgrades on one mux)
	mux := http.NewServeMux()
	api.NewServer(log, authService, conversationService, stats).RegisterRoutes(mux)
	ws.NewHandler(log, authService, chatService, stats, config.WebSocket()).RegisterRoutes(mux)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Debug inspector & process health
	health := observability.NewHealthMonitor(log, config.MetricInterval)
	internal.StartDebugServer(db, config.DebugPort, "/inspect", internal.DefaultMapper,
		func() map[string]any { return health.Snapshot(stats) })

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		_ = health.Run(ctx)
	}()

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}
