package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-server/api"
	"chat-server/repositories"
	"chat-server/runtime"
	"chat-server/runtime/workers"
	"chat-server/services"
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
// 3. It provides a structured way to handle graceful shutdowns for HTTP and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Databases (BadgerDB + user search index)
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

	userIndex, err := repositories.NewUserIndex(config.BlugeFilepath)
	if err != nil {
		return fmt.Errorf("user index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing user index...")
		_ = userIndex.Close()
	}()

	// 3. Repositories
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	archiveRepository := repositories.NewArchiveRepository(db)
	userRepository := repositories.NewUserRepository(db)
	chatRepository := repositories.NewChatRepository(db)

	// 4. Presence, broadcaster, archiver, supervision
	registry := runtime.NewRegistry()
	fanout := workers.NewFanoutWorker(log, registry, config.FanoutBufferSize, config.SinkTimeout)
	archiver := workers.NewArchiveWorker(log, messageRepository, archiveRepository,
		config.SweepInterval, workers.Policy{
			Retention:  config.RetentionWindow,
			Threshold:  config.SweepThreshold,
			KeepRecent: config.KeepRecent,
		})
	heartbeat := workers.NewHeartbeatWorker(log, config.HeartbeatInterval)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(fanout, archiver, heartbeat)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()

	// 6. Services & HTTP server
	handler := api.NewHandler(log,
		services.NewAuthService(userRepository, userIndex, config.AuthTokenDuration),
		services.NewUserService(userRepository, userIndex, config.SearchLimit),
		services.NewChatService(chatRepository),
		services.NewMessageService(messageRepository, chatRepository, fanout),
		services.NewArchiveService(archiver, archiveRepository),
		registry, config.ConnectionBufferSize)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: handler.Router()}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown did not finish cleanly", "error", err)
	}
	sup.Stop()
	<-supervisorDone
	log.Info("Program stopped cleanly")

	return nil
}
