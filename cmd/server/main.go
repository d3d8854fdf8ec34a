package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/auth"
	chathttp "chat-relay/infrastructure/http"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanups (database close, index flush) only execute when run returns
// instead of exiting the process halfway.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Stores: badger for the channel log, bluge for search, sqlite for metadata
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("channel log opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	metadata, err := repositories.OpenMetadataStore(config.SqliteFilepath)
	if err != nil {
		return exitRuntime, fmt.Errorf("metadata store opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing metadata store...")
		_ = metadata.Close()
	}()

	// 3. Core wiring
	moderator, err := moderation.NewModerator(config.CensoredWordList(), charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderator init failed: %w", err)
	}

	issuer := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	registry := runtime.NewRegistry(logger)
	messageRepository := repositories.NewMessageRepository(db, blugeWriter, logger)
	presenceRepository := repositories.NewPresenceRepository(db)

	authService := services.NewAuthService(metadata, issuer)
	channelService := services.NewChannelService(metadata)
	chatService := services.NewChatService(registry, messageRepository, presenceRepository, moderator, logger)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised background workers
	sup := workers.NewSupervisor(logger)
	sup.Add(workers.NewBadgerGCWorker(logger, db, gcInterval(config)))
	go sup.Run(ctx)

	// 6. HTTP server (REST + websocket)
	server := chathttp.NewServer(authService, channelService, chatService, sessionConfig(config), logger)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:    address,
		Handler: server.Router(chathttp.NewAuthMiddleware(issuer)),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	// Active sessions get a bounded window to flush before connections drop.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

func sessionConfig(config Config) runtime.SessionConfig {
	cfg := runtime.DefaultSessionConfig()
	if config.HeartbeatInterval > 0 {
		cfg.HeartbeatInterval = config.HeartbeatInterval
	}
	if config.ClientTimeout > 0 {
		cfg.ClientTimeout = config.ClientTimeout
	}
	if config.WriteWait > 0 {
		cfg.WriteWait = config.WriteWait
	}
	if config.SendBuffer > 0 {
		cfg.SendBuffer = config.SendBuffer
	}
	return cfg
}

func gcInterval(config Config) time.Duration {
	if config.GCInterval > 0 {
		return config.GCInterval
	}
	return 5 * time.Minute
}
