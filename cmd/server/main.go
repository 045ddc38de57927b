package main

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relay-lab/auth"
	"relay-lab/domain"
	"relay-lab/infrastructure/rest"
	"relay-lab/infrastructure/ws"
	"relay-lab/internal"
	"relay-lab/observability"
	"relay-lab/repositories"
	"relay-lab/runtime"
	"relay-lab/runtime/workers"
	"relay-lab/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service
// manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper. Its only responsibility is
	// to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close included)
// executes before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	auth.SetSigningKey([]byte(config.AuthSigningKey))
	ctx := context.Background()

	// 2. Database (BadgerDB) — persistence gateway only. The relay keeps no
	// durable state; presence is rebuilt as clients reconnect.
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Real-time core
	metrics := observability.NewMetrics()
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(logger, runtime.FullSnapshot{})
	relay := runtime.NewRelay(logger, registry, metrics)
	hub := runtime.NewHub(logger, registry, broadcaster, relay, metrics)

	// 4. Persistence gateway & accounts
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	messageService := services.NewMessageService(logger, messageRepository, userRepository)

	if logger.Enabled(ctx, slog.LevelDebug) {
		logger.Info("Debug inspector available",
			"url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
		internal.StartDebugServer(db, config.DebugPort, "/inspect",
			messageMapper, statsProvider(registry, metrics))
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervised background workers
	sup := workers.NewSupervisor(logger)
	sup.Add(workers.NewMonitoringWorker(logger, metrics, config.MetricInterval))
	go sup.Run(ctx)

	// 7. HTTP server: websocket upgrade + REST write path
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "API is running...")
	})
	mux.Handle("/ws", ws.NewHandler(logger, hub, config.ConnectionBufferSize))
	rest.NewHandler(logger, authService, messageService).Mount(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", config.Port),
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", server.Addr, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Graceful Shutdown
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

// messageMapper decodes stored messages for the inspector.
func messageMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)

	var message domain.Message
	if err := json.Unmarshal(val, &message); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	read := " (unread)"
	if message.Read {
		read = ""
	}
	row.Detail = fmt.Sprintf("%s -> %s: %s%s",
		message.SenderID, message.RecipientID, message.Text, read)
	return row
}

func statsProvider(registry *runtime.Registry, metrics *observability.Metrics) internal.StatsProvider {
	return func() map[string]any {
		stats := metrics.GetLatest()
		return map[string]any{
			"online_users":     len(registry.SnapshotUserIDs()),
			"open_connections": stats.OpenConnections,
			"messages_relayed": stats.MessagesRelayed,
			"delivery_failed":  stats.DeliveryFailed,
			"events_rejected":  stats.EventsRejected,
			"alloc_mem_mb":     stats.AllocMemMb,
			"cpu_percent":      fmt.Sprintf("%.1f", stats.CPUPercent),
		}
	}
}
