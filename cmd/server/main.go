package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"match-lab/infrastructure/ws"
	"match-lab/internal"
	"match-lab/observability"
	"match-lab/repositories"
	"match-lab/runtime"
	"match-lab/runtime/workers"
	"match-lab/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"match-lab/domain/event"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

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
// The pattern keeps 'defer' statements (like database cleanup) executing before the process
// exits and decouples the wiring from the main entry point.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Shared runtime state
	stats := observability.NewMatchStats()
	registry := runtime.NewRegistry()
	responses := runtime.NewResponseRegistry()
	events := make(chan event.Event, config.EventBufferSize)

	presenceRepository := repositories.NewPresenceRepository(db)
	presenceService := services.NewPresenceService(presenceRepository, events, logger)
	notifier := services.NewNotifier(registry, logger)

	matchmaker := runtime.NewMatchmakerWorker(logger, registry, responses, stats,
		config.MatchResponseTimeout, config.CommandBufferSize)

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		internal.StartDebugServer(db, config.DebugPort, endpoint, PresenceMapper, stats.Snapshot)
	}

	// 4. WebSocket transport
	handler := ws.NewHandler(logger, registry, matchmaker, presenceService,
		notifier, stats, config.SendBufferSize, config.AuthTokenDuration)
	server := ws.NewServer(logger, handler, config.Host, config.Port)

	// 5. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervision
	sup := workers.NewSupervisor(logger)
	sup.Add(
		matchmaker,
		workers.NewPresenceFanout(logger, registry, events, stats),
		workers.NewHeartbeatWorker(logger, config.MetricInterval, stats, matchmaker),
		server,
	)

	logger.Info("Starting matchmaking service", "host", config.Host, "port", config.Port)
	sup.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// PresenceMapper renders a presence record as one dashboard row.
func PresenceMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)

	var record repositories.PresenceRecord
	if err := json.Unmarshal(val, &record); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.EntityID = record.Identity.String()
	row.Timestamp = record.UpdatedAt.Format(time.RFC3339)
	if record.Online {
		row.Detail = "online"
	} else {
		row.Detail = "offline"
	}
	return row
}
