// Command appwatch mirrors a SQLite-backed collection and reports every
// change as it is folded into the local copy.
//
// This command demonstrates a complete list-then-watch client with:
//   - CLI argument parsing
//   - Configuration file support (YAML)
//   - Snapshot plus change stream synchronization
//   - Optional resync with backoff after the stream ends
//   - Interactive command interface
//   - Structured sync event logging
//
// Usage:
//
//	appwatch [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-name string        Mirror name used in logs and traces (default "apps")
//	-db string          SQLite database holding the collection (default "appwatch.db")
//	-poll duration      Change log poll interval (default 250ms)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-sync-log string    File path for sync event logging (CBOR format)
//	-interactive        Enable interactive command mode
//	-resync             Start a fresh session with backoff when the stream ends
//
// Examples:
//
//	# Mirror a database and edit it interactively
//	appwatch -db apps.db -interactive
//
//	# Record a sync trace for appwatch-log
//	appwatch -db apps.db -sync-log sync.cbor -log-level debug
//
// Interactive Commands:
//
//	list                - List mirrored entities
//	get <key>           - Show one entity
//	create <key> [f=v]  - Create an entity
//	sync <key> [f=v]    - Replace an entity's payload
//	delete <key>        - Delete an entity
//	status              - Show synchronizer status
//	quit                - Exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appwatch/appwatch-go/cmd/appwatch/interactive"
	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/connection"
	synclog "github.com/appwatch/appwatch-go/pkg/log"
	"github.com/appwatch/appwatch-go/pkg/mirror"
	"github.com/appwatch/appwatch-go/pkg/source/sqlitesource"
)

func main() {
	config, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := setupLogging(config.LogLevel)

	log.Println("appwatch")
	log.Println("========")
	log.Printf("Mirror: %s", config.NameValue)
	log.Printf("Database: %s", config.DBPath)

	srcConfig := sqlitesource.DefaultConfig(config.DBPath)
	srcConfig.PollInterval = config.PollInterval
	srcConfig.Logger = logger
	src, err := sqlitesource.Open(srcConfig)
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer src.Close()

	// Sync event logging
	var eventLogs []synclog.Logger
	var fileLogger *synclog.FileLogger
	if config.SyncLog != "" {
		fileLogger, err = synclog.NewFileLogger(config.SyncLog)
		if err != nil {
			log.Fatalf("Failed to create sync logger: %v", err)
		}
		defer fileLogger.Close()
		eventLogs = append(eventLogs, fileLogger)
		log.Printf("Sync logging to: %s", config.SyncLog)
	}
	if logger != nil {
		eventLogs = append(eventLogs, synclog.NewSlogAdapter(logger))
	}

	mirrorConfig := mirror.DefaultConfig()
	mirrorConfig.Name = config.NameValue
	mirrorConfig.Logger = logger
	mirrorConfig.EventLog = synclog.Combine(eventLogs...)

	syncer, err := mirror.New(src, mirrorConfig)
	if err != nil {
		log.Fatalf("Failed to create mirror: %v", err)
	}
	syncer.OnChange(handleChange)
	syncer.OnStreamError(handleStreamError)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var initial collection.Collection
	var sup *connection.Supervisor
	if config.Resync {
		supConfig := connection.DefaultConfig()
		supConfig.Backoff = config.Backoff
		supConfig.Logger = logger
		supConfig.EventLog = mirrorConfig.EventLog
		sup = connection.NewSupervisor(syncer, supConfig)
		sup.OnResyncing(func(attempt int, delay time.Duration) {
			log.Printf("Resync attempt %d in %v", attempt, delay)
		})
		sup.OnResynced(func(c collection.Collection) {
			log.Printf("Resynced: %d entities", c.Len())
		})
		initial, err = sup.Start(ctx)
	} else {
		initial, err = syncer.Start(ctx)
	}
	if err != nil {
		log.Fatalf("Failed to start mirror: %v", err)
	}
	log.Printf("Snapshot installed: %d entities (version %d)", initial.Len(), syncer.Version())

	if config.Interactive {
		console, err := interactive.New(syncer, src, &config)
		if err != nil {
			log.Fatalf("Failed to create console: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		log.SetOutput(console.Stdout())
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Context was cancelled (e.g., by interactive quit command)
	}

	log.Println("Shutting down...")
	if sup != nil {
		sup.Close()
	}
	syncer.Stop()
	if fileLogger != nil {
		written, failed := fileLogger.Stats()
		log.Printf("Sync log: %d events written, %d failed", written, failed)
		if err := fileLogger.Err(); err != nil {
			log.Printf("Sync log error: %v", err)
		}
	}
	log.Println("Goodbye")
}

func handleChange(c mirror.Change) {
	ev := c.Event
	switch ev.Type {
	case collection.EventDeleted:
		log.Printf("[%s] %s (version %d, %d entities)", ev.Type, ev.Entity.Key, ev.Version, c.Collection.Len())
	default:
		log.Printf("[%s] %s at %d (version %d, %d entities)", ev.Type, ev.Entity.Key, c.Index, ev.Version, c.Collection.Len())
	}
}

func handleStreamError(err *mirror.StreamError) {
	if err.Terminal {
		log.Printf("Change stream ended: %v", err.Err)
		return
	}
	log.Printf("Change stream error: %v", err.Err)
}

// setupLogging configures the standard logger and returns the debug logger
// handed to library packages, nil unless level is debug.
func setupLogging(level string) *slog.Logger {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
	return nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
}
