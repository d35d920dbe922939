// Freeflow is the ambient context daemon for push-to-talk dictation. For each
// dictation cycle it reports the foreground application, window title,
// selected text, a size-bounded screenshot, and a two-sentence summary of
// what the user is doing.
//
// Usage:
//
//	freeflow [flags]
//	freeflow --config /path/to/freeflow.yaml
//	freeflow --once
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/nadzzz/freeflow/internal/collector"
	"github.com/nadzzz/freeflow/internal/config"
	"github.com/nadzzz/freeflow/internal/credential"
	"github.com/nadzzz/freeflow/internal/health"
	"github.com/nadzzz/freeflow/internal/platform"
	"github.com/nadzzz/freeflow/internal/platform/scene"
	"github.com/nadzzz/freeflow/internal/transport"
	grpctransport "github.com/nadzzz/freeflow/internal/transport/grpc"
	httptransport "github.com/nadzzz/freeflow/internal/transport/http"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/freeflow.local.yaml)")
	once := flag.Bool("once", false, "collect a single snapshot, print it as JSON, and exit")
	setKey := flag.Bool("set-api-key", false, "read an inference API key from stdin and store it in the credentials file")
	clearKey := flag.Bool("clear-api-key", false, "remove the stored inference API key")
	flag.Parse()

	if *showVersion {
		fmt.Printf("freeflow %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)

	keyFile := credential.NewFile(cfg.Credentials.File)
	switch {
	case *setKey:
		if err := storeKey(keyFile); err != nil {
			slog.Error("storing API key failed", "error", err)
			os.Exit(1)
		}
		slog.Info("API key stored", "path", keyFile.Path())
		return
	case *clearKey:
		if err := keyFile.Delete(); err != nil {
			slog.Error("removing API key failed", "error", err)
			os.Exit(1)
		}
		slog.Info("API key removed", "path", keyFile.Path())
		return
	}

	// Initialize the platform backend.
	var backend platform.Backend
	switch cfg.Platform.Backend {
	case "scene":
		b, err := scene.Load(cfg.Platform.SceneFile)
		if err != nil {
			slog.Error("failed to load scene", "error", err)
			os.Exit(1)
		}
		backend = b
		slog.Info("using scene platform backend", "file", cfg.Platform.SceneFile)
	default:
		backend = platform.Unsupported{}
		slog.Warn("no accessibility bindings on this host, every cycle resolves to an unrecognized context")
	}

	// A key from config or the environment wins over the stored one.
	keys := credential.Chain{credential.Static(cfg.Inference.APIKey), keyFile}
	coll := collector.New(backend, cfg, keys)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		snap := coll.Start(ctx).Wait()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(transport.NewResponse(&snap)); err != nil {
			slog.Error("writing snapshot failed", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("freeflow starting", "version", version)

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port))
	}

	if len(transports) == 0 {
		slog.Error("no transports enabled, enable at least one in config or use --once")
		os.Exit(1)
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, backend)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, coll.Handle); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("freeflow ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort,
		"accessibility", backend.Trusted(),
		"screen_recording", backend.ScreenCaptureAllowed())

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("freeflow stopped")
}

// storeKey reads one line from stdin and saves it.
func storeKey(f *credential.File) error {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading key from stdin: %w", err)
	}
	return f.Save(strings.TrimSpace(line))
}
