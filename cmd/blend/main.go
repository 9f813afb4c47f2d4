package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zsiec/blend/internal/config"
	"github.com/zsiec/blend/internal/health"
	"github.com/zsiec/blend/internal/logger"
	"github.com/zsiec/blend/internal/server"
	"github.com/zsiec/blend/pkg/version"
)

func main() {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "configs/default.yaml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	// Show version and exit if requested
	if showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithField("version", version.GetInfo().Short()).Info("Starting blend compositing server")
	log.WithField("config_path", configPath).Debug("Configuration loaded")

	// Start metrics server if enabled
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics, logger.NewLogrusAdapter(log.WithField("component", "metrics")))
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	// Assemble the compositing session
	sess, err := newSession(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create session")
	}
	defer sess.close()

	go sess.run(ctx)

	// Start the API server
	srv := server.New(&cfg.Server, log, sess.stats)
	srv.Health().Register(health.NewSessionChecker(
		func() health.SessionStats {
			stats := sess.stats()
			return health.SessionStats{
				State:       stats.State,
				PendingSets: stats.PendingSets,
				InFlight:    stats.InFlight,
			}
		},
		func() bool { return !sess.healthy() },
	))

	if cfg.Server.Enabled {
		if err := srv.Start(ctx); err != nil {
			log.WithError(err).Fatal("Server error")
		}
	} else {
		<-ctx.Done()
	}

	log.Info("Server shutdown complete")
}

// startMetricsServer starts the Prometheus metrics server
func startMetricsServer(cfg config.MetricsConfig, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithField("addr", addr).Info("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("Metrics server error")
	}
}
