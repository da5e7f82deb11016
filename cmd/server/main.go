package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/nada/internal/config"
	"github.com/me/nada/internal/launcher"
	"github.com/me/nada/internal/logging"
	"github.com/me/nada/internal/resolver"
	"github.com/me/nada/internal/server"
	"github.com/me/nada/pkg/kestra"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config and NADA_ADDR)")
	engineURL := flag.String("engine-url", "", "Kestra base URL (overrides KESTRA_API_URL)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (text, json)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *engineURL != "" {
		cfg.Engine.BaseURL = *engineURL
	}
	if *logLevel != "" {
		cfg.Server.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.Server.LogFormat = *logFormat
	}
	if *debug {
		cfg.Server.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	kc := kestra.NewClient(cfg.Kestra(), logger)
	srv := server.New(cfg,
		launcher.New(kc, logger),
		resolver.New(kc, cfg.Resolver(), logger),
		logger,
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting",
			"addr", cfg.Server.Addr,
			"namespace", cfg.Engine.Namespace,
			"flow", cfg.Engine.FlowID,
			"authorization", cfg.Engine.Authorization != "",
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
