package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/polisai/facets-oss/internal/httpapi"
	"github.com/polisai/facets-oss/pkg/assembly"
	"github.com/polisai/facets-oss/pkg/telemetry"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the container assembly API over HTTP",
		RunE:  runServe,
	}

	serveCmd.Flags().StringP("config", "c", "profiles.yaml", "Path to profiles file (YAML)")
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().String("otlp-endpoint", "", "OTLP gRPC endpoint for trace export (disabled when empty)")
	serveCmd.Flags().Bool("otlp-insecure", false, "Disable TLS for the OTLP exporter")
	return serveCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)

	configPath, _ := cmd.Flags().GetString("config")
	addr, _ := cmd.Flags().GetString("addr")
	otlpEndpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	otlpInsecure, _ := cmd.Flags().GetBool("otlp-insecure")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "facetd",
		Endpoint:    otlpEndpoint,
		Insecure:    otlpInsecure,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	loader, err := assembly.NewLoader(configPath)
	if err != nil {
		return err
	}
	defer loader.Close()

	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	if err := loader.Watch(func(set *assembly.ProfileSet) {
		logger.Info("profiles reloaded", "path", configPath, "profiles", len(set.Profiles))
	}); err != nil {
		return fmt.Errorf("watch profiles: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := httpapi.NewServer(httpapi.Config{
		Logger:    logger,
		Assembler: assembly.NewAssembler(registry),
		Profiles:  loader.Current,
		Registry:  registry,
	})

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "config", configPath)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
