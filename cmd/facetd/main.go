// Package main is the entry point for the facetd binary: a demo and
// admin surface for the faceted composition engine.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "facetd",
		Short: "Dynamic capability composition for domain entities",
		Long: `facetd assembles containers that wrap a core entity and attach
behavior facets (account, security, audit, perf, notify, policy) at
runtime, driven by YAML profiles.

Use "facetd demo" for a self-contained walkthrough, or "facetd serve"
to expose the assembly API over HTTP.`,
	}

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newDemoCmd())
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

// newLogger builds the process logger from the persistent log-level flag.
func newLogger(cmd *cobra.Command) *slog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
