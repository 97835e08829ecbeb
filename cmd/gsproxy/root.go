package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairwaylabs/gsproxy/internal/config"
	"github.com/fairwaylabs/gsproxy/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "gsproxy",
	Short: "Launch monitor proxy for GSPro",
	Long: "gsproxy sits between multiple launch monitors and a single GSPro " +
		"Connect endpoint, arbitrating which monitor is live for the current " +
		"player and relaying traffic both ways.",
	Version: version.String(),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backendCmd)
	rootCmd.AddCommand(monitorCmd)
}

// newLogger builds a logger from the logging section. Used by every
// subcommand so log texture stays uniform across the tools.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
