package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairwaylabs/gsproxy/internal/arbiter"
	"github.com/fairwaylabs/gsproxy/internal/config"
	"github.com/fairwaylabs/gsproxy/internal/database"
	"github.com/fairwaylabs/gsproxy/internal/gspro"
	"github.com/fairwaylabs/gsproxy/internal/monitor"
	"github.com/fairwaylabs/gsproxy/internal/proxy"
	"github.com/fairwaylabs/gsproxy/internal/shotlog"
	"github.com/fairwaylabs/gsproxy/internal/version"
)

const defaultConfigPath = "configs/gsproxy.yaml"

var (
	serveConfigPath string
	serveListenHost string
	serveListenPort int
	serveGSProHost  string
	serveGSProPort  int
	serveDebug      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the launch monitor proxy",
	Long: "serve accepts launch monitor WebSocket connections and routes " +
		"their traffic to and from a GSPro Connect endpoint.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", defaultConfigPath, "Path to configuration YAML")
	serveCmd.Flags().StringVar(&serveListenHost, "host", "", "Listen host override")
	serveCmd.Flags().IntVar(&serveListenPort, "port", 0, "Listen port override")
	serveCmd.Flags().StringVar(&serveGSProHost, "gspro-host", "", "GSPro host override")
	serveCmd.Flags().IntVar(&serveGSProPort, "gspro-port", 0, "GSPro port override")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, usedDefaults, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting gsproxy",
		"version", version.Version,
		"commit", version.Commit,
		"config", serveConfigPath,
	)
	if usedDefaults {
		logger.Warn("config file not found, using built-in defaults", "path", serveConfigPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	rules := arbiter.RuleSet(cfg.Routing.Rules)
	if len(rules) == 0 {
		rules = arbiter.DefaultRules()
	}
	engine := arbiter.NewEngine(rules, logger)
	registry := monitor.NewRegistry(cfg.Routing.AllowMultipleActive, logger)

	link := gspro.NewLink(gspro.LinkConfig{
		URL:                gspro.URL(cfg.GSPro.Host, cfg.GSPro.Port),
		ReconnectBaseDelay: cfg.GSPro.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.GSPro.ReconnectMaxDelay,
		HandshakeTimeout:   cfg.GSPro.HandshakeTimeout,
		PingInterval:       cfg.GSPro.PingInterval,
	}, logger)

	opts := []proxy.Option{proxy.WithLogger(logger)}

	var writer *shotlog.Writer
	if cfg.Shotlog.Enabled {
		logger.Info("connecting to shot history database",
			"host", cfg.Shotlog.Database.Host,
			"port", cfg.Shotlog.Database.Port,
			"database", cfg.Shotlog.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Shotlog.Database)
		if err != nil {
			return fmt.Errorf("connect shot history database: %w", err)
		}
		defer pool.Close()
		logger.Info("shot history database connected")

		writer = shotlog.NewWriter(shotlog.Config{
			BatchSize:     cfg.Shotlog.BatchSize,
			FlushInterval: cfg.Shotlog.FlushInterval,
			BufferSize:    cfg.Shotlog.BufferSize,
		}, pool, logger)
		writer.Start(ctx)
		opts = append(opts, proxy.WithShotRecorder(writer))
	}

	p := proxy.NewProxy(proxy.Config{
		ListenAddr: net.JoinHostPort(cfg.Listen.Host, strconv.Itoa(cfg.Listen.Port)),
	}, registry, engine, link, opts...)

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start proxy: %w", err)
	}

	logger.Info("gsproxy running",
		"listen", p.Addr().String(),
		"gspro", gspro.URL(cfg.GSPro.Host, cfg.GSPro.Port),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := p.Stop(shutdownCtx); err != nil {
		logger.Error("proxy shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Stop(shutdownCtx); err != nil {
			logger.Error("shot writer shutdown error", "error", err)
		}
	}

	logger.Info("gsproxy stopped")
	return nil
}

// loadServeConfig loads the YAML config and applies flag overrides. A
// missing file at the default path falls back to built-in defaults so
// the proxy runs without any configuration; an explicitly given path
// that does not exist is an error.
func loadServeConfig(cmd *cobra.Command) (*config.ProxyConfig, bool, error) {
	var (
		cfg          *config.ProxyConfig
		usedDefaults bool
	)

	_, statErr := os.Stat(serveConfigPath)
	switch {
	case statErr == nil:
		loaded, err := config.LoadWithDefaults(serveConfigPath)
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	case errors.Is(statErr, os.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
		usedDefaults = true
	default:
		return nil, false, fmt.Errorf("read config file: %w", statErr)
	}

	if cmd.Flags().Changed("host") {
		cfg.Listen.Host = serveListenHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Listen.Port = serveListenPort
	}
	if cmd.Flags().Changed("gspro-host") {
		cfg.GSPro.Host = serveGSProHost
	}
	if cmd.Flags().Changed("gspro-port") {
		cfg.GSPro.Port = serveGSProPort
	}
	if serveDebug {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("validate config: %w", err)
	}
	return cfg, usedDefaults, nil
}
