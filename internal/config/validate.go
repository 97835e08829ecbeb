package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *ProxyConfig) Validate() error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port must be between 1 and 65535, got %d", c.Listen.Port)
	}

	if c.GSPro.Host == "" {
		return errors.New("gspro.host is required")
	}
	if c.GSPro.Port < 1 || c.GSPro.Port > 65535 {
		return fmt.Errorf("gspro.port must be between 1 and 65535, got %d", c.GSPro.Port)
	}
	if c.GSPro.ReconnectBaseDelay <= 0 {
		return errors.New("gspro.reconnect_base_delay must be positive")
	}
	if c.GSPro.ReconnectMaxDelay < c.GSPro.ReconnectBaseDelay {
		return fmt.Errorf("gspro.reconnect_max_delay (%v) cannot be less than reconnect_base_delay (%v)",
			c.GSPro.ReconnectMaxDelay, c.GSPro.ReconnectBaseDelay)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Shotlog.Enabled {
		if c.Shotlog.BatchSize < 1 {
			return errors.New("shotlog.batch_size must be >= 1")
		}
		if c.Shotlog.BufferSize < 1 {
			return errors.New("shotlog.buffer_size must be >= 1")
		}
		if err := c.Shotlog.Database.validate("shotlog.database"); err != nil {
			return err
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
