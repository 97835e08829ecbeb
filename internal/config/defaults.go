package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultListenHost         = "0.0.0.0"
	DefaultListenPort         = 8888
	DefaultGSProHost          = "localhost"
	DefaultGSProPort          = 921
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultPingInterval       = 30 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 1024
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
)

func (c *ProxyConfig) applyDefaults() {
	// Listener defaults
	if c.Listen.Host == "" {
		c.Listen.Host = DefaultListenHost
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = DefaultListenPort
	}

	// Simulator defaults
	if c.GSPro.Host == "" {
		c.GSPro.Host = DefaultGSProHost
	}
	if c.GSPro.Port == 0 {
		c.GSPro.Port = DefaultGSProPort
	}
	if c.GSPro.ReconnectBaseDelay == 0 {
		c.GSPro.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.GSPro.ReconnectMaxDelay == 0 {
		c.GSPro.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.GSPro.HandshakeTimeout == 0 {
		c.GSPro.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.GSPro.PingInterval == 0 {
		c.GSPro.PingInterval = DefaultPingInterval
	}

	// Routing rules are left alone: the arbitration engine supplies the
	// built-in handedness rules when none are configured.

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Shot history defaults
	if c.Shotlog.BatchSize == 0 {
		c.Shotlog.BatchSize = DefaultBatchSize
	}
	if c.Shotlog.FlushInterval == 0 {
		c.Shotlog.FlushInterval = DefaultFlushInterval
	}
	if c.Shotlog.BufferSize == 0 {
		c.Shotlog.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Shotlog.Database)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
