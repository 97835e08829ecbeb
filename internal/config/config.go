package config

import (
	"time"

	"github.com/fairwaylabs/gsproxy/internal/arbiter"
)

// ProxyConfig is the root configuration for a proxy instance.
type ProxyConfig struct {
	Listen  ListenConfig  `yaml:"listen"`
	GSPro   GSProConfig   `yaml:"gspro"`
	Routing RoutingConfig `yaml:"routing"`
	Logging LoggingConfig `yaml:"logging"`
	Shotlog ShotlogConfig `yaml:"shotlog"`
}

// ListenConfig holds the launch monitor listener settings.
type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GSProConfig holds the simulator connection settings.
type GSProConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
}

// RoutingConfig holds shot arbitration settings.
type RoutingConfig struct {
	// AllowMultipleActive keeps previously active monitors active when a
	// new player is announced. The default deactivates everyone first.
	AllowMultipleActive bool `yaml:"allow_multiple_active"`

	// Rules map player attributes to monitors. Empty means the built-in
	// handedness rules.
	Rules []arbiter.Rule `yaml:"rules"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ShotlogConfig holds the optional shot history writer settings.
type ShotlogConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
