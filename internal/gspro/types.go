package gspro

import (
	"errors"
	"time"
)

var (
	// ErrNotConnected is returned when a write is attempted while the
	// underlying WebSocket is down.
	ErrNotConnected = errors.New("gspro: not connected")

	// ErrAlreadyConnected is returned by Connect on a live client.
	ErrAlreadyConnected = errors.New("gspro: already connected")

	// ErrStaleConnection is reported when the backend stops answering
	// keepalive pings.
	ErrStaleConnection = errors.New("gspro: stale connection")

	// ErrClosed is returned for operations on a link after Stop.
	ErrClosed = errors.New("gspro: link closed")
)

// State describes the link's view of the backend connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ClientConfig holds the settings for a single WebSocket connection to the
// simulator.
type ClientConfig struct {
	// URL is the WebSocket endpoint, e.g. ws://localhost:921/GSPro/api/connect.
	URL string

	// HandshakeTimeout bounds the dial and upgrade.
	HandshakeTimeout time.Duration

	// PingInterval is how often keepalive pings are sent. Zero disables
	// the keepalive loop's staleness reporting but pings still default
	// to a sane cadence.
	PingInterval time.Duration

	// PongTimeout is how long to wait for any pong before declaring the
	// connection stale. Zero disables staleness checks.
	PongTimeout time.Duration

	// WriteTimeout bounds individual frame writes.
	WriteTimeout time.Duration

	// BufferSize is the capacity of the inbound message channel.
	BufferSize int
}

// DefaultClientConfig returns production defaults for a simulator
// connection.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PongTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

// LinkConfig holds the settings for the self-reconnecting simulator link.
type LinkConfig struct {
	// URL is the WebSocket endpoint of the simulator.
	URL string

	// ReconnectBaseDelay is the first wait after a failed dial. Each
	// subsequent failure doubles the wait up to ReconnectMaxDelay. A
	// successful connection resets the wait to the base.
	ReconnectBaseDelay time.Duration

	// ReconnectMaxDelay caps the backoff.
	ReconnectMaxDelay time.Duration

	// HandshakeTimeout bounds each dial attempt.
	HandshakeTimeout time.Duration

	// PingInterval is the keepalive cadence on an established connection.
	PingInterval time.Duration

	// WriteTimeout bounds individual frame writes.
	WriteTimeout time.Duration

	// BufferSize is the capacity of the inbound message channel.
	BufferSize int
}

// DefaultLinkConfig returns production defaults for the simulator link.
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  30 * time.Second,
		HandshakeTimeout:   10 * time.Second,
		PingInterval:       30 * time.Second,
		WriteTimeout:       5 * time.Second,
		BufferSize:         256,
	}
}

// nextDelay doubles d, capping at limit.
func nextDelay(d, limit time.Duration) time.Duration {
	d *= 2
	if d > limit {
		return limit
	}
	return d
}
