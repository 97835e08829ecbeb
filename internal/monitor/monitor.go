package monitor

import "time"

// Transport is the outbound side of a monitor connection. Send must be safe
// for concurrent use; Close must be idempotent.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// Monitor is one connected launch monitor. Name and transport are fixed at
// registration; player attribution, the active flag, and the last-activity
// timestamp are guarded by the owning Registry and read through its methods.
type Monitor struct {
	name        string
	transport   Transport
	connectedAt time.Time

	// Guarded by Registry.mu.
	player   string
	active   bool
	lastSeen time.Time
}

// Name returns the stable monitor name.
func (m *Monitor) Name() string { return m.name }

// Send writes data on the monitor's transport.
func (m *Monitor) Send(data []byte) error { return m.transport.Send(data) }

// Close closes the monitor's transport.
func (m *Monitor) Close() error { return m.transport.Close() }

// Info is a point-in-time view of one monitor, for health and debug
// surfaces.
type Info struct {
	Name         string    `json:"name"`
	Player       string    `json:"player,omitempty"`
	Active       bool      `json:"active"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity,omitzero"`
}
