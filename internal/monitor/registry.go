package monitor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry owns the ordered collection of connected monitors. All mutable
// monitor state lives behind one mutex; mutations are short and perform no
// I/O, so a single lock covers the registry, the active flags, and the
// most-recent hint together.
type Registry struct {
	multiActive bool
	logger      *slog.Logger

	mu         sync.Mutex
	members    []*Monitor
	mostRecent *Monitor
	seq        int
}

// NewRegistry creates an empty registry. Under multi-active policy,
// Activate leaves other members' flags untouched.
func NewRegistry(multiActive bool, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		multiActive: multiActive,
		logger:      logger,
	}
}

// MultiActive reports the arbitration policy the registry was built with.
func (r *Registry) MultiActive() bool { return r.multiActive }

// Add registers a transport and returns the new monitor handle. An empty
// name gets a generated "LM_<n>" from a monotonic counter, so names stay
// unique even after removals. The first member is activated immediately,
// before any arbitration has run.
func (r *Registry) Add(t Transport, name string) *Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	if name == "" {
		name = fmt.Sprintf("LM_%d", r.seq)
	}

	m := &Monitor{
		name:        name,
		transport:   t,
		connectedAt: time.Now(),
	}
	r.members = append(r.members, m)

	if len(r.members) == 1 {
		m.active = true
		r.mostRecent = m
	}

	r.logger.Info("launch monitor registered",
		"monitor", m.name,
		"active", m.active,
		"total", len(r.members),
	)
	return m
}

// Remove drops m from the registry; no-op for non-members. When the
// departing monitor was the most-recent reference, the first remaining
// member (insertion order) is promoted to active, or the reference is
// cleared when none remain.
func (r *Registry) Remove(m *Monitor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, member := range r.members {
		if member == m {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)

	if r.mostRecent == m {
		r.mostRecent = nil
		if len(r.members) > 0 {
			next := r.members[0]
			next.active = true
			r.mostRecent = next
			r.logger.Info("promoted monitor to active", "monitor", next.name)
		}
	}

	r.logger.Info("launch monitor removed",
		"monitor", m.name,
		"remaining", len(r.members),
	)
}

// FindByName returns the first member with the given name, or nil.
func (r *Registry) FindByName(name string) *Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.name == name {
			return m
		}
	}
	return nil
}

// FindByPlayer returns the first member attributed to the given player, or
// nil. An empty query never matches; neither does a monitor with no
// attribution yet.
func (r *Registry) FindByPlayer(player string) *Monitor {
	if player == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.player == player {
			return m
		}
	}
	return nil
}

// Activate marks m active and records it as the most-recent activation.
// Single-active policy deactivates every other member first; multi-active
// leaves them untouched. Non-members are ignored, which keeps the
// most-recent hint pointing at live members only.
func (r *Registry) Activate(m *Monitor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.containsLocked(m) {
		return
	}

	if !r.multiActive {
		for _, member := range r.members {
			member.active = false
		}
	}
	m.active = true
	r.mostRecent = m

	r.logger.Info("activated monitor", "monitor", m.name, "player", m.player)
}

// DeactivateAll clears every active flag. The most-recent hint survives as
// a routing fallback until the next Activate repoints it.
func (r *Registry) DeactivateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		m.active = false
	}
}

// IsActive reports whether m is currently active.
func (r *Registry) IsActive(m *Monitor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return m.active
}

// SetPlayer records the player attribution for m.
func (r *Registry) SetPlayer(m *Monitor, player string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.player = player
}

// Player returns m's recorded player attribution ("" if none).
func (r *Registry) Player(m *Monitor) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return m.player
}

// Touch updates m's last-activity timestamp.
func (r *Registry) Touch(m *Monitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.lastSeen = time.Now()
}

// MostRecent returns the most recently activated member, or nil. This is a
// routing hint only; the active flags are authoritative.
func (r *Registry) MostRecent() *Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mostRecent
}

// Monitors returns a snapshot of the members in insertion order.
func (r *Registry) Monitors() []*Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Monitor, len(r.members))
	copy(out, r.members)
	return out
}

// Len returns the member count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// ActiveNames returns the names of active members in insertion order.
func (r *Registry) ActiveNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for _, m := range r.members {
		if m.active {
			names = append(names, m.name)
		}
	}
	return names
}

// Snapshot returns point-in-time info for every member, insertion order.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Info, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, Info{
			Name:         m.name,
			Player:       m.player,
			Active:       m.active,
			ConnectedAt:  m.connectedAt,
			LastActivity: m.lastSeen,
		})
	}
	return out
}

// containsLocked reports membership; caller holds r.mu.
func (r *Registry) containsLocked(m *Monitor) bool {
	for _, member := range r.members {
		if member == m {
			return true
		}
	}
	return false
}
