// Package proxy is the routing core: it accepts launch monitor WebSocket
// connections on one side, keeps a single simulator link on the other, and
// moves every frame between them according to the arbitration rules.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fairwaylabs/gsproxy/internal/arbiter"
	"github.com/fairwaylabs/gsproxy/internal/gspro"
	"github.com/fairwaylabs/gsproxy/internal/monitor"
)

// ErrAlreadyRunning is returned by Start on a running proxy.
var ErrAlreadyRunning = errors.New("proxy: already running")

// Shot decisions recorded for the shot history.
const (
	DecisionForwarded = "forwarded"
	DecisionRejected  = "rejected"
)

// ShotRecord is one routing decision about a monitor shot.
type ShotRecord struct {
	ID         uuid.UUID
	Monitor    string
	Player     string
	ShotNumber int
	Decision   string
	ReceivedAt time.Time
}

// ShotRecorder receives shot routing decisions. Record must not block;
// it is called on the routing path.
type ShotRecorder interface {
	Record(ShotRecord)
}

// SimulatorLink is the simulator side of the proxy. *gspro.Link satisfies
// it.
type SimulatorLink interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, data []byte) error
	Messages() <-chan []byte
	State() gspro.State
	Stats() gspro.LinkStats
}

// Config holds proxy settings.
type Config struct {
	// ListenAddr is the host:port for the monitor listener.
	ListenAddr string

	// WriteTimeout bounds frame writes to monitors.
	WriteTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":8888",
		WriteTimeout: 5 * time.Second,
	}
}

// Proxy routes frames between launch monitors and the simulator.
type Proxy struct {
	cfg      Config
	logger   *slog.Logger
	registry *monitor.Registry
	engine   *arbiter.Engine
	link     SimulatorLink
	recorder ShotRecorder

	upgrader websocket.Upgrader
	server   *http.Server

	mu       sync.Mutex
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
	stopped atomic.Bool

	shotsForwarded atomic.Int64
	shotsRejected  atomic.Int64
	simMessages    atomic.Int64
	malformed      atomic.Int64
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithShotRecorder wires a shot history sink.
func WithShotRecorder(r ShotRecorder) Option {
	return func(p *Proxy) {
		p.recorder = r
	}
}

// NewProxy creates a proxy over the given registry, arbitration engine and
// simulator link. Call Start to begin serving.
func NewProxy(cfg Config, registry *monitor.Registry, engine *arbiter.Engine, link SimulatorLink, opts ...Option) *Proxy {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultConfig().ListenAddr
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	p := &Proxy{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: registry,
		engine:   engine,
		link:     link,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start binds the monitor listener, starts the simulator link, and begins
// routing. It returns once the listener is bound; serving happens in the
// background.
func (p *Proxy) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	ln, err := net.Listen("tcp", p.cfg.ListenAddr)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.listener = ln
	p.mu.Unlock()

	if err := p.link.Start(p.ctx); err != nil {
		ln.Close()
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", p.handleHealth)
	mux.HandleFunc("/debug/monitors", p.handleDebugMonitors)
	mux.HandleFunc("/", p.handleMonitor)
	p.server = &http.Server{Handler: mux}

	p.wg.Add(1)
	go p.simLoop(p.ctx)

	go func() {
		if err := p.server.Serve(ln); err != http.ErrServerClosed {
			p.logger.Error("monitor listener failed", "error", err)
		}
	}()

	p.logger.Info("proxy listening for launch monitors", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the proxy down: no new monitors, connected monitors closed,
// simulator link stopped. Bounded by ctx.
func (p *Proxy) Stop(ctx context.Context) error {
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}

	p.logger.Info("stopping proxy")

	if p.cancel != nil {
		p.cancel()
	}

	if p.server != nil {
		p.server.Shutdown(ctx)
	}

	for _, m := range p.registry.Monitors() {
		m.Close()
	}

	if err := p.link.Stop(ctx); err != nil {
		p.logger.Warn("simulator link stop failed", "error", err)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("proxy stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("proxy stop timed out")
		return ctx.Err()
	}
}

// Addr returns the bound listener address, or nil before Start.
func (p *Proxy) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Stats is a point-in-time snapshot of routing counters.
type Stats struct {
	Monitors       int             `json:"monitors"`
	ActiveMonitors []string        `json:"active_monitors"`
	ShotsForwarded int64           `json:"shots_forwarded"`
	ShotsRejected  int64           `json:"shots_rejected"`
	SimMessages    int64           `json:"sim_messages"`
	Malformed      int64           `json:"malformed_dropped"`
	Link           gspro.LinkStats `json:"link"`
}

// Stats returns current routing counters.
func (p *Proxy) Stats() Stats {
	return Stats{
		Monitors:       p.registry.Len(),
		ActiveMonitors: p.registry.ActiveNames(),
		ShotsForwarded: p.shotsForwarded.Load(),
		ShotsRejected:  p.shotsRejected.Load(),
		SimMessages:    p.simMessages.Load(),
		Malformed:      p.malformed.Load(),
		Link:           p.link.Stats(),
	}
}

// handleMonitor upgrades a launch monitor connection and runs its read
// loop until disconnect. The optional ?name= query identifies the monitor;
// without it the registry assigns LM_<n>.
func (p *Proxy) handleMonitor(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn("monitor upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	if p.ctx.Err() != nil {
		conn.Close()
		return
	}
	p.wg.Add(1)
	defer p.wg.Done()

	name := r.URL.Query().Get("name")
	mc := newMonitorConn(conn, p.cfg.WriteTimeout)
	m := p.registry.Add(mc, name)

	if p.ctx.Err() != nil {
		p.registry.Remove(m)
		m.Close()
		return
	}

	p.logger.Info("launch monitor connected",
		"monitor", m.Name(),
		"remote", r.RemoteAddr,
	)

	p.monitorLoop(m, conn)
}

// monitorLoop reads frames from one monitor until its connection ends.
func (p *Proxy) monitorLoop(m *monitor.Monitor, conn *websocket.Conn) {
	defer func() {
		p.registry.Remove(m)
		m.Close()
		p.logger.Info("launch monitor disconnected",
			"monitor", m.Name(),
			"remaining", p.registry.Len(),
		)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if p.ctx.Err() == nil && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Warn("monitor read failed", "monitor", m.Name(), "error", err)
			}
			return
		}
		p.routeMonitorMessage(m, data)
	}
}

// simLoop consumes simulator frames and routes them to monitors.
func (p *Proxy) simLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-p.link.Messages():
			p.simMessages.Add(1)
			p.routeSimulatorMessage(data)
		}
	}
}

func (p *Proxy) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	switch state := p.link.State(); state {
	case gspro.StateConnected:
		health.Components["simulator"] = "connected"
	case gspro.StateClosed:
		health.Status = "unhealthy"
		health.Components["simulator"] = "closed"
	default:
		health.Status = "degraded"
		health.Components["simulator"] = state.String()
	}

	health.Components["monitors"] = map[string]any{
		"count":  p.registry.Len(),
		"active": p.registry.ActiveNames(),
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

func (p *Proxy) handleDebugMonitors(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"monitors": p.registry.Snapshot(),
		"active":   p.registry.ActiveNames(),
		"link":     p.link.Stats(),
		"stats":    p.Stats(),
	})
}
