package gspro

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// URL builds the simulator endpoint for a host and port.
func URL(host string, port int) string {
	return fmt.Sprintf("ws://%s", net.JoinHostPort(host, strconv.Itoa(port)))
}

// Link is the self-reconnecting connection to the simulator. It owns one
// Client at a time; when the connection drops it dials again with
// exponential backoff until the simulator comes back or the link is
// stopped. Callers never see the reconnect cycle, only a Send that blocks
// while the backend is away.
type Link struct {
	config LinkConfig
	logger *slog.Logger

	mu     sync.Mutex
	client Client
	delay  time.Duration
	ctx    context.Context
	cancel context.CancelFunc

	// connect collapses concurrent reconnect attempts into one dial loop.
	connect singleflight.Group

	// bounce wakes the pump when a client is dropped outside it.
	bounce chan struct{}

	messages chan []byte

	state    atomic.Int32
	closed   atomic.Bool
	started  atomic.Bool
	connects atomic.Int64
	drops    atomic.Int64

	wg sync.WaitGroup
}

// LinkStats is a point-in-time snapshot of link health.
type LinkStats struct {
	State    string `json:"state"`
	Connects int64  `json:"connects"`
	Drops    int64  `json:"drops"`
}

// NewLink creates a simulator link. Call Start to begin dialing.
func NewLink(config LinkConfig, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultLinkConfig()
	if config.ReconnectBaseDelay <= 0 {
		config.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if config.ReconnectMaxDelay <= 0 {
		config.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}

	l := &Link{
		config:   config,
		logger:   logger,
		delay:    config.ReconnectBaseDelay,
		bounce:   make(chan struct{}, 1),
		messages: make(chan []byte, config.BufferSize),
	}
	l.state.Store(int32(StateDisconnected))
	return l
}

// Start launches the supervisor that keeps the link connected. It returns
// immediately; the first dial happens in the background. Calling Start on
// a running link is a no-op.
func (l *Link) Start(ctx context.Context) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if !l.started.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.ctx = ctx
	l.cancel = cancel
	l.mu.Unlock()

	l.state.Store(int32(StateConnecting))

	l.wg.Add(1)
	go l.run(ctx)

	return nil
}

// Stop tears down the link. It waits for the supervisor to exit or for ctx
// to expire, whichever comes first. Stop is idempotent.
func (l *Link) Stop(ctx context.Context) error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	l.mu.Lock()
	cancel := l.cancel
	c := l.client
	l.client = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("simulator link stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send writes one frame to the simulator. If the link is down it blocks
// until the connection is re-established or ctx expires. A write failure
// drops the connection and is returned to the caller; the next Send dials
// fresh.
func (l *Link) Send(ctx context.Context, data []byte) error {
	c, err := l.ensureConnected(ctx)
	if err != nil {
		return err
	}

	if err := c.Send(data); err != nil {
		l.logger.Warn("simulator send failed", "error", err)
		l.dropClient(c)
		return err
	}
	return nil
}

// Messages returns the channel of frames received from the simulator. The
// channel stays open across reconnects.
func (l *Link) Messages() <-chan []byte {
	return l.messages
}

// State reports the link's connection state.
func (l *Link) State() State {
	if l.closed.Load() {
		return StateClosed
	}
	return State(l.state.Load())
}

// Stats returns a snapshot of link counters.
func (l *Link) Stats() LinkStats {
	return LinkStats{
		State:    l.State().String(),
		Connects: l.connects.Load(),
		Drops:    l.drops.Load(),
	}
}

// run keeps one live client pumping frames into the link channel.
func (l *Link) run(ctx context.Context) {
	defer l.wg.Done()

	for {
		c, err := l.ensureConnected(ctx)
		if err != nil {
			return
		}

		l.pump(ctx, c)

		if ctx.Err() != nil {
			return
		}
	}
}

// pump forwards inbound frames until the connection dies or the link
// stops.
func (l *Link) pump(ctx context.Context, c Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.bounce:
			return
		case data := <-c.Messages():
			select {
			case l.messages <- data:
			default:
				l.logger.Warn("link buffer full, dropping simulator message")
			}
		case err := <-c.Errors():
			l.logger.Warn("simulator connection lost", "error", err)
			l.dropClient(c)
			return
		}
	}
}

// ensureConnected returns the live client, dialing first if necessary.
// Concurrent callers share a single dial loop; each waits only as long as
// its own ctx allows.
func (l *Link) ensureConnected(ctx context.Context) (Client, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}

	l.mu.Lock()
	c := l.client
	lctx := l.ctx
	l.mu.Unlock()

	if c != nil && c.IsConnected() {
		return c, nil
	}
	if lctx == nil {
		return nil, ErrNotConnected
	}

	ch := l.connect.DoChan("connect", func() (any, error) {
		return l.connectLoop(lctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Client), nil
	}
}

// connectLoop dials until it succeeds or the link shuts down. The retry
// delay doubles after each failure up to the configured maximum and resets
// once a connection is established.
func (l *Link) connectLoop(ctx context.Context) (Client, error) {
	for {
		if ctx.Err() != nil {
			return nil, ErrClosed
		}

		l.state.Store(int32(StateConnecting))

		c := NewClient(l.clientConfig(), l.logger)
		err := c.Connect(ctx)
		if err == nil {
			l.mu.Lock()
			if l.closed.Load() {
				l.mu.Unlock()
				c.Close()
				return nil, ErrClosed
			}
			l.client = c
			l.delay = l.config.ReconnectBaseDelay
			l.mu.Unlock()

			l.state.Store(int32(StateConnected))
			l.connects.Add(1)
			l.logger.Info("connected to simulator", "url", l.config.URL)
			return c, nil
		}

		l.mu.Lock()
		wait := l.delay
		l.delay = nextDelay(l.delay, l.config.ReconnectMaxDelay)
		l.mu.Unlock()

		l.logger.Warn("simulator unreachable, retrying",
			"url", l.config.URL, "retry_in", wait, "error", err)

		select {
		case <-ctx.Done():
			return nil, ErrClosed
		case <-time.After(wait):
		}
	}
}

// dropClient discards a dead client so the next Send or pump iteration
// dials fresh. Safe to call from multiple failure paths; only the current
// client is dropped.
func (l *Link) dropClient(c Client) {
	l.mu.Lock()
	current := l.client == c
	if current {
		l.client = nil
	}
	l.mu.Unlock()

	c.Close()

	if current {
		l.drops.Add(1)
		l.state.Store(int32(StateDisconnected))
		select {
		case l.bounce <- struct{}{}:
		default:
		}
	}
}

func (l *Link) clientConfig() ClientConfig {
	cfg := ClientConfig{
		URL:              l.config.URL,
		HandshakeTimeout: l.config.HandshakeTimeout,
		PingInterval:     l.config.PingInterval,
		WriteTimeout:     l.config.WriteTimeout,
		BufferSize:       l.config.BufferSize,
	}
	if cfg.PingInterval > 0 {
		cfg.PongTimeout = 3 * cfg.PingInterval
	}
	return cfg
}
