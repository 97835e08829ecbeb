package gspro

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a single WebSocket connection to the simulator.
type Client interface {
	// Connect dials the simulator and starts the read and keepalive loops.
	Connect(ctx context.Context) error

	// Close shuts the connection down and waits for the loops to exit.
	Close() error

	// Send writes one text frame. Returns ErrNotConnected when the
	// connection is down.
	Send(data []byte) error

	// Messages returns the channel of inbound frames.
	Messages() <-chan []byte

	// Errors returns the channel of connection failures. It holds at
	// most one error; later failures on a dead connection are dropped.
	Errors() <-chan error

	// IsConnected reports whether the connection is live.
	IsConnected() bool
}

type wsClient struct {
	config ClientConfig
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	done      chan struct{}
	connected atomic.Bool

	// writeMu serializes data frames; gorilla allows one writer at a time.
	// It also guards conn against Send racing a reconnect.
	writeMu sync.Mutex

	messages chan []byte
	errors   chan error

	wg sync.WaitGroup

	lastPong atomic.Int64
}

// NewClient creates a client for one simulator connection. The client can
// be reconnected after Close.
func NewClient(config ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultClientConfig().BufferSize
	}
	return &wsClient{
		config:   config,
		logger:   logger,
		messages: make(chan []byte, config.BufferSize),
		errors:   make(chan error, 1),
	}
}

func (c *wsClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected.Load() {
		return ErrAlreadyConnected
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: status %d: %w", c.config.URL, resp.StatusCode, err)
		}
		return fmt.Errorf("dial %s: %w", c.config.URL, err)
	}

	c.lastPong.Store(time.Now().UnixNano())
	conn.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now().UnixNano())
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		c.lastPong.Store(time.Now().UnixNano())
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), c.controlDeadline())
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	done := make(chan struct{})

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.done = done
	c.connected.Store(true)

	c.wg.Add(2)
	go c.readLoop(conn, done)
	go c.keepaliveLoop(conn, done)

	c.logger.Debug("simulator connection established", "url", c.config.URL)
	return nil
}

func (c *wsClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	select {
	case <-c.done:
	default:
		close(c.done)
	}

	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		c.controlDeadline())
	err := c.conn.Close()
	c.conn = nil
	c.writeMu.Unlock()

	c.connected.Store(false)
	c.wg.Wait()

	c.logger.Debug("simulator connection closed", "url", c.config.URL)
	return err
}

func (c *wsClient) Send(data []byte) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn := c.conn
	if conn == nil {
		return ErrNotConnected
	}
	if c.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *wsClient) Messages() <-chan []byte {
	return c.messages
}

func (c *wsClient) Errors() <-chan error {
	return c.errors
}

func (c *wsClient) IsConnected() bool {
	return c.connected.Load()
}

// readLoop delivers inbound frames until the connection fails or closes.
func (c *wsClient) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.connected.Store(false)
			select {
			case <-done:
				// expected close, stay quiet
			default:
				c.reportError(fmt.Errorf("read: %w", err))
			}
			return
		}

		select {
		case c.messages <- data:
		default:
			c.logger.Warn("inbound buffer full, dropping simulator message")
		}
	}
}

// keepaliveLoop pings the simulator and reports a stale connection when
// pongs stop arriving.
func (c *wsClient) keepaliveLoop(conn *websocket.Conn, done chan struct{}) {
	defer c.wg.Done()

	interval := c.config.PingInterval
	if interval <= 0 {
		interval = DefaultClientConfig().PingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if c.config.PongTimeout > 0 {
				last := time.Unix(0, c.lastPong.Load())
				if time.Since(last) > c.config.PongTimeout {
					c.connected.Store(false)
					c.reportError(ErrStaleConnection)
					return
				}
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, c.controlDeadline()); err != nil {
				if err != websocket.ErrCloseSent {
					c.reportError(fmt.Errorf("ping: %w", err))
				}
				return
			}
		}
	}
}

// reportError hands a failure to the consumer without blocking. The first
// error on a connection is the one that matters.
func (c *wsClient) reportError(err error) {
	select {
	case c.errors <- err:
	default:
	}
}

func (c *wsClient) controlDeadline() time.Time {
	wait := c.config.WriteTimeout
	if wait <= 0 {
		wait = DefaultClientConfig().WriteTimeout
	}
	return time.Now().Add(wait)
}
