package proxy

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// monitorConn adapts a WebSocket connection to monitor.Transport. Writes
// are serialized; routing goroutines and broadcast fan-out share one
// socket per monitor.
type monitorConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	closed  bool
}

func newMonitorConn(conn *websocket.Conn, writeTimeout time.Duration) *monitorConn {
	return &monitorConn{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (c *monitorConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return net.ErrClosed
	}
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *monitorConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
