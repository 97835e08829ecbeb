package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/fairwaylabs/gsproxy/internal/config"
	"github.com/fairwaylabs/gsproxy/internal/message"
)

var (
	backendHost  string
	backendPort  int
	backendDebug bool
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Run a mock simulator endpoint",
	Long: "backend emulates a GSPro Connect endpoint for local testing: it " +
		"acknowledges shots and rotates the active player after each one.",
	RunE: runBackend,
}

func init() {
	backendCmd.Flags().StringVar(&backendHost, "host", "localhost", "Bind host")
	backendCmd.Flags().IntVar(&backendPort, "port", config.DefaultGSProPort, "Bind port")
	backendCmd.Flags().BoolVar(&backendDebug, "debug", false, "Enable debug logging")
}

var mockClubs = []string{"DR", "3W", "5W", "4I", "5I", "6I", "7I", "8I", "9I", "PW", "SW", "PT"}

func mockPlayers() []map[string]any {
	return []map[string]any{
		{"ID": 1, "Name": "Player One", "Handed": "RH", "Club": "DR", "DistanceToTarget": 100},
		{"ID": 2, "Name": "Player Two", "Handed": "LH", "Club": "DR", "DistanceToTarget": 150},
	}
}

func runBackend(cmd *cobra.Command, args []string) error {
	level := "info"
	if backendDebug {
		level = "debug"
	}
	logger := newLogger(config.LoggingConfig{Level: level, Format: "text"})
	slog.SetDefault(logger)

	addr := net.JoinHostPort(backendHost, strconv.Itoa(backendPort))
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		session := &backendSession{
			conn:    conn,
			players: mockPlayers(),
			logger:  logger.With("remote", conn.RemoteAddr().String()),
		}
		session.run()
	})

	logger.Info("mock simulator listening", "addr", addr)
	return http.ListenAndServe(addr, handler)
}

// backendSession serves one proxy connection, playing the simulator
// side of the protocol. Each connection gets its own player rotation.
type backendSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	players []map[string]any
	active  int
	logger  *slog.Logger
}

func (s *backendSession) run() {
	defer s.conn.Close()
	s.logger.Info("client connected")

	s.send(message.NewPlayerInfo(s.players[s.active]))

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Info("client disconnected", "reason", err)
			return
		}
		s.handle(data)
	}
}

func (s *backendSession) handle(data []byte) {
	in := message.Classify(data)
	switch in.Kind {
	case message.KindMalformed:
		s.send(invalidJSON())
	case message.KindHeartbeat:
		s.logger.Debug("heartbeat")
		s.send(message.HeartbeatAck())
	case message.KindShotData:
		s.logger.Info("shot received", "shot_number", in.ShotNumber)
		s.send(message.Ack())
		s.rotatePlayer()
	default:
		s.send(message.Ack())
	}
}

// rotatePlayer advances the turn and pushes updated player info after a
// short delay, the way the real simulator announces the next player.
func (s *backendSession) rotatePlayer() {
	s.active = (s.active + 1) % len(s.players)
	next := s.players[s.active]
	if rand.Float64() < 0.3 {
		next["Club"] = mockClubs[rand.Intn(len(mockClubs))]
	}
	next["DistanceToTarget"] = 80 + rand.Intn(171)

	// Snapshot before the delayed send; the next shot may mutate the map.
	info := make(map[string]any, len(next))
	for k, v := range next {
		info[k] = v
	}

	go func() {
		time.Sleep(3 * time.Second)
		s.send(message.NewPlayerInfo(info))
		s.logger.Info("player rotated", "player", info["Name"], "handed", info["Handed"])
	}()
}

func (s *backendSession) send(data []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warn("write failed", "error", err)
	}
}

func invalidJSON() []byte {
	b, _ := json.Marshal(message.Status{Code: message.CodeRejected, Message: "Invalid JSON"})
	return b
}
