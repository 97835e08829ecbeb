package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/fairwaylabs/gsproxy/internal/config"
	"github.com/fairwaylabs/gsproxy/internal/message"
)

var (
	monitorHost     string
	monitorPort     int
	monitorCount    int
	monitorDuration time.Duration
	monitorDebug    bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run simulated launch monitors against a proxy",
	Long: "monitor connects one or more fake launch monitors to a running " +
		"proxy. Each tracks whose turn it is from player info pushes, fires " +
		"shots while active and heartbeats otherwise, and occasionally fires " +
		"out of turn to confirm those shots are rejected.",
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringVar(&monitorHost, "host", "localhost", "Proxy host")
	monitorCmd.Flags().IntVar(&monitorPort, "port", config.DefaultListenPort, "Proxy port")
	monitorCmd.Flags().IntVar(&monitorCount, "count", 2, "Number of simulated monitors")
	monitorCmd.Flags().DurationVar(&monitorDuration, "duration", time.Minute, "How long to run")
	monitorCmd.Flags().BoolVar(&monitorDebug, "debug", false, "Enable debug logging")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	level := "info"
	if monitorDebug {
		level = "debug"
	}
	logger := newLogger(config.LoggingConfig{Level: level, Format: "text"})
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), monitorDuration)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	logger.Info("starting simulated monitors",
		"count", monitorCount,
		"proxy", net.JoinHostPort(monitorHost, strconv.Itoa(monitorPort)),
		"duration", monitorDuration,
	)

	var wg sync.WaitGroup
	for i := 1; i <= monitorCount; i++ {
		name := fmt.Sprintf("LM_%d", i)
		sim := &simulatedMonitor{
			name:   name,
			handed: "RH",
			logger: logger.With("monitor", name),
		}
		if i%2 == 0 {
			sim.handed = "LH"
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.run(ctx, monitorHost, monitorPort)
		}()
	}
	wg.Wait()

	logger.Info("test run complete")
	return nil
}

// simulatedMonitor drives one fake launch monitor over a proxy
// connection. The handed field decides which player info pushes make
// it consider itself active.
type simulatedMonitor struct {
	name   string
	handed string
	logger *slog.Logger

	mu     sync.Mutex
	active bool

	shots int
}

func (m *simulatedMonitor) run(ctx context.Context, host string, port int) {
	u := url.URL{
		Scheme:   "ws",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		RawQuery: "name=" + m.name,
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		m.logger.Error("connect failed", "url", u.String(), "error", err)
		return
	}
	defer conn.Close()
	m.logger.Info("connected", "url", u.String())

	go m.readLoop(conn)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("done", "shots_sent", m.shots)
			return
		case <-ticker.C:
		}

		switch {
		case m.isActive():
			m.sendShot(conn)
			m.setActive(false)
			m.logger.Info("waiting for next turn")
		case rand.Float64() < 0.2:
			m.send(conn, message.NewHeartbeat(m.name))
			m.logger.Debug("sent heartbeat")
		case rand.Float64() < 0.15:
			m.sendShot(conn)
			m.logger.Info("sent shot while inactive")
		}
	}
}

func (m *simulatedMonitor) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		in := message.ClassifySim(data)
		if in.Kind != message.SimPlayerInfo {
			m.logger.Debug("received", "frame", string(data))
			continue
		}

		handed, _ := in.Player["Handed"].(string)
		mine := handed == m.handed
		m.setActive(mine)
		if mine {
			m.logger.Info("now active", "handed", handed)
		} else {
			m.logger.Info("now inactive", "handed", handed)
		}
	}
}

func (m *simulatedMonitor) sendShot(conn *websocket.Conn) {
	m.shots++
	shot := message.Shot{
		DeviceID:   m.name,
		Units:      "Yards",
		ShotNumber: m.shots,
		APIVersion: "1",
		BallData: &message.BallData{
			Speed:         140 + rand.Float64()*30,
			SpinAxis:      -15 + rand.Float64()*30,
			TotalSpin:     2000 + rand.Float64()*1000,
			HLA:           -5 + rand.Float64()*10,
			VLA:           10 + rand.Float64()*10,
			CarryDistance: 220 + rand.Float64()*60,
		},
		ClubData: &message.ClubData{
			Speed:         95 + rand.Float64()*15,
			AngleOfAttack: -3 + rand.Float64()*6,
			FaceToTarget:  -5 + rand.Float64()*10,
			Path:          -5 + rand.Float64()*10,
		},
		ShotDataOptions: message.ShotDataOptions{
			ContainsBallData:          true,
			ContainsClubData:          true,
			LaunchMonitorIsReady:      true,
			LaunchMonitorBallDetected: true,
		},
	}
	m.send(conn, shot.Bytes())
	m.logger.Info("sent shot", "shot_number", m.shots)
}

func (m *simulatedMonitor) send(conn *websocket.Conn, data []byte) {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		m.logger.Warn("write failed", "error", err)
	}
}

func (m *simulatedMonitor) isActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *simulatedMonitor) setActive(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = v
}
