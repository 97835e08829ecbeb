package proxy

import (
	"time"

	"github.com/google/uuid"

	"github.com/fairwaylabs/gsproxy/internal/message"
	"github.com/fairwaylabs/gsproxy/internal/monitor"
)

// routeMonitorMessage dispatches one monitor-origin frame.
//
// Player announcements update the registry and are not forwarded; the
// simulator learns about players from its own side. Heartbeats and
// generics pass through untouched. Shots are arbitrated: only the active
// monitor's shots reach the simulator, everyone else gets a rejection.
func (p *Proxy) routeMonitorMessage(m *monitor.Monitor, data []byte) {
	in := message.Classify(data)
	switch in.Kind {
	case message.KindMalformed:
		p.malformed.Add(1)
		p.logger.Warn("dropping malformed monitor frame", "monitor", m.Name(), "size", len(data))

	case message.KindPlayerInfo:
		p.registry.SetPlayer(m, in.PlayerName)
		p.registry.Activate(m)
		p.logger.Info("monitor announced player", "monitor", m.Name(), "player", in.PlayerName)

	case message.KindHeartbeat:
		p.forwardToSim(m, data)

	case message.KindShotData:
		p.routeShot(m, in)

	default:
		p.forwardToSim(m, data)
	}
}

// routeShot forwards a shot from the active monitor or rejects it.
func (p *Proxy) routeShot(m *monitor.Monitor, in message.Inbound) {
	player := p.registry.Player(m)

	if !p.registry.IsActive(m) {
		p.shotsRejected.Add(1)
		p.record(m.Name(), player, in.ShotNumber, DecisionRejected)
		p.logger.Info("shot ignored from inactive monitor",
			"monitor", m.Name(),
			"shot_number", in.ShotNumber,
			"active", p.registry.ActiveNames(),
		)
		p.sendToMonitor(m, message.ShotIgnored())
		return
	}

	p.shotsForwarded.Add(1)
	p.record(m.Name(), player, in.ShotNumber, DecisionForwarded)
	p.logger.Debug("forwarding shot", "monitor", m.Name(), "shot_number", in.ShotNumber)
	p.forwardToSim(m, in.Raw)
}

// routeSimulatorMessage dispatches one simulator-origin frame.
//
// Player-info frames re-run arbitration and then go to every monitor.
// Other frames go to the monitor they concern when that can be determined,
// falling back to the most recently activated monitor, then to everyone.
// Frames that fail to parse are still broadcast unmodified; the proxy
// never withholds simulator output.
func (p *Proxy) routeSimulatorMessage(data []byte) {
	in := message.ClassifySim(data)
	switch in.Kind {
	case message.SimPlayerInfo:
		p.handlePlayerChange(in)

	case message.SimMalformed:
		p.logger.Warn("simulator sent unparseable frame, broadcasting unmodified", "size", len(data))
		p.broadcast(in.Raw)

	default:
		p.routeSimGeneric(in)
	}
}

// handlePlayerChange re-arbitrates the active monitor for a new player and
// broadcasts the announcement.
func (p *Proxy) handlePlayerChange(in message.SimInbound) {
	winner := p.engine.SelectForPlayer(in.Player, p.registry.Monitors())

	if !p.registry.MultiActive() {
		p.registry.DeactivateAll()
	}

	if winner != nil {
		p.registry.Activate(winner)
		p.logger.Info("player change arbitrated",
			"monitor", winner.Name(),
			"active", p.registry.ActiveNames(),
		)
	} else {
		p.logger.Warn("player change matched no monitor, none activated")
	}

	p.broadcast(in.Raw)
}

// routeSimGeneric delivers a non-player-info simulator frame.
func (p *Proxy) routeSimGeneric(in message.SimInbound) {
	if m := p.registry.FindByPlayer(in.PlayerName); m != nil {
		p.sendToMonitor(m, in.Raw)
		return
	}
	if m := p.registry.MostRecent(); m != nil {
		p.sendToMonitor(m, in.Raw)
		return
	}
	p.broadcast(in.Raw)
}

// forwardToSim sends one frame to the simulator, blocking through a
// reconnect if necessary.
func (p *Proxy) forwardToSim(m *monitor.Monitor, data []byte) {
	if err := p.link.Send(p.ctx, data); err != nil {
		p.logger.Warn("forward to simulator failed", "monitor", m.Name(), "error", err)
	}
}

// sendToMonitor writes one frame to a monitor and touches its activity
// timestamp on success. A failed send closes the connection; the read
// loop observes the close and removes the monitor.
func (p *Proxy) sendToMonitor(m *monitor.Monitor, data []byte) {
	if err := m.Send(data); err != nil {
		p.logger.Warn("monitor send failed, closing connection", "monitor", m.Name(), "error", err)
		m.Close()
		return
	}
	p.registry.Touch(m)
}

// broadcast sends one frame to every connected monitor.
func (p *Proxy) broadcast(data []byte) {
	for _, m := range p.registry.Monitors() {
		p.sendToMonitor(m, data)
	}
}

// record hands a shot decision to the configured recorder, if any.
func (p *Proxy) record(monitorName, player string, shotNumber int, decision string) {
	if p.recorder == nil {
		return
	}
	p.recorder.Record(ShotRecord{
		ID:         uuid.New(),
		Monitor:    monitorName,
		Player:     player,
		ShotNumber: shotNumber,
		Decision:   decision,
		ReceivedAt: time.Now(),
	})
}
