package message

import (
	"encoding/json"
	"strings"
)

// Kind tags a monitor-origin frame.
type Kind int

const (
	KindMalformed Kind = iota
	KindGeneric
	KindHeartbeat
	KindPlayerInfo
	KindShotData
)

// String returns a human-readable kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindGeneric:
		return "generic"
	case KindHeartbeat:
		return "heartbeat"
	case KindPlayerInfo:
		return "player_info"
	case KindShotData:
		return "shot_data"
	default:
		return "unknown"
	}
}

// SimKind tags a simulator-origin frame.
type SimKind int

const (
	SimMalformed SimKind = iota
	SimGeneric
	SimPlayerInfo
)

// String returns a human-readable kind name for logging.
func (k SimKind) String() string {
	switch k {
	case SimMalformed:
		return "malformed"
	case SimGeneric:
		return "generic"
	case SimPlayerInfo:
		return "player_info"
	default:
		return "unknown"
	}
}

// Inbound is a classified monitor-origin frame. Raw always holds the
// original bytes so forwarding never re-serializes.
type Inbound struct {
	Kind       Kind
	PlayerName string // set for KindPlayerInfo
	ShotNumber int    // set for KindShotData when the frame carries one
	Raw        []byte
}

// SimInbound is a classified simulator-origin frame.
type SimInbound struct {
	Kind       SimKind
	Player     map[string]any // set for SimPlayerInfo; decoded Player substructure
	PlayerName string         // routing hint extracted from header-typed frames; may be empty
	Raw        []byte
}

// monitorFrame captures just the fields classification needs.
// BallData and the legacy lower-camel spellings are kept as raw JSON:
// presence is the signal, content is never interpreted here.
type monitorFrame struct {
	Header struct {
		MessageType string `json:"MessageType"`
	} `json:"Header"`
	PlayerInfo struct {
		Name string `json:"Name"`
	} `json:"PlayerInfo"`
	BallData       json.RawMessage `json:"BallData"`
	BallDataLegacy json.RawMessage `json:"ballData"`
	ShotDataLegacy json.RawMessage `json:"shotData"`
	ShotNumber     int             `json:"ShotNumber"`
	Options        *struct {
		ContainsBallData bool `json:"ContainsBallData"`
		IsHeartBeat      bool `json:"IsHeartBeat"`
	} `json:"ShotDataOptions"`
}

func (f *monitorFrame) hasShotData() bool {
	if len(f.BallData) > 0 || len(f.BallDataLegacy) > 0 || len(f.ShotDataLegacy) > 0 {
		return true
	}
	return f.Options != nil && f.Options.ContainsBallData
}

// simFrame captures the fields needed to classify a simulator frame.
type simFrame struct {
	Code   int            `json:"Code"`
	Player map[string]any `json:"Player"`
	Header struct {
		MessageType string `json:"MessageType"`
	} `json:"Header"`
	PlayerInfo struct {
		Name string `json:"Name"`
	} `json:"PlayerInfo"`
	ShotData struct {
		PlayerName string `json:"PlayerName"`
	} `json:"ShotData"`
}

// Classify tags one monitor-origin frame.
//
// Precedence: heartbeat, then player-info, then shot-data. A frame is
// shot-data when any historical signal is present: a BallData substructure
// (either spelling), a shotData substructure, or ContainsBallData set.
func Classify(data []byte) Inbound {
	var f monitorFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return Inbound{Kind: KindMalformed, Raw: data}
	}

	switch {
	case f.Options != nil && f.Options.IsHeartBeat:
		return Inbound{Kind: KindHeartbeat, Raw: data}
	case strings.Contains(f.Header.MessageType, "PlayerInfo") && f.PlayerInfo.Name != "":
		return Inbound{Kind: KindPlayerInfo, PlayerName: f.PlayerInfo.Name, Raw: data}
	case f.hasShotData():
		return Inbound{Kind: KindShotData, ShotNumber: f.ShotNumber, Raw: data}
	default:
		return Inbound{Kind: KindGeneric, Raw: data}
	}
}

// ClassifySim tags one simulator-origin frame.
//
// A frame with Code 201 and a Player substructure is player-info v1 and
// carries the decoded Player map for arbitration. Anything else is generic;
// when its header message type names PlayerInfo or ShotData, the embedded
// player name is extracted as a routing hint.
func ClassifySim(data []byte) SimInbound {
	var f simFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return SimInbound{Kind: SimMalformed, Raw: data}
	}

	if f.Code == CodePlayerInfo && f.Player != nil {
		return SimInbound{Kind: SimPlayerInfo, Player: f.Player, Raw: data}
	}

	var name string
	if strings.Contains(f.Header.MessageType, "PlayerInfo") {
		name = f.PlayerInfo.Name
	} else if strings.Contains(f.Header.MessageType, "ShotData") {
		name = f.ShotData.PlayerName
	}
	return SimInbound{Kind: SimGeneric, PlayerName: name, Raw: data}
}
