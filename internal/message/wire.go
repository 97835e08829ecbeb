package message

import "encoding/json"

// Response codes used on the wire (GSPro Connect v1).
const (
	CodeOK         = 200
	CodePlayerInfo = 201
	CodeRejected   = 400
)

const shotIgnoredText = "Shot ignored - this launch monitor is not active for the current player"

// Status is the minimal {Code, Message} record used for acks and rejections.
type Status struct {
	Code    int    `json:"Code"`
	Message string `json:"Message,omitempty"`
}

// PlayerInfoMessage is the v1 player-information record the simulator pushes
// when the active player or club changes.
type PlayerInfoMessage struct {
	Code    int            `json:"Code"`
	Message string         `json:"Message,omitempty"`
	Player  map[string]any `json:"Player"`
}

// BallData carries launch parameters for one shot.
type BallData struct {
	Speed         float64 `json:"Speed"`
	SpinAxis      float64 `json:"SpinAxis"`
	TotalSpin     float64 `json:"TotalSpin"`
	HLA           float64 `json:"HLA"`
	VLA           float64 `json:"VLA"`
	CarryDistance float64 `json:"CarryDistance"`
}

// ClubData carries club delivery parameters for one shot.
type ClubData struct {
	Speed         float64 `json:"Speed"`
	AngleOfAttack float64 `json:"AngleOfAttack"`
	FaceToTarget  float64 `json:"FaceToTarget"`
	Path          float64 `json:"Path"`
}

// ShotDataOptions flags what a monitor frame contains.
type ShotDataOptions struct {
	ContainsBallData          bool `json:"ContainsBallData"`
	ContainsClubData          bool `json:"ContainsClubData"`
	LaunchMonitorIsReady      bool `json:"LaunchMonitorIsReady,omitempty"`
	LaunchMonitorBallDetected bool `json:"LaunchMonitorBallDetected,omitempty"`
	IsHeartBeat               bool `json:"IsHeartBeat"`
}

// Shot is the monitor-origin shot/heartbeat frame.
type Shot struct {
	DeviceID        string          `json:"DeviceID"`
	Units           string          `json:"Units,omitempty"`
	ShotNumber      int             `json:"ShotNumber"`
	APIVersion      string          `json:"APIversion,omitempty"`
	BallData        *BallData       `json:"BallData,omitempty"`
	ClubData        *ClubData       `json:"ClubData,omitempty"`
	ShotDataOptions ShotDataOptions `json:"ShotDataOptions"`
}

// Bytes serializes the shot for the wire.
func (s Shot) Bytes() []byte {
	b, _ := json.Marshal(s)
	return b
}

// NewHeartbeat builds a monitor heartbeat frame.
func NewHeartbeat(deviceID string) []byte {
	return Shot{
		DeviceID: deviceID,
		ShotDataOptions: ShotDataOptions{
			LaunchMonitorIsReady: true,
			IsHeartBeat:          true,
		},
	}.Bytes()
}

// ShotIgnored builds the rejection sent to a non-active monitor that
// submitted shot data.
func ShotIgnored() []byte {
	b, _ := json.Marshal(Status{Code: CodeRejected, Message: shotIgnoredText})
	return b
}

// Ack builds a bare success acknowledgement.
func Ack() []byte {
	b, _ := json.Marshal(Status{Code: CodeOK})
	return b
}

// HeartbeatAck builds the heartbeat acknowledgement.
func HeartbeatAck() []byte {
	b, _ := json.Marshal(Status{Code: CodeOK, Message: "Heartbeat Acknowledged"})
	return b
}

// NewPlayerInfo builds a v1 player-information frame for the given player
// attributes.
func NewPlayerInfo(player map[string]any) []byte {
	b, _ := json.Marshal(PlayerInfoMessage{Code: CodePlayerInfo, Message: "Player Info", Player: player})
	return b
}
