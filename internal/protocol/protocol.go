package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeInput   = "INPUT"
	TypeEvent   = "EVENT"
	TypeState   = "STATE"
	TypeError   = "ERROR"
)

// Input kinds carried by INPUT.
const (
	InputDragStart = "DRAG_START"
	InputDragMove  = "DRAG_MOVE"
	InputDragEnd   = "DRAG_END"
	InputClick     = "CLICK"
	InputContinue  = "CONTINUE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
