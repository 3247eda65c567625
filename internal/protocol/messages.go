package protocol

import "overburnt.game/internal/sim/geom"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
	LevelIndex      *int   `json:"level_index,omitempty"`
	Seed            *int64 `json:"seed,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	TickRateHz      int            `json:"tick_rate_hz"`
	Seed            int64          `json:"seed"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	ItemsDigest   string `json:"items_digest"`
	RecipesDigest string `json:"recipes_digest"`
	LevelsDigest  string `json:"levels_digest"`
	LayoutDigest  string `json:"layout_digest,omitempty"`
	TuningDigest  string `json:"tuning_digest,omitempty"`
}

// INPUT (client -> server). Slot addresses a production slot as "building/slot".
type InputMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Kind            string     `json:"kind"`
	Slot            string     `json:"slot,omitempty"`
	Pos             *geom.Vec2 `json:"pos,omitempty"`
}

// EVENT (server -> client): one observer event, named by its kind.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Event           string `json:"event"`
	Data            any    `json:"data,omitempty"`
}

// STATE (server -> client)
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Snapshot        any    `json:"snapshot"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
