package session

import "overburnt.game/internal/sim/levels"

type EventKind string

const (
	KindEarningsChanged    EventKind = "EARNINGS_CHANGED"
	KindFatigueChanged     EventKind = "FATIGUE_CHANGED"
	KindLevelStarted       EventKind = "LEVEL_STARTED"
	KindLevelFinished      EventKind = "LEVEL_FINISHED"
	KindLevelReset         EventKind = "LEVEL_RESET"
	KindGameBeaten         EventKind = "GAME_BEATEN"
	KindClientRevenueDelta EventKind = "CLIENT_REVENUE_DELTA"
	KindRequestAssigned    EventKind = "REQUEST_ASSIGNED"
	KindRequestStalled     EventKind = "REQUEST_STALLED"
)

// Event is anything the controller publishes. Payloads are plain structs so transports can
// marshal them as-is.
type Event interface {
	Kind() EventKind
}

type EarningsChanged struct {
	Total int `json:"total"`
}

type FatigueChanged struct {
	Percent int     `json:"percent"`
	Fatigue float64 `json:"fatigue"`
}

type LevelStarted struct {
	LevelIndex int          `json:"level_index"`
	Config     levels.Level `json:"config"`
	StartDelay float64      `json:"start_delay"`
}

type LevelFinished struct {
	Result        Result  `json:"result"`
	Revenue       int     `json:"revenue"`
	NextThreshold *int    `json:"next_threshold,omitempty"`
	ResumeDelay   float64 `json:"resume_delay"`
}

type LevelReset struct{}

type GameBeaten struct {
	Delay float64 `json:"delay"`
}

// ClientRevenueDelta reports a revenue change caused by one client slot. Tip is the part of
// Delta earned above the order's base revenue.
type ClientRevenueDelta struct {
	Slot  string `json:"slot"`
	Delta int    `json:"delta"`
	Tip   int    `json:"tip"`
}

type RequestAssigned struct {
	Slot    string   `json:"slot"`
	Ticket  int      `json:"ticket"`
	Items   []string `json:"items"`
	Timeout float64  `json:"timeout"`
}

type RequestStalled struct {
	Ticket int      `json:"ticket"`
	Items  []string `json:"items"`
	Queued int      `json:"queued"`
}

func (EarningsChanged) Kind() EventKind    { return KindEarningsChanged }
func (FatigueChanged) Kind() EventKind     { return KindFatigueChanged }
func (LevelStarted) Kind() EventKind       { return KindLevelStarted }
func (LevelFinished) Kind() EventKind      { return KindLevelFinished }
func (LevelReset) Kind() EventKind         { return KindLevelReset }
func (GameBeaten) Kind() EventKind         { return KindGameBeaten }
func (ClientRevenueDelta) Kind() EventKind { return KindClientRevenueDelta }
func (RequestAssigned) Kind() EventKind    { return KindRequestAssigned }
func (RequestStalled) Kind() EventKind     { return KindRequestStalled }

type Observer interface {
	OnEvent(ev Event)
}

type ObserverFunc func(ev Event)

func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// Subscribe registers o for every event published from now on, in registration order.
func (c *Controller) Subscribe(o Observer) {
	c.observers = append(c.observers, o)
}

func (c *Controller) publish(ev Event) {
	for _, o := range c.observers {
		o.OnEvent(ev)
	}
}
