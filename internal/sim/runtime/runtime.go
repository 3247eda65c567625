// Package runtime drives a session controller in real time. One goroutine owns the controller:
// inputs queue in an inbox and are applied in arrival order at the next tick boundary.
package runtime

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"overburnt.game/internal/protocol"
	"overburnt.game/internal/sim/geom"
	"overburnt.game/internal/sim/session"
)

type Input struct {
	Kind string    `json:"kind"`
	Slot string    `json:"slot,omitempty"`
	Pos  geom.Vec2 `json:"pos"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// Header identifies what a tick log replays against. Only the first entry carries it.
type Header struct {
	SessionID   string `json:"session_id"`
	Seed        int64  `json:"seed"`
	StartLevel  int    `json:"start_level"`
	TickRateHz  int    `json:"tick_rate_hz"`
	ItemsDigest string `json:"items_digest,omitempty"`
	LevelDigest string `json:"levels_digest,omitempty"`
}

type TickLogEntry struct {
	Tick   uint64  `json:"tick"`
	Header *Header `json:"header,omitempty"`
	Inputs []Input `json:"inputs,omitempty"`
	Digest string  `json:"digest"`
}

// Metrics is implemented by metrics.SessionCollector.
type Metrics interface {
	RecordTick(d time.Duration)
	RecordInput(kind string, accepted bool)
	RecordLevelFinished(levelID, result string)
	RecordRevenue(delta int)
	RecordStalled()
}

// Attempt is a finished level attempt as stored by the read-model.
type Attempt struct {
	SessionID  string
	LevelIndex int
	LevelID    string
	Result     string
	Revenue    int
	Fatigue    float64
	Tick       uint64
	Seed       int64
}

type AttemptSink interface {
	RecordAttempt(a Attempt)
}

type Config struct {
	ID         string
	TickRateHz int
	Seed       int64
	StartLevel int

	// STATE frames are pushed every StateEveryTicks ticks and on any tick that published events.
	StateEveryTicks int

	ItemsDigest  string
	LevelsDigest string

	Logger *log.Logger
}

type Runtime struct {
	cfg    Config
	c      *session.Controller
	dt     float64
	logger *log.Logger

	inbox    chan Input
	stop     chan struct{}
	stopOnce sync.Once

	out chan []byte

	tick    uint64
	pending []session.Event

	tickLogger TickLogger
	metrics    Metrics
	attempts   AttemptSink
}

// New subscribes to c and starts it. The first step flushes the level start events.
func New(c *session.Controller, cfg Config) *Runtime {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.StateEveryTicks <= 0 {
		cfg.StateEveryTicks = cfg.TickRateHz / 5
		if cfg.StateEveryTicks <= 0 {
			cfg.StateEveryTicks = 1
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	r := &Runtime{
		cfg:    cfg,
		c:      c,
		dt:     1 / float64(cfg.TickRateHz),
		logger: logger,
		inbox:  make(chan Input, 256),
		stop:   make(chan struct{}),
	}
	c.Subscribe(r)
	c.Start()
	return r
}

func (r *Runtime) SetTickLogger(l TickLogger)   { r.tickLogger = l }
func (r *Runtime) SetMetrics(m Metrics)         { r.metrics = m }
func (r *Runtime) SetAttemptSink(s AttemptSink) { r.attempts = s }

// Attach routes EVENT and STATE frames to out. Frames are dropped oldest-first when out is full.
func (r *Runtime) Attach(out chan []byte) { r.out = out }

func (r *Runtime) ID() string                      { return r.cfg.ID }
func (r *Runtime) Tick() uint64                    { return r.tick }
func (r *Runtime) TickRateHz() int                 { return r.cfg.TickRateHz }
func (r *Runtime) Controller() *session.Controller { return r.c }

// Submit queues an input for the next tick. It reports false when the inbox is full.
func (r *Runtime) Submit(in Input) bool {
	select {
	case r.inbox <- in:
		return true
	default:
		return false
	}
}

func (r *Runtime) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(r.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []Input
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case in := <-r.inbox:
			pending = append(pending, in)
		case <-ticker.C:
			r.step(pending)
			pending = pending[:0]
		}
	}
}

func (r *Runtime) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

// StepOnce advances by a single tick using the same ordering as Run.
// It is primarily intended for deterministic replays/tests.
func (r *Runtime) StepOnce(inputs []Input) (tick uint64, digest string) {
	tick = r.tick
	return tick, r.step(inputs)
}

// OnEvent buffers controller events until the end of the current step.
func (r *Runtime) OnEvent(ev session.Event) { r.pending = append(r.pending, ev) }

func (r *Runtime) step(inputs []Input) string {
	start := time.Now()
	tick := r.tick

	for _, in := range inputs {
		ok := r.apply(in)
		if r.metrics != nil {
			r.metrics.RecordInput(in.Kind, ok)
		}
	}
	r.c.Tick(r.dt)
	digest := r.c.Digest()

	if r.tickLogger != nil {
		entry := TickLogEntry{Tick: tick, Digest: digest}
		if len(inputs) > 0 {
			entry.Inputs = append([]Input(nil), inputs...)
		}
		if tick == 0 {
			entry.Header = &Header{
				SessionID:   r.cfg.ID,
				Seed:        r.cfg.Seed,
				StartLevel:  r.cfg.StartLevel,
				TickRateHz:  r.cfg.TickRateHz,
				ItemsDigest: r.cfg.ItemsDigest,
				LevelDigest: r.cfg.LevelsDigest,
			}
		}
		if err := r.tickLogger.WriteTick(entry); err != nil {
			r.logger.Printf("tick log: %v", err)
		}
	}

	hadEvents := len(r.pending) > 0
	r.flush(tick)
	if r.out != nil && (hadEvents || tick%uint64(r.cfg.StateEveryTicks) == 0) {
		r.sendState(tick)
	}
	r.tick++
	if r.metrics != nil {
		r.metrics.RecordTick(time.Since(start))
	}
	return digest
}

func (r *Runtime) apply(in Input) bool {
	switch in.Kind {
	case protocol.InputDragStart:
		return r.c.DragStart(in.Slot, in.Pos)
	case protocol.InputDragMove:
		r.c.DragMove(in.Pos)
		return r.c.Dragging()
	case protocol.InputDragEnd:
		return r.c.DragEnd(in.Pos)
	case protocol.InputClick:
		return r.c.Click(in.Slot)
	case protocol.InputContinue:
		return r.c.Continue()
	default:
		return false
	}
}

func (r *Runtime) flush(tick uint64) {
	evs := r.pending
	r.pending = nil
	for _, ev := range evs {
		r.observe(tick, ev)
		if r.out == nil {
			continue
		}
		b, err := json.Marshal(protocol.EventMsg{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			Tick:            tick,
			Event:           string(ev.Kind()),
			Data:            ev,
		})
		if err != nil {
			r.logger.Printf("marshal %s: %v", ev.Kind(), err)
			continue
		}
		sendLatest(r.out, b)
	}
}

func (r *Runtime) observe(tick uint64, ev session.Event) {
	switch e := ev.(type) {
	case session.LevelStarted:
		r.logger.Printf("tick=%d level %d (%s) started", tick, e.LevelIndex, e.Config.ID)
	case session.LevelFinished:
		lv := r.c.Level()
		r.logger.Printf("tick=%d level %s finished result=%s revenue=%d", tick, lv.ID, e.Result, e.Revenue)
		if r.metrics != nil {
			r.metrics.RecordLevelFinished(lv.ID, e.Result.String())
		}
		if r.attempts != nil {
			r.attempts.RecordAttempt(Attempt{
				SessionID:  r.cfg.ID,
				LevelIndex: r.c.LevelIndex(),
				LevelID:    lv.ID,
				Result:     e.Result.String(),
				Revenue:    e.Revenue,
				Fatigue:    r.c.Fatigue(),
				Tick:       tick,
				Seed:       r.cfg.Seed,
			})
		}
	case session.GameBeaten:
		r.logger.Printf("tick=%d game beaten", tick)
	case session.ClientRevenueDelta:
		if r.metrics != nil {
			r.metrics.RecordRevenue(e.Delta)
		}
	case session.RequestStalled:
		if r.metrics != nil {
			r.metrics.RecordStalled()
		}
	}
}

func (r *Runtime) sendState(tick uint64) {
	b, err := json.Marshal(protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Snapshot:        r.c.Snapshot(),
	})
	if err != nil {
		r.logger.Printf("marshal state: %v", err)
		return
	}
	sendLatest(r.out, b)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
