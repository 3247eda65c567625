package clients

import (
	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/geom"
)

// IndicatorWidth is how many outstanding items a slot shows at once.
const IndicatorWidth = 2

// Completion describes a request leaving its slot.
type Completion struct {
	Slot    *Slot
	Request Request
	// Elapsed is the wait at the moment of completion, after any patience refills.
	Elapsed float64
}

// Listener is told when a bound request leaves the slot. The slot is already free when called.
type Listener interface {
	RequestFulfilled(c Completion)
	RequestFailed(c Completion)
}

type ItemLookup interface {
	MustItem(id string) catalogs.ItemDef
}

type Slot struct {
	id       string
	rect     geom.Rect
	items    ItemLookup
	listener Listener

	enabled bool

	req         *Request
	outstanding []string
	indicators  []string
	elapsed     float64
}

func NewSlot(id string, rect geom.Rect, items ItemLookup, l Listener) *Slot {
	return &Slot{id: id, rect: rect, items: items, listener: l}
}

func (s *Slot) ID() string      { return s.id }
func (s *Slot) Rect() geom.Rect { return s.rect }

// Load makes the slot part of the current level; Unload also drops any bound request.
func (s *Slot) Load() {
	s.Deactivate()
	s.enabled = true
}

func (s *Slot) Unload() {
	s.Deactivate()
	s.enabled = false
}

func (s *Slot) Enabled() bool { return s.enabled }

// Free reports whether the slot can take a new request.
func (s *Slot) Free() bool { return s.enabled && s.req == nil }

func (s *Slot) Active() bool { return s.req != nil }

func (s *Slot) Request() (Request, bool) {
	if s.req == nil {
		return Request{}, false
	}
	return *s.req, true
}

func (s *Slot) Activate(r Request) {
	s.Deactivate()
	r.Items = append([]string(nil), r.Items...)
	s.req = &r
	s.outstanding = append([]string(nil), r.Items...)
	s.elapsed = 0
	s.refreshIndicators()
}

func (s *Slot) Deactivate() {
	s.req = nil
	s.outstanding = nil
	s.indicators = nil
	s.elapsed = 0
}

func (s *Slot) Tick(dt float64) {
	if s.req == nil {
		return
	}
	s.elapsed += dt
	if s.elapsed >= s.req.Timeout {
		c := Completion{Slot: s, Request: *s.req, Elapsed: s.elapsed}
		s.Deactivate()
		if s.listener != nil {
			s.listener.RequestFailed(c)
		}
	}
}

// Deliver hands item to the bound request and reports whether it was taken.
func (s *Slot) Deliver(item string) bool {
	if s.req == nil {
		return false
	}
	i := indexOf(s.outstanding, item)
	if i < 0 {
		return false
	}
	s.outstanding = append(s.outstanding[:i], s.outstanding[i+1:]...)
	s.refreshIndicators()

	if len(s.outstanding) == 0 {
		c := Completion{Slot: s, Request: *s.req, Elapsed: s.elapsed}
		s.Deactivate()
		if s.listener != nil {
			s.listener.RequestFulfilled(c)
		}
		return true
	}

	if pct := s.items.MustItem(item).ClientWaitTimePercentRestored; pct > 0 {
		s.elapsed -= float64(pct) * 0.01 * s.req.Timeout
		if s.elapsed < 0 {
			s.elapsed = 0
		}
	}
	return true
}

func (s *Slot) IsRequested(item string) bool {
	return s.req != nil && indexOf(s.outstanding, item) >= 0
}

func (s *Slot) Contains(pos geom.Vec2) bool {
	return s.enabled && s.rect.Contains(pos)
}

// Outstanding returns the items still missing, in display order.
func (s *Slot) Outstanding() []string {
	return append([]string(nil), s.outstanding...)
}

// Indicators are the first outstanding items, at most IndicatorWidth of them.
func (s *Slot) Indicators() []string {
	return append([]string(nil), s.indicators...)
}

func (s *Slot) Elapsed() float64 { return s.elapsed }

// TimeLeftPercent is the share of patience remaining, 0..100.
func (s *Slot) TimeLeftPercent() float64 {
	if s.req == nil || s.req.Timeout <= 0 {
		return 0
	}
	return timeLeftPercent(s.elapsed, s.req.Timeout)
}

// Progress is the patience bar fill, 0..100.
func (s *Slot) Progress() int {
	if s.req == nil || s.req.Timeout <= 0 {
		return 0
	}
	return int(100 * s.elapsed / s.req.Timeout)
}

func (s *Slot) refreshIndicators() {
	n := len(s.outstanding)
	if n > IndicatorWidth {
		n = IndicatorWidth
	}
	s.indicators = append(s.indicators[:0], s.outstanding[:n]...)
}

// TimeLeftPercent converts a wait into the remaining patience share, clamped to 0..100.
func TimeLeftPercent(elapsed, timeout float64) float64 {
	if timeout <= 0 {
		return 0
	}
	return timeLeftPercent(elapsed, timeout)
}

func timeLeftPercent(elapsed, timeout float64) float64 {
	p := 100 * (1 - elapsed/timeout)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}
