package production

import (
	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/geom"
	"overburnt.game/internal/sim/timers"
)

type Status int

const (
	AwaitingRequirements Status = iota
	Busy
	ItemReady
)

func (s Status) String() string {
	switch s {
	case AwaitingRequirements:
		return "AWAITING_REQUIREMENTS"
	case Busy:
		return "BUSY"
	case ItemReady:
		return "ITEM_READY"
	default:
		return "UNKNOWN"
	}
}

// Summed frame deltas drift (ten 0.1 steps fall short of 1.0), so targets are reached within this.
const timeEpsilon = 1e-9

// DefaultSettleDelay is the pause between a timer reaching its target and the result becoming actionable.
const DefaultSettleDelay = 0.1

// Catalog is the subset of the catalogs a slot needs. Misses are configuration bugs and panic.
type Catalog interface {
	MustItem(id string) catalogs.ItemDef
	MustRecipe(id string) catalogs.RecipeDef
}

// Env is shared by every slot of a session.
type Env struct {
	Catalog     Catalog
	SettleDelay float64
}

// DragState is pointer feedback only; it never affects production.
type DragState struct {
	Active bool      `json:"active"`
	Start  geom.Vec2 `json:"start"`
	Pos    geom.Vec2 `json:"pos"`
}

// Slot is the capability shared by resource and recipe slots.
type Slot interface {
	ID() string
	Active() bool
	Status() Status
	Item() string
	Rect() geom.Rect

	Load()
	Unload()
	Tick(dt float64)

	// ClearContents consumes the held item; ResetSlot only drops drag feedback.
	ClearContents()
	ResetSlot()

	Contains(pos geom.Vec2) bool
	BeginDrag(pos geom.Vec2) bool
	DragTo(pos geom.Vec2)
	Drag() DragState
	Click() bool

	// Progress is the fill percent shown while busy.
	Progress() int
}

type slotCore struct {
	id   string
	rect geom.Rect
	env  *Env

	active   bool
	status   Status
	elapsed  float64
	duration float64
	item     string
	drag     DragState

	timers timers.Queue
}

func (c *slotCore) ID() string       { return c.id }
func (c *slotCore) Active() bool     { return c.active }
func (c *slotCore) Status() Status   { return c.status }
func (c *slotCore) Item() string     { return c.item }
func (c *slotCore) Rect() geom.Rect  { return c.rect }
func (c *slotCore) Drag() DragState  { return c.drag }
func (c *slotCore) Elapsed() float64 { return c.elapsed }

func (c *slotCore) Duration() float64 { return c.duration }

func (c *slotCore) Contains(pos geom.Vec2) bool {
	return c.active && c.rect.Contains(pos)
}

func (c *slotCore) reset() {
	c.status = AwaitingRequirements
	c.elapsed = 0
	c.item = ""
	c.drag = DragState{}
	c.timers.Reset()
}

func (c *slotCore) settle(fn func()) {
	c.timers.After(c.env.SettleDelay, fn)
}

// advance runs the busy timer and reports whether this tick reached the duration.
func (c *slotCore) advance(dt float64) bool {
	c.timers.Advance(dt)
	if c.status != Busy || c.elapsed >= c.duration {
		return false
	}
	c.elapsed += dt
	if c.elapsed+timeEpsilon >= c.duration {
		c.elapsed = c.duration
		return true
	}
	return false
}

func (c *slotCore) readyItemWith(mode catalogs.Interaction) bool {
	if !c.active || c.item == "" || c.status != ItemReady {
		return false
	}
	return c.env.Catalog.MustItem(c.item).Interaction == mode
}

func (c *slotCore) BeginDrag(pos geom.Vec2) bool {
	if c.drag.Active || !c.readyItemWith(catalogs.InteractionDrag) {
		return false
	}
	c.drag = DragState{Active: true, Start: pos, Pos: pos}
	return true
}

func (c *slotCore) DragTo(pos geom.Vec2) {
	if c.drag.Active {
		c.drag.Pos = pos
	}
}

func (c *slotCore) ResetSlot() { c.drag = DragState{} }

func (c *slotCore) Click() bool {
	return c.readyItemWith(catalogs.InteractionClick)
}

func (c *slotCore) Progress() int {
	switch c.status {
	case ItemReady:
		return 100
	case Busy:
		if c.duration <= 0 {
			return 100
		}
		return int(100 * c.elapsed / c.duration)
	default:
		return 0
	}
}
