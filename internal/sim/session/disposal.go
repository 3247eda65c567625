package session

import "overburnt.game/internal/sim/geom"

// Disposal discards whatever is dropped on it.
type Disposal struct {
	id     string
	rect   geom.Rect
	active bool
}

func NewDisposal(id string, rect geom.Rect) *Disposal {
	return &Disposal{id: id, rect: rect}
}

func (d *Disposal) ID() string      { return d.id }
func (d *Disposal) Rect() geom.Rect { return d.rect }
func (d *Disposal) Active() bool    { return d.active }
func (d *Disposal) Load()           { d.active = true }
func (d *Disposal) Unload()         { d.active = false }

func (d *Disposal) Contains(pos geom.Vec2) bool {
	return d.active && d.rect.Contains(pos)
}
