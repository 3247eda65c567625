package session

import (
	"overburnt.game/internal/sim/clients"
	"overburnt.game/internal/sim/geom"
	"overburnt.game/internal/sim/production"
)

// DragStart picks up the ready item of the slot addressed by ref. Returns false when ignored.
func (c *Controller) DragStart(ref string, pos geom.Vec2) bool {
	if c.result != Running || !c.started || c.drag != nil {
		return false
	}
	s := c.slotsByRef[ref]
	if s == nil || !s.BeginDrag(pos) {
		return false
	}
	c.drag = &dragSession{slot: s, item: s.Item()}
	return true
}

func (c *Controller) DragMove(pos geom.Vec2) {
	if c.drag != nil {
		c.drag.slot.DragTo(pos)
	}
}

// DragEnd drops the dragged item at pos. The source slot is cleared when something consumed
// the item and reset otherwise.
func (c *Controller) DragEnd(pos geom.Vec2) bool {
	if c.drag == nil {
		return false
	}
	d := c.drag
	c.drag = nil
	d.slot.DragTo(pos)

	if c.drop(d.slot, d.item, pos) {
		d.slot.ClearContents()
		return true
	}
	d.slot.ResetSlot()
	return false
}

// drop resolves pos in priority order: recipe slot, requesting client, disposal.
func (c *Controller) drop(src production.Slot, item string, pos geom.Vec2) bool {
	for _, b := range c.recipeBuildings {
		slot, recipe, ok := b.FindSlotAtWithRequirement(pos, item)
		if !ok {
			continue
		}
		if production.Slot(slot) == src {
			return false
		}
		if slot.MissingRecipe() {
			return slot.SetActiveRecipe(recipe, item)
		}
		return slot.AddRequirement(item)
	}
	for _, s := range c.clientSlots {
		if s.Contains(pos) && s.IsRequested(item) {
			return s.Deliver(item)
		}
	}
	for _, d := range c.disposals {
		if d.Contains(pos) {
			return true
		}
	}
	return false
}

// Click hands a ready click-item to the active client that has waited longest for it.
// Without a taker the click is ignored and the item stays.
func (c *Controller) Click(ref string) bool {
	if c.result != Running || !c.started {
		return false
	}
	s := c.slotsByRef[ref]
	if s == nil || !s.Click() {
		return false
	}
	item := s.Item()
	target := c.longestWaiting(item)
	if target == nil {
		return false
	}
	s.ClearContents()
	target.Deliver(item)
	return true
}

func (c *Controller) longestWaiting(item string) *clients.Slot {
	var best *clients.Slot
	for _, s := range c.clientSlots {
		if !s.IsRequested(item) {
			continue
		}
		if best == nil || s.Elapsed() > best.Elapsed() {
			best = s
		}
	}
	return best
}
