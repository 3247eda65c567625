package main

import (
	"overburnt.game/internal/protocol"
	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/geom"
	"overburnt.game/internal/sim/session"
)

// continueCooldown spaces CONTINUE retries while a finished level waits on the server.
const continueCooldown = 20

// planner picks at most one move per snapshot: click a ready clickable item, otherwise
// drag the first ready item that a client or a workbench still needs.
type planner struct {
	cat *catalogs.Catalogs

	continuedAt uint64
	continued   bool
}

func newPlanner(cat *catalogs.Catalogs) *planner { return &planner{cat: cat} }

func (p *planner) plan(tick uint64, snap session.Snapshot) []protocol.InputMsg {
	if snap.Beaten {
		return nil
	}
	if snap.Result != session.Running {
		if p.continued && tick < p.continuedAt+continueCooldown {
			return nil
		}
		p.continued, p.continuedAt = true, tick
		return []protocol.InputMsg{input(protocol.InputContinue, "", nil)}
	}
	p.continued = false
	if snap.Drag != nil {
		return []protocol.InputMsg{input(protocol.InputDragEnd, "", &snap.Drag.Pos)}
	}

	for _, s := range snap.Slots {
		if !s.Active || s.Status != "ITEM_READY" || s.Item == "" {
			continue
		}
		def, ok := p.cat.Item(s.Item)
		if !ok {
			continue
		}
		if def.Interaction == catalogs.InteractionClick {
			if p.clientWants(snap, s.Item) {
				return []protocol.InputMsg{input(protocol.InputClick, s.Ref, nil)}
			}
			continue
		}
		target, ok := p.dropTarget(snap, s)
		if !ok {
			continue
		}
		from := s.Rect.Center()
		return []protocol.InputMsg{
			input(protocol.InputDragStart, s.Ref, &from),
			input(protocol.InputDragMove, "", &target),
			input(protocol.InputDragEnd, "", &target),
		}
	}
	return nil
}

func (p *planner) clientWants(snap session.Snapshot, item string) bool {
	for _, c := range snap.Clients {
		if c.Enabled && contains(c.Outstanding, item) {
			return true
		}
	}
	return false
}

func (p *planner) dropTarget(snap session.Snapshot, src session.SlotView) (geom.Vec2, bool) {
	for _, c := range snap.Clients {
		if c.Enabled && contains(c.Outstanding, src.Item) {
			return c.Rect.Center(), true
		}
	}
	for _, t := range snap.Slots {
		if t.Kind != "RECIPE" || t.Ref == src.Ref || !t.Active || t.Status != "AWAITING_REQUIREMENTS" {
			continue
		}
		if p.benchNeeds(t, src.Item) {
			return t.Rect.Center(), true
		}
	}
	return geom.Vec2{}, false
}

// benchNeeds reports whether delivering item to an idle workbench slot makes progress.
func (p *planner) benchNeeds(t session.SlotView, item string) bool {
	if t.Recipe != "" {
		r, ok := p.cat.Recipe(t.Recipe)
		return ok && remaining(r.Requirements, t.Requirements, item) > 0
	}
	if t.Item != "" {
		return false
	}
	for _, id := range t.Recipes {
		if r, ok := p.cat.Recipe(id); ok && r.Requires(item) {
			return true
		}
	}
	return false
}

func remaining(required, have []string, item string) int {
	n := 0
	for _, r := range required {
		if r == item {
			n++
		}
	}
	for _, h := range have {
		if h == item {
			n--
		}
	}
	return n
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

func input(kind, slot string, pos *geom.Vec2) protocol.InputMsg {
	return protocol.InputMsg{
		Type:            protocol.TypeInput,
		ProtocolVersion: protocol.Version,
		Kind:            kind,
		Slot:            slot,
		Pos:             pos,
	}
}
