package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"overburnt.game/internal/sim/geom"
	"overburnt.game/internal/sim/production"
)

// Snapshot is a read-only view of the attempt, in layout order.
type Snapshot struct {
	LevelIndex     int     `json:"level_index"`
	LevelID        string  `json:"level_id"`
	Result         Result  `json:"result"`
	Beaten         bool    `json:"beaten,omitempty"`
	Elapsed        float64 `json:"elapsed"`
	TimeLeft       float64 `json:"time_left"`
	Revenue        int     `json:"revenue"`
	NextThreshold  *int    `json:"next_threshold,omitempty"`
	Fatigue        float64 `json:"fatigue"`
	FatiguePercent int     `json:"fatigue_percent"`

	Slots     []SlotView   `json:"slots"`
	Clients   []ClientView `json:"clients"`
	Disposals []AreaView   `json:"disposals"`
	Stalled   []int        `json:"stalled"`
	Drag      *DragView    `json:"drag,omitempty"`
}

type SlotView struct {
	Ref          string    `json:"ref"`
	Kind         string    `json:"kind"`
	Active       bool      `json:"active"`
	Status       string    `json:"status"`
	Item         string    `json:"item,omitempty"`
	Progress     int       `json:"progress"`
	Recipe       string    `json:"recipe,omitempty"`
	Requirements []string  `json:"requirements,omitempty"`
	Recipes      []string  `json:"recipes,omitempty"`
	Rect         geom.Rect `json:"rect"`
}

type ClientView struct {
	ID              string    `json:"id"`
	Enabled         bool      `json:"enabled"`
	Ticket          int       `json:"ticket,omitempty"`
	Outstanding     []string  `json:"outstanding,omitempty"`
	Indicators      []string  `json:"indicators,omitempty"`
	TimeLeftPercent float64   `json:"time_left_percent"`
	Progress        int       `json:"progress"`
	Rect            geom.Rect `json:"rect"`
}

type AreaView struct {
	ID     string    `json:"id"`
	Active bool      `json:"active"`
	Rect   geom.Rect `json:"rect"`
}

type DragView struct {
	Slot string    `json:"slot"`
	Item string    `json:"item"`
	Pos  geom.Vec2 `json:"pos"`
}

func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		LevelIndex:     c.levelIndex,
		LevelID:        c.level.ID,
		Result:         c.result,
		Beaten:         c.beaten,
		Elapsed:        c.elapsed,
		TimeLeft:       c.TimeLeft(),
		Revenue:        c.revenue,
		Fatigue:        c.fatigue,
		FatiguePercent: c.FatiguePercent(),
		Stalled:        c.stalled.Tickets(),
	}
	if next, ok := c.level.NextThreshold(c.revenue); ok {
		snap.NextThreshold = &next
	}

	for _, b := range c.resourceBuildings {
		for _, s := range b.Slots() {
			snap.Slots = append(snap.Slots, slotView("RESOURCE", s))
		}
	}
	for _, b := range c.recipeBuildings {
		for _, s := range b.Slots() {
			v := slotView("RECIPE", s)
			if r, ok := s.Recipe(); ok {
				v.Recipe = r.ID
				v.Requirements = s.Requirements()
			}
			if s.Active() {
				v.Recipes = s.Available()
			}
			snap.Slots = append(snap.Slots, v)
		}
	}
	for _, s := range c.clientSlots {
		v := ClientView{ID: s.ID(), Enabled: s.Enabled(), Rect: s.Rect()}
		if r, ok := s.Request(); ok {
			v.Ticket = r.Ticket
			v.Outstanding = s.Outstanding()
			v.Indicators = s.Indicators()
			v.TimeLeftPercent = s.TimeLeftPercent()
			v.Progress = s.Progress()
		}
		snap.Clients = append(snap.Clients, v)
	}
	for _, d := range c.disposals {
		snap.Disposals = append(snap.Disposals, AreaView{ID: d.ID(), Active: d.Active(), Rect: d.Rect()})
	}
	if c.drag != nil {
		snap.Drag = &DragView{Slot: c.drag.slot.ID(), Item: c.drag.item, Pos: c.drag.slot.Drag().Pos}
	}
	return snap
}

func slotView(kind string, s production.Slot) SlotView {
	return SlotView{
		Ref:      s.ID(),
		Kind:     kind,
		Active:   s.Active(),
		Status:   s.Status().String(),
		Item:     s.Item(),
		Progress: s.Progress(),
		Rect:     s.Rect(),
	}
}

// Digest hashes the snapshot. Equal seeds and inputs give equal digests tick for tick.
func (c *Controller) Digest() string {
	b, err := json.Marshal(c.Snapshot())
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
