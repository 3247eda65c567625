// Package session runs one player's level attempts: the clock, request scheduling, fatigue,
// revenue, drag and click routing, and progression between levels.
//
// A Controller is not safe for concurrent use. The runtime package owns it from a single goroutine.
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"

	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/clients"
	"overburnt.game/internal/sim/levels"
	"overburnt.game/internal/sim/production"
	"overburnt.game/internal/sim/tuning"
)

type Config struct {
	Catalogs *catalogs.Catalogs
	Tuning   tuning.Tuning
	Layout   *levels.Layout
	Levels   *levels.Set

	Seed       int64
	StartLevel int

	Logger *log.Logger
}

type Controller struct {
	cat    *catalogs.Catalogs
	tun    tuning.Tuning
	layout *levels.Layout
	set    *levels.Set
	rng    *rand.Rand
	logger *log.Logger

	env               *production.Env
	resourceBuildings []*production.ResourceBuilding
	recipeBuildings   []*production.RecipeBuilding
	clientSlots       []*clients.Slot
	disposals         []*Disposal
	slotsByRef        map[string]production.Slot

	started    bool
	beaten     bool
	levelIndex int
	level      levels.Level

	elapsed float64
	result  Result
	revenue int

	fatigue     float64
	baseFatigue float64
	idle        float64

	schedule   []float64
	cursor     int
	nextTicket int
	stalled    clients.StallQueue

	drag *dragSession

	observers []Observer
}

type dragSession struct {
	slot production.Slot
	item string
}

func New(cfg Config) (*Controller, error) {
	if cfg.Catalogs == nil || cfg.Layout == nil || cfg.Levels == nil {
		return nil, errors.New("session: catalogs, layout and levels are required")
	}
	if cfg.Levels.Len() == 0 {
		return nil, errors.New("session: no levels")
	}
	if cfg.StartLevel < 0 || cfg.StartLevel >= cfg.Levels.Len() {
		return nil, fmt.Errorf("session: start level %d out of range [0,%d)", cfg.StartLevel, cfg.Levels.Len())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	c := &Controller{
		cat:        cfg.Catalogs,
		tun:        cfg.Tuning,
		layout:     cfg.Layout,
		set:        cfg.Levels,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		logger:     logger,
		levelIndex: cfg.StartLevel,
		slotsByRef: map[string]production.Slot{},
	}
	c.env = &production.Env{Catalog: cfg.Catalogs, SettleDelay: cfg.Tuning.SettleDelay}

	for _, bl := range cfg.Layout.ResourceBuildings {
		slots := make([]production.ResourceSlotConfig, 0, len(bl.Slots))
		for _, s := range bl.Slots {
			slots = append(slots, production.ResourceSlotConfig{
				ID: s.ID, Item: s.Item, SpawnTime: s.SpawnTime, BeginReady: s.BeginReady, Rect: s.Rect,
			})
		}
		b := production.NewResourceBuilding(bl.ID, slots, c.env)
		for _, s := range b.Slots() {
			c.slotsByRef[s.ID()] = s
		}
		c.resourceBuildings = append(c.resourceBuildings, b)
	}
	for _, bl := range cfg.Layout.RecipeBuildings {
		slots := make([]production.RecipeSlotConfig, 0, len(bl.Slots))
		for _, s := range bl.Slots {
			opts := make([]production.RecipeOption, 0, len(s.Recipes))
			for _, r := range s.Recipes {
				opts = append(opts, production.RecipeOption{Recipe: r.Recipe, Time: r.Time})
			}
			slots = append(slots, production.RecipeSlotConfig{ID: s.ID, Recipes: opts, Rect: s.Rect})
		}
		b := production.NewRecipeBuilding(bl.ID, slots, c.env)
		for _, s := range b.Slots() {
			c.slotsByRef[s.ID()] = s
		}
		c.recipeBuildings = append(c.recipeBuildings, b)
	}
	listener := clientListener{c: c}
	for _, a := range cfg.Layout.ClientSlots {
		c.clientSlots = append(c.clientSlots, clients.NewSlot(a.ID, a.Rect, cfg.Catalogs, listener))
	}
	for _, a := range cfg.Layout.Disposals {
		c.disposals = append(c.disposals, NewDisposal(a.ID, a.Rect))
	}
	return c, nil
}

// Start loads the configured first level. Subscribe observers before calling it.
func (c *Controller) Start() {
	if c.started {
		return
	}
	c.started = true
	c.loadLevel(c.levelIndex)
}

// Tick advances the attempt by dt seconds. Finished attempts do not advance until Continue.
func (c *Controller) Tick(dt float64) {
	if !c.started || c.result != Running || dt <= 0 {
		return
	}
	c.elapsed += dt
	if c.elapsed >= c.level.Duration {
		c.elapsed = c.level.Duration
		c.finish(evaluate(c.revenue, c.level))
		return
	}

	c.spawnDue()

	if c.updateFatigue(dt) {
		c.finish(LostExhaustion)
		return
	}

	for _, b := range c.resourceBuildings {
		b.UpdateGame(dt)
	}
	for _, b := range c.recipeBuildings {
		b.UpdateGame(dt)
	}
	for _, s := range c.clientSlots {
		s.Tick(dt)
	}
}

func (c *Controller) finish(r Result) {
	c.result = r
	if c.drag != nil {
		c.drag.slot.ResetSlot()
		c.drag = nil
	}
	ev := LevelFinished{Result: r, Revenue: c.revenue, ResumeDelay: c.tun.ResumeDelay}
	if next, ok := c.level.NextThreshold(c.revenue); ok {
		ev.NextThreshold = &next
	}
	c.logger.Printf("level %s finished: result=%s revenue=%d elapsed=%.2f", c.level.ID, r, c.revenue, c.elapsed)
	c.publish(ev)
}

func (c *Controller) loadLevel(idx int) {
	lv, _ := c.set.Level(idx)
	c.levelIndex = idx
	c.level = lv

	for _, b := range c.resourceBuildings {
		if slots, ok := lv.ResourceBuildings[b.ID()]; ok {
			b.LoadBuilding(slots)
		} else {
			b.Unload()
		}
	}
	for _, b := range c.recipeBuildings {
		if overrides, ok := lv.RecipeBuildings[b.ID()]; ok {
			b.LoadBuilding(overrides)
		} else {
			b.Unload()
		}
	}
	for _, s := range c.clientSlots {
		if containsID(lv.ClientSlots, s.ID()) {
			s.Load()
		} else {
			s.Unload()
		}
	}
	for _, d := range c.disposals {
		if containsID(lv.Disposals, d.ID()) {
			d.Load()
		} else {
			d.Unload()
		}
	}

	c.elapsed = 0
	c.result = Running
	c.revenue = 0
	c.idle = 0
	c.drag = nil
	c.stalled.Clear()
	c.fatigue = c.baseFatigue
	if lv.IgnoreFatigue {
		c.fatigue = 0
	}
	c.schedule = buildSchedule(c.rng, lv)
	c.cursor = 0

	c.logger.Printf("level %s started: index=%d clients=%d fatigue=%.1f", lv.ID, idx, len(c.schedule), c.fatigue)
	c.publish(LevelStarted{LevelIndex: idx, Config: lv, StartDelay: c.tun.StartDelay})
	c.publish(EarningsChanged{Total: c.revenue})
	c.publish(FatigueChanged{Percent: c.FatiguePercent(), Fatigue: c.fatigue})
}

// Slot returns the production slot addressed by ref ("building/slot"), or nil.
func (c *Controller) Slot(ref string) production.Slot { return c.slotsByRef[ref] }

func (c *Controller) RecipeSlot(ref string) *production.RecipeSlot {
	s, _ := c.slotsByRef[ref].(*production.RecipeSlot)
	return s
}

func (c *Controller) ClientSlot(id string) *clients.Slot {
	for _, s := range c.clientSlots {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

func (c *Controller) ClientSlots() []*clients.Slot { return c.clientSlots }

func (c *Controller) Disposals() []*Disposal { return c.disposals }

func (c *Controller) Result() Result        { return c.result }
func (c *Controller) Revenue() int          { return c.revenue }
func (c *Controller) Fatigue() float64      { return c.fatigue }
func (c *Controller) Elapsed() float64      { return c.elapsed }
func (c *Controller) LevelIndex() int       { return c.levelIndex }
func (c *Controller) Level() levels.Level   { return c.level }
func (c *Controller) Beaten() bool          { return c.beaten }
func (c *Controller) Dragging() bool        { return c.drag != nil }
func (c *Controller) StalledTickets() []int { return c.stalled.Tickets() }

func (c *Controller) TimeLeft() float64 {
	left := c.level.Duration - c.elapsed
	if left < 0 {
		return 0
	}
	return left
}

func (c *Controller) FatiguePercent() int {
	if c.tun.Fatigue.Max <= 0 {
		return 0
	}
	return int(100 * c.fatigue / c.tun.Fatigue.Max)
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
