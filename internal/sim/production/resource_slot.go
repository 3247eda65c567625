package production

import "overburnt.game/internal/sim/geom"

type ResourceSlotConfig struct {
	ID         string
	Item       string
	SpawnTime  float64
	BeginReady bool
	Rect       geom.Rect
}

// ResourceSlot generates its configured item forever. A zero spawn time is an instant supply.
type ResourceSlot struct {
	slotCore
	cfg ResourceSlotConfig
}

func NewResourceSlot(ref string, cfg ResourceSlotConfig, env *Env) *ResourceSlot {
	env.Catalog.MustItem(cfg.Item)
	return &ResourceSlot{
		slotCore: slotCore{id: ref, rect: cfg.Rect, env: env, duration: cfg.SpawnTime},
		cfg:      cfg,
	}
}

func (s *ResourceSlot) Config() ResourceSlotConfig { return s.cfg }

func (s *ResourceSlot) Load() {
	s.reset()
	s.active = true
	s.duration = s.cfg.SpawnTime
	if s.cfg.BeginReady {
		s.setReady()
		return
	}
	s.settle(s.prepareBusy)
}

func (s *ResourceSlot) Unload() {
	s.reset()
	s.active = false
}

func (s *ResourceSlot) Tick(dt float64) {
	if !s.active {
		return
	}
	if s.advance(dt) {
		s.settle(s.setReady)
	}
	s.timers.Fire()
}

// ClearContents hands the item out and restarts production through the settle path.
func (s *ResourceSlot) ClearContents() {
	s.reset()
	s.settle(s.prepareBusy)
}

func (s *ResourceSlot) prepareBusy() {
	if s.duration > 0 {
		s.status = Busy
		s.elapsed = 0
		return
	}
	s.setReady()
}

func (s *ResourceSlot) setReady() {
	s.status = ItemReady
	s.elapsed = 0
	s.item = s.cfg.Item
}
