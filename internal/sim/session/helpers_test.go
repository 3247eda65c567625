package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/geom"
	"overburnt.game/internal/sim/levels"
	"overburnt.game/internal/sim/production"
	"overburnt.game/internal/sim/tuning"
)

const configDir = "../../../configs"

type recorder struct {
	events []Event
}

func (r *recorder) OnEvent(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

func eventsOf[T Event](r *recorder) []T {
	var out []T
	for _, ev := range r.events {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func lastOf[T Event](t *testing.T, r *recorder) T {
	t.Helper()
	all := eventsOf[T](r)
	require.NotEmpty(t, all, "no %T published", *new(T))
	return all[len(all)-1]
}

type fixture struct {
	c   *Controller
	rec *recorder
	cat *catalogs.Catalogs
}

func newFixture(t *testing.T, levelsYAML string, tun tuning.Tuning) *fixture {
	t.Helper()
	cat, err := catalogs.Load(configDir)
	require.NoError(t, err)
	layout, err := levels.LoadLayout(configDir+"/layout.yaml", cat)
	require.NoError(t, err)
	set, err := levels.ParseLevels([]byte(levelsYAML), layout, cat)
	require.NoError(t, err)

	c, err := New(Config{Catalogs: cat, Tuning: tun, Layout: layout, Levels: set, Seed: 42})
	require.NoError(t, err)
	rec := &recorder{}
	c.Subscribe(rec)
	c.Start()
	return &fixture{c: c, rec: rec, cat: cat}
}

// flatTuning pays exactly the base revenue regardless of speed.
func flatTuning() tuning.Tuning {
	tu := tuning.Defaults()
	tu.RevenueTiers = []tuning.RevenueTier{{MinTimeLeftPercent: 0, Multiplier: 1}}
	return tu
}

func (f *fixture) tickN(n int, dt float64) {
	for i := 0; i < n; i++ {
		f.c.Tick(dt)
	}
}

// tickUntil ticks until elapsed reaches at (within float noise).
func (f *fixture) tickUntil(at, dt float64) {
	for f.c.Elapsed()+1e-9 < at && f.c.Result() == Running {
		f.c.Tick(dt)
	}
}

func (f *fixture) slotCenter(t *testing.T, ref string) geom.Vec2 {
	t.Helper()
	s := f.c.Slot(ref)
	require.NotNil(t, s, ref)
	return s.Rect().Center()
}

func (f *fixture) clientCenter(t *testing.T, id string) geom.Vec2 {
	t.Helper()
	s := f.c.ClientSlot(id)
	require.NotNil(t, s, id)
	return s.Rect().Center()
}

// dragTo moves the ready item of ref onto pos in one gesture.
func (f *fixture) dragTo(t *testing.T, ref string, pos geom.Vec2) bool {
	t.Helper()
	require.True(t, f.c.DragStart(ref, f.slotCenter(t, ref)), "drag start %s", ref)
	f.c.DragMove(pos)
	return f.c.DragEnd(pos)
}

func (f *fixture) ready(ref string) bool {
	s := f.c.Slot(ref)
	return s != nil && s.Status() == production.ItemReady
}
