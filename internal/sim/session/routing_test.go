package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overburnt.game/internal/sim/geom"
	"overburnt.game/internal/sim/production"
	"overburnt.game/internal/sim/tuning"
)

const workshopLevel = `
levels:
  - id: WORKSHOP
    duration: 60
    min_revenue: 1
    good_revenue: 2
    great_revenue: 3
    resource_buildings:
      lumberyard: ["1"]
      bakery: ["1"]
    recipe_buildings:
      workbench:
        "1": [WOODEN_STICK]
    client_slots: [c1, c2]
    disposals: [bin]
    num_clients: 2
    distribution_noise: 0
    pool_item1: [BREAD]
    patience_min: 100
    patience_max: 100
`

func binCenter(f *fixture) geom.Vec2 { return f.c.Disposals()[0].Rect().Center() }

func TestDrag_MissResetsSource(t *testing.T) {
	f := newFixture(t, workshopLevel, tuning.Defaults())

	require.True(t, f.c.DragStart("lumberyard/1", geom.Vec2{X: 1, Y: 6}))
	assert.False(t, f.c.DragStart("lumberyard/1", geom.Vec2{}), "one drag at a time")
	f.c.DragMove(geom.Vec2{X: 3, Y: 3})
	assert.Equal(t, geom.Vec2{X: 3, Y: 3}, f.c.Snapshot().Drag.Pos)

	assert.False(t, f.c.DragEnd(geom.Vec2{X: 100, Y: 100}))
	s := f.c.Slot("lumberyard/1")
	assert.Equal(t, production.ItemReady, s.Status())
	assert.Equal(t, "WOOD", s.Item())
	assert.False(t, s.Drag().Active)
	assert.Nil(t, f.c.Snapshot().Drag)
}

func TestDrag_DisposalDiscards(t *testing.T) {
	f := newFixture(t, workshopLevel, tuning.Defaults())
	require.True(t, f.dragTo(t, "lumberyard/1", binCenter(f)))

	s := f.c.Slot("lumberyard/1")
	assert.Equal(t, production.AwaitingRequirements, s.Status())
	assert.Empty(t, s.Item())
	assert.Zero(t, f.c.Revenue(), "discarding has no other effect")

	f.c.Tick(0.1)
	assert.Equal(t, production.Busy, s.Status(), "resource slot restarts production")
}

func TestDrag_RecipeSlotCommitsAndCrafts(t *testing.T) {
	f := newFixture(t, workshopLevel, tuning.Defaults())
	require.True(t, f.dragTo(t, "lumberyard/1", f.slotCenter(t, "workbench/1")))

	bench := f.c.RecipeSlot("workbench/1")
	require.NotNil(t, bench)
	r, ok := bench.Recipe()
	require.True(t, ok)
	assert.Equal(t, "WOODEN_STICK", r.ID)

	f.tickN(30, 0.1)
	assert.Equal(t, production.ItemReady, bench.Status())
	assert.Equal(t, "STICK", bench.Item())

	require.True(t, f.c.DragStart("workbench/1", f.slotCenter(t, "workbench/1")))
	assert.False(t, f.c.DragEnd(f.slotCenter(t, "workbench/1")), "own output is not fed back")
	assert.Equal(t, "STICK", bench.Item())

	require.True(t, f.dragTo(t, "workbench/1", binCenter(f)))
	assert.Equal(t, production.AwaitingRequirements, bench.Status())
	assert.True(t, bench.MissingRecipe())
}

func TestDrag_UnmatchedRecipeSlotIsMiss(t *testing.T) {
	f := newFixture(t, workshopLevel, tuning.Defaults())
	f.tickN(1, 0.1)
	assert.False(t, f.c.DragStart("bakery/1", f.slotCenter(t, "bakery/1")), "bread is clicked, not dragged")

	require.True(t, f.dragTo(t, "lumberyard/1", f.slotCenter(t, "workbench/1")))
	f.tickUntil(3, 0.1)
	require.True(t, f.ready("lumberyard/1"))

	require.Equal(t, "STICK", f.c.RecipeSlot("workbench/1").Item())
	assert.False(t, f.dragTo(t, "lumberyard/1", f.slotCenter(t, "workbench/1")), "no available recipe reuses the held stick")
	assert.Equal(t, "WOOD", f.c.Slot("lumberyard/1").Item())
}

func TestDrag_IgnoresUnknownHandles(t *testing.T) {
	f := newFixture(t, workshopLevel, tuning.Defaults())
	assert.False(t, f.c.DragStart("quarry/9", geom.Vec2{}))
	assert.False(t, f.c.DragEnd(geom.Vec2{}))
	assert.False(t, f.c.Click("quarry/9"))
	f.c.DragMove(geom.Vec2{X: 1})
}

func TestClick_DeliversToLongestWaiting(t *testing.T) {
	f := newFixture(t, workshopLevel, tuning.Defaults())

	assert.False(t, f.c.Click("bakery/1"), "no client wants bread yet")
	assert.Equal(t, production.ItemReady, f.c.Slot("bakery/1").Status())
	assert.False(t, f.c.Click("lumberyard/1"), "wood is dragged, not clicked")

	f.tickUntil(31, 0.5)
	require.True(t, f.c.ClientSlot("c1").IsRequested("BREAD"))
	require.True(t, f.c.ClientSlot("c2").IsRequested("BREAD"))

	require.True(t, f.c.Click("bakery/1"))
	assert.False(t, f.c.ClientSlot("c1").Active(), "c1 waited longest")
	assert.True(t, f.c.ClientSlot("c2").Active())
	assert.Equal(t, "c1", lastOf[ClientRevenueDelta](t, f.rec).Slot)
	assert.Equal(t, production.AwaitingRequirements, f.c.Slot("bakery/1").Status())
	assert.False(t, f.c.Click("bakery/1"), "nothing left to click")
}

func TestSnapshot_ReflectsBoard(t *testing.T) {
	f := newFixture(t, workshopLevel, tuning.Defaults())
	f.c.Tick(0.5)
	snap := f.c.Snapshot()

	assert.Equal(t, "WORKSHOP", snap.LevelID)
	assert.Equal(t, Running, snap.Result)
	assert.InDelta(t, 59.5, snap.TimeLeft, 1e-9)
	require.NotNil(t, snap.NextThreshold)
	assert.Equal(t, 1, *snap.NextThreshold)

	byRef := map[string]SlotView{}
	for _, s := range snap.Slots {
		byRef[s.Ref] = s
	}
	assert.True(t, byRef["lumberyard/1"].Active)
	assert.False(t, byRef["mine/1"].Active)
	assert.Equal(t, []string{"WOODEN_STICK"}, byRef["workbench/1"].Recipes)
	assert.Equal(t, "RECIPE", byRef["workbench/1"].Kind)

	require.Len(t, snap.Clients, 4)
	assert.Equal(t, 1, snap.Clients[0].Ticket)
	assert.Equal(t, []string{"BREAD"}, snap.Clients[0].Indicators)
	assert.False(t, snap.Clients[2].Enabled)
}
