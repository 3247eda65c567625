package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overburnt.game/internal/sim/catalogs"
)

func loadConfigs(t *testing.T) (*catalogs.Catalogs, *Layout, *Set) {
	t.Helper()
	cat, err := catalogs.Load("../../../configs")
	require.NoError(t, err)
	layout, err := LoadLayout("../../../configs/layout.yaml", cat)
	require.NoError(t, err)
	set, err := LoadLevels("../../../configs/levels.yaml", layout, cat)
	require.NoError(t, err)
	return cat, layout, set
}

func TestLoad_Configs(t *testing.T) {
	_, layout, set := loadConfigs(t)

	require.Len(t, layout.ResourceBuildings, 3)
	require.Len(t, layout.RecipeBuildings, 2)
	assert.Len(t, layout.ClientSlots, 4)
	assert.NotEmpty(t, layout.Digest)

	require.Equal(t, 3, set.Len())
	l1, ok := set.Level(0)
	require.True(t, ok)
	assert.Equal(t, "L1", l1.ID)
	assert.True(t, l1.IgnoreFatigue)
	assert.Equal(t, []string{"WOODEN_STICK"}, l1.RecipeBuildings["workbench"]["1"])

	l2, _ := set.Level(1)
	recipes, ok := l2.RecipeBuildings["workbench"]["2"]
	assert.True(t, ok)
	assert.Nil(t, recipes, "null keeps the slot's full recipe list")

	_, ok = set.Level(3)
	assert.False(t, ok)
}

func TestParseLevels_RejectsUnknownReferences(t *testing.T) {
	cat, layout, _ := loadConfigs(t)
	base := `
levels:
  - id: X
    duration: 10
    min_revenue: 1
    good_revenue: 2
    great_revenue: 3
    client_slots: [c1]
    num_clients: 1
    pool_item1: [IRON]
    patience_min: 5
    patience_max: 6
`
	_, err := ParseLevels([]byte(base), layout, cat)
	require.NoError(t, err)

	cases := map[string]string{
		"slot":     base + "    resource_buildings: { mine: [\"9\"] }\n",
		"building": base + "    resource_buildings: { quarry: [\"1\"] }\n",
		"recipe":   base + "    recipe_buildings: { forge: { \"2\": [SPEAR_FROM_POINT] } }\n",
		"disposal": base + "    disposals: [pit]\n",
	}
	for name, doc := range cases {
		_, err := ParseLevels([]byte(doc), layout, cat)
		assert.Error(t, err, name)
	}

	_, err = ParseLevels([]byte(`
levels:
  - id: X
    duration: 10
    min_revenue: 1
    good_revenue: 2
    great_revenue: 3
    client_slots: [c1]
    num_clients: 1
    pool_item1: [GOLD]
    patience_min: 5
    patience_max: 6
`), layout, cat)
	assert.ErrorContains(t, err, "GOLD")
}

func TestParseLevels_SchemaErrors(t *testing.T) {
	cat, layout, _ := loadConfigs(t)
	_, err := ParseLevels([]byte("levels:\n  - id: X\n    duration: 10\n"), layout, cat)
	assert.Error(t, err, "missing required fields")

	_, err = ParseLevels([]byte(`
levels:
  - id: X
    duration: 10
    min_revenue: 5
    good_revenue: 2
    great_revenue: 3
    client_slots: [c1]
    num_clients: 1
    pool_item1: [IRON]
    patience_min: 5
    patience_max: 6
`), layout, cat)
	assert.ErrorContains(t, err, "ascend")
}

func TestParseLayout_IntegerKeysAndUnknownItem(t *testing.T) {
	cat, _, _ := loadConfigs(t)
	_, err := ParseLayout([]byte(`
resource_buildings:
  - id: mine
    slots:
      - { id: "1", item: MITHRIL, spawn_time: 1, rect: { x: 0, y: 0, w: 1, h: 1 } }
recipe_buildings: []
client_slots: []
disposals: []
`), cat)
	assert.ErrorContains(t, err, "MITHRIL")

	m := jsonCompatible(map[any]any{1: []any{map[any]any{"a": 2}}})
	assert.Equal(t, map[string]any{"1": []any{map[string]any{"a": 2}}}, m)
}

func TestNextThreshold(t *testing.T) {
	lv := Level{MinRevenue: 10, GoodRevenue: 20, GreatRevenue: 30}
	next, ok := lv.NextThreshold(25)
	assert.True(t, ok)
	assert.Equal(t, 30, next)

	next, _ = lv.NextThreshold(0)
	assert.Equal(t, 10, next)

	_, ok = lv.NextThreshold(30)
	assert.False(t, ok, "top tier has no next threshold")
}
