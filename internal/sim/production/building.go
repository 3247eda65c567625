package production

import (
	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/geom"
)

// Ref is the handle a slot is addressed by outside its building.
func Ref(buildingID, slotID string) string { return buildingID + "/" + slotID }

type ResourceBuilding struct {
	id     string
	slots  []*ResourceSlot
	byID   map[string]*ResourceSlot
	active []*ResourceSlot
}

func NewResourceBuilding(id string, cfgs []ResourceSlotConfig, env *Env) *ResourceBuilding {
	b := &ResourceBuilding{id: id, byID: map[string]*ResourceSlot{}}
	for _, cfg := range cfgs {
		s := NewResourceSlot(Ref(id, cfg.ID), cfg, env)
		b.slots = append(b.slots, s)
		b.byID[cfg.ID] = s
	}
	return b
}

func (b *ResourceBuilding) ID() string { return b.id }

// LoadBuilding activates the listed slots and unloads the rest.
func (b *ResourceBuilding) LoadBuilding(slotIDs []string) {
	b.active = b.active[:0]
	for _, s := range b.slots {
		if contains(slotIDs, s.cfg.ID) {
			s.Load()
			b.active = append(b.active, s)
		} else {
			s.Unload()
		}
	}
}

func (b *ResourceBuilding) Unload() {
	for _, s := range b.slots {
		s.Unload()
	}
	b.active = b.active[:0]
}

func (b *ResourceBuilding) UpdateGame(dt float64) {
	for _, s := range b.active {
		s.Tick(dt)
	}
}

func (b *ResourceBuilding) FindSlotAt(pos geom.Vec2) *ResourceSlot {
	for _, s := range b.active {
		if s.Contains(pos) {
			return s
		}
	}
	return nil
}

// Slot looks a slot up by its building-local id.
func (b *ResourceBuilding) Slot(id string) *ResourceSlot { return b.byID[id] }

func (b *ResourceBuilding) Slots() []*ResourceSlot { return b.slots }

func (b *ResourceBuilding) ActiveSlots() []*ResourceSlot { return b.active }

type RecipeBuilding struct {
	id     string
	slots  []*RecipeSlot
	byID   map[string]*RecipeSlot
	active []*RecipeSlot
}

func NewRecipeBuilding(id string, cfgs []RecipeSlotConfig, env *Env) *RecipeBuilding {
	b := &RecipeBuilding{id: id, byID: map[string]*RecipeSlot{}}
	for _, cfg := range cfgs {
		s := NewRecipeSlot(Ref(id, cfg.ID), cfg, env)
		b.slots = append(b.slots, s)
		b.byID[cfg.ID] = s
	}
	return b
}

func (b *RecipeBuilding) ID() string { return b.id }

// LoadBuilding activates the slots present in overrides (slot id -> obtainable recipes).
// A nil recipe list keeps all of a slot's allowed recipes.
func (b *RecipeBuilding) LoadBuilding(overrides map[string][]string) {
	b.active = b.active[:0]
	for _, s := range b.slots {
		recipes, ok := overrides[s.cfg.ID]
		if !ok {
			s.Unload()
			continue
		}
		s.ApplyOverrides(recipes)
		s.Load()
		b.active = append(b.active, s)
	}
}

func (b *RecipeBuilding) Unload() {
	for _, s := range b.slots {
		s.Unload()
	}
	b.active = b.active[:0]
}

func (b *RecipeBuilding) UpdateGame(dt float64) {
	for _, s := range b.active {
		s.Tick(dt)
	}
}

func (b *RecipeBuilding) FindSlotAt(pos geom.Vec2) *RecipeSlot {
	for _, s := range b.active {
		if s.Contains(pos) {
			return s
		}
	}
	return nil
}

// FindSlotAtWithRequirement hit-tests the first active slot at pos and asks it for a recipe
// using item. A slot without a matching recipe counts as a miss.
func (b *RecipeBuilding) FindSlotAtWithRequirement(pos geom.Vec2, item string) (*RecipeSlot, catalogs.RecipeDef, bool) {
	s := b.FindSlotAt(pos)
	if s == nil {
		return nil, catalogs.RecipeDef{}, false
	}
	r, ok := s.FindRecipeUsingItem(item)
	if !ok {
		return nil, catalogs.RecipeDef{}, false
	}
	return s, r, true
}

func (b *RecipeBuilding) Slot(id string) *RecipeSlot { return b.byID[id] }

func (b *RecipeBuilding) Slots() []*RecipeSlot { return b.slots }

func (b *RecipeBuilding) ActiveSlots() []*RecipeSlot { return b.active }
