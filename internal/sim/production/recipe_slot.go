package production

import (
	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/geom"
)

// RecipeOption is a recipe a slot can craft and how long it takes there.
type RecipeOption struct {
	Recipe string
	Time   float64
}

type RecipeSlotConfig struct {
	ID      string
	Recipes []RecipeOption
	Rect    geom.Rect
}

type RecipeSlot struct {
	slotCore
	cfg RecipeSlotConfig

	overrides []string
	available []RecipeOption

	recipe *catalogs.RecipeDef
	have   []string
}

func NewRecipeSlot(ref string, cfg RecipeSlotConfig, env *Env) *RecipeSlot {
	for _, o := range cfg.Recipes {
		env.Catalog.MustRecipe(o.Recipe)
	}
	return &RecipeSlot{
		slotCore: slotCore{id: ref, rect: cfg.Rect, env: env},
		cfg:      cfg,
	}
}

func (s *RecipeSlot) Config() RecipeSlotConfig { return s.cfg }

// ApplyOverrides restricts the next Load to the listed recipes. Nil keeps every allowed recipe.
func (s *RecipeSlot) ApplyOverrides(recipes []string) {
	if recipes == nil {
		s.overrides = nil
		return
	}
	s.overrides = append(make([]string, 0, len(recipes)), recipes...)
}

func (s *RecipeSlot) Load() {
	s.reset()
	s.active = true
	s.clearRecipe()

	s.available = s.available[:0]
	for _, o := range s.cfg.Recipes {
		if s.overrides == nil || contains(s.overrides, o.Recipe) {
			s.available = append(s.available, o)
		}
	}
}

func (s *RecipeSlot) Unload() {
	s.reset()
	s.clearRecipe()
	s.active = false
}

func (s *RecipeSlot) Tick(dt float64) {
	if !s.active {
		return
	}
	if s.advance(dt) {
		s.settle(s.setReady)
	}
	s.timers.Fire()
}

// ClearContents empties the slot after its output was taken.
func (s *RecipeSlot) ClearContents() {
	s.reset()
	s.clearRecipe()
}

// Available lists the recipe ids this slot can craft in the current level.
func (s *RecipeSlot) Available() []string {
	out := make([]string, 0, len(s.available))
	for _, o := range s.available {
		out = append(out, o.Recipe)
	}
	return out
}

func (s *RecipeSlot) MissingRecipe() bool { return s.recipe == nil }

func (s *RecipeSlot) Recipe() (catalogs.RecipeDef, bool) {
	if s.recipe == nil {
		return catalogs.RecipeDef{}, false
	}
	return *s.recipe, true
}

// Requirements returns the ingredients accumulated for the committed recipe.
func (s *RecipeSlot) Requirements() []string {
	return append([]string(nil), s.have...)
}

// FindRecipeUsingItem picks the recipe a delivered item would start.
// A slot holding output only accepts recipes that reuse that output; otherwise the recipe
// with the fewest requirements wins and declaration order breaks ties.
func (s *RecipeSlot) FindRecipeUsingItem(item string) (catalogs.RecipeDef, bool) {
	if s.status == Busy {
		return catalogs.RecipeDef{}, false
	}
	pendingPickup := s.status == ItemReady && s.item != ""

	var best catalogs.RecipeDef
	found := false
	for _, o := range s.available {
		r := s.env.Catalog.MustRecipe(o.Recipe)
		if !r.Requires(item) {
			continue
		}
		if pendingPickup {
			if r.Requires(s.item) {
				return r, true
			}
			continue
		}
		if !found || r.ShorterThan(best) {
			best, found = r, true
		}
	}
	return best, found
}

func (s *RecipeSlot) ExistsRecipeWithItem(item string) bool {
	for _, o := range s.available {
		if s.env.Catalog.MustRecipe(o.Recipe).Requires(item) {
			return true
		}
	}
	return false
}

// NeedsItem reports whether the committed recipe still misses item.
func (s *RecipeSlot) NeedsItem(item string) bool {
	if s.recipe == nil {
		return false
	}
	return count(s.recipe.Requirements, item) > count(s.have, item)
}

// SetActiveRecipe commits r and adds item to it. It refuses the slot's own ready output so
// just-produced content is never fed back into itself.
func (s *RecipeSlot) SetActiveRecipe(r catalogs.RecipeDef, item string) bool {
	if s.item != "" && s.item == item {
		return false
	}
	if s.status == Busy || !r.Requires(item) {
		return false
	}
	opt, ok := s.option(r.ID)
	if !ok {
		return false
	}

	held := s.item
	s.reset()
	s.recipe = &r
	s.have = s.have[:0]
	s.duration = opt.Time
	if held != "" && r.Requires(held) {
		s.have = append(s.have, held)
	}
	return s.AddRequirement(item)
}

// AddRequirement accepts item when the committed recipe still needs it. Completing the set
// starts crafting after the settle delay.
func (s *RecipeSlot) AddRequirement(item string) bool {
	if !s.NeedsItem(item) {
		return false
	}
	s.have = append(s.have, item)
	if s.covered() {
		s.settle(s.prepareBusy)
	}
	return true
}

func (s *RecipeSlot) covered() bool {
	for _, req := range s.recipe.Requirements {
		if count(s.have, req) < count(s.recipe.Requirements, req) {
			return false
		}
	}
	return true
}

func (s *RecipeSlot) prepareBusy() {
	if s.recipe == nil {
		return
	}
	if s.duration > 0 {
		s.status = Busy
		s.elapsed = 0
		return
	}
	s.setReady()
}

func (s *RecipeSlot) setReady() {
	if s.recipe == nil {
		return
	}
	s.item = s.recipe.Output
	s.status = ItemReady
	s.elapsed = 0
	s.clearRecipe()
}

func (s *RecipeSlot) clearRecipe() {
	s.recipe = nil
	s.have = s.have[:0]
	s.duration = 0
}

func (s *RecipeSlot) option(recipeID string) (RecipeOption, bool) {
	for _, o := range s.available {
		if o.Recipe == recipeID {
			return o, true
		}
	}
	return RecipeOption{}, false
}

func contains(list []string, v string) bool {
	return count(list, v) > 0
}

func count(list []string, v string) int {
	n := 0
	for _, x := range list {
		if x == v {
			n++
		}
	}
	return n
}
