package pantry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savr-devTeam/savr.ai/internal/storage"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

func texts(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}

func TestAddRemoveToggle(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := NewStore(mem)

	_, ok := s.Add("   ")
	assert.False(t, ok, "blank labels are ignored")

	s.Add(" Rice ")
	s.Add("Beans")
	items, ok := s.Add("Rice")
	require.True(t, ok)
	assert.Equal(t, []string{"Rice", "Beans", "Rice"}, texts(items), "most recent first, duplicates allowed")
	assert.Equal(t, SourceManual, items[0].Source)
	assert.NotEmpty(t, items[0].ID)

	items, ok = s.Toggle(1)
	require.True(t, ok)
	assert.True(t, items[1].Checked)

	items, ok = s.Remove(0)
	require.True(t, ok)
	assert.Equal(t, []string{"Beans", "Rice"}, texts(items))

	_, ok = s.Remove(5)
	assert.False(t, ok)

	reloaded := NewStore(mem).Items()
	assert.Equal(t, []string{"Beans", "Rice"}, texts(reloaded))
	assert.True(t, reloaded[0].Checked)
}

func TestLoadLegacyLabels(t *testing.T) {
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(ItemsKey, `["Eggs"," Milk ",""]`))

	s := NewStore(mem)
	assert.Equal(t, []string{"Eggs", "Milk"}, s.Labels())
}

func TestLoadMalformed(t *testing.T) {
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(ItemsKey, `{not json`))
	assert.Empty(t, NewStore(mem).Items())
}

func gridWith(ingredients ...[]string) week.Grid {
	var g week.Grid
	for i, ings := range ingredients {
		g[i].Breakfast = &week.MealCard{Title: "Meal", Ingredients: ings}
	}
	return g
}

func TestAutoSyncDeduplicates(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := NewStore(mem)

	g := gridWith([]string{"Egg", "egg"}, []string{" Spinach "})
	require.True(t, s.AutoSyncFromPlan(g))

	var lowered []string
	for _, txt := range s.Labels() {
		lowered = append(lowered, strings.ToLower(txt))
	}
	assert.ElementsMatch(t, []string{"egg", "spinach"}, lowered)
	for _, it := range s.Items() {
		assert.Equal(t, SourceGenerated, it.Source)
	}

	sig, ok, _ := mem.Get(SignatureKey)
	require.True(t, ok)
	assert.Equal(t, "egg|spinach", sig)

	assert.False(t, s.AutoSyncFromPlan(g), "same signature must not resync")
}

func TestAutoSyncSkipsExistingItems(t *testing.T) {
	s := NewStore(storage.NewMemoryStore())
	s.Add("EGG")

	s.AutoSyncFromPlan(gridWith([]string{"egg", "Tomato"}))
	assert.Equal(t, []string{"EGG", "Tomato"}, s.Labels())
}

func TestClearAllResetsSignature(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := NewStore(mem)
	g := gridWith([]string{"Oats"})
	s.AutoSyncFromPlan(g)

	assert.Empty(t, s.ClearAll())
	_, ok, _ := mem.Get(SignatureKey)
	assert.False(t, ok)

	require.True(t, s.AutoSyncFromPlan(g), "cleared pantry must repopulate from the same plan")
	assert.Equal(t, []string{"Oats"}, s.Labels())
}

func TestSignature(t *testing.T) {
	g := gridWith([]string{"b", " A "}, []string{"a", ""})
	assert.Equal(t, "a|b", Signature(g))
	assert.Equal(t, "", Signature(week.Empty()))
}
