package week

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savr-devTeam/savr.ai/internal/storage"
)

var (
	oatmeal = MealCard{Title: "Oatmeal", Meal: "Breakfast", Calories: 350, Protein: 12, Carbs: 54, Fat: 7, Ingredients: []string{"Oats", "Milk"}}
	salad   = MealCard{Title: "Salad", Meal: "Lunch", Calories: 420, Protein: 18, Carbs: 30, Fat: 22}
	salmon  = MealCard{Title: "Baked Salmon", Meal: "Dinner", Calories: 520, Protein: 35, Carbs: 28, Fat: 26}
)

type failingStorage struct{}

func (failingStorage) Get(string) (string, bool, error) { return "", false, errors.New("unavailable") }
func (failingStorage) Set(string, string) error         { return errors.New("quota exceeded") }
func (failingStorage) Remove(string) error              { return errors.New("unavailable") }

func assertShape(t *testing.T, g Grid) {
	t.Helper()
	data, err := json.Marshal(g)
	require.NoError(t, err)

	var days []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &days))
	require.Len(t, days, DaysPerWeek)
	for _, d := range days {
		require.Len(t, d, 3)
		for _, s := range Slots {
			_, ok := d[string(s)]
			require.True(t, ok, "missing slot %s", s)
		}
	}
}

func TestLoadInitial(t *testing.T) {
	tests := []struct {
		name   string
		stored *string
	}{
		{name: "Missing", stored: nil},
		{name: "InvalidJSON", stored: ptr("{not json")},
		{name: "WrongLength", stored: ptr(`[{"Breakfast":null,"Lunch":null,"Dinner":null}]`)},
		{name: "NotArray", stored: ptr(`{"Breakfast":null}`)},
		{name: "SlotIsArray", stored: ptr(`[{"Breakfast":[]},{},{},{},{},{},{}]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storage.NewMemoryStore()
			if tt.stored != nil {
				require.NoError(t, mem.Set(StorageKey, *tt.stored))
			}
			g := NewStore(mem).Grid()
			assert.True(t, g.IsEmpty())
			assertShape(t, g)
		})
	}

	t.Run("Valid", func(t *testing.T) {
		mem := storage.NewMemoryStore()
		first := NewStore(mem)
		_, err := first.PlaceSuggestion(2, Dinner, salmon)
		require.NoError(t, err)

		reloaded := NewStore(mem).Grid()
		require.NotNil(t, reloaded[2].Dinner)
		assert.Equal(t, "Baked Salmon", reloaded[2].Dinner.Title)
		assert.Equal(t, 1, reloaded.Filled())
	})

	t.Run("StorageUnavailable", func(t *testing.T) {
		g := NewStore(failingStorage{}).Grid()
		assert.True(t, g.IsEmpty())
	})
}

func TestPlaceSuggestion(t *testing.T) {
	s := NewStore(storage.NewMemoryStore())

	g, err := s.PlaceSuggestion(0, Breakfast, oatmeal)
	require.NoError(t, err)
	require.NotNil(t, g[0].Breakfast)
	assert.Equal(t, "Oatmeal", g[0].Breakfast.Title)
	assert.Equal(t, 1, g.Filled(), "all other 20 slots must stay empty")

	t.Run("OverwriteDiscardsPrevious", func(t *testing.T) {
		g, err := s.PlaceSuggestion(0, Breakfast, salad)
		require.NoError(t, err)
		assert.Equal(t, "Salad", g[0].Breakfast.Title)
		for _, d := range g {
			for _, slot := range Slots {
				if c := d.Get(slot); c != nil {
					assert.NotEqual(t, "Oatmeal", c.Title)
				}
			}
		}
	})

	t.Run("CopiesAreIndependent", func(t *testing.T) {
		card := oatmeal
		card.Ingredients = []string{"Oats"}
		_, err := s.PlaceSuggestion(1, Breakfast, card)
		require.NoError(t, err)
		g, err := s.PlaceSuggestion(2, Breakfast, card)
		require.NoError(t, err)

		g[1].Breakfast.Ingredients[0] = "Changed"
		card.Ingredients[0] = "Mutated"
		assert.Equal(t, "Oats", s.Grid()[2].Breakfast.Ingredients[0])
	})

	t.Run("InvalidLocation", func(t *testing.T) {
		_, err := s.PlaceSuggestion(7, Lunch, salad)
		assert.ErrorIs(t, err, ErrInvalidDay)
		_, err = s.PlaceSuggestion(0, Slot("Brunch"), salad)
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})
}

func TestMoveOrSwap(t *testing.T) {
	t.Run("Swap", func(t *testing.T) {
		s := NewStore(storage.NewMemoryStore())
		_, _ = s.PlaceSuggestion(0, Breakfast, oatmeal)
		_, _ = s.PlaceSuggestion(1, Lunch, salad)

		g, err := s.MoveOrSwap(0, Breakfast, 1, Lunch)
		require.NoError(t, err)
		assert.Equal(t, "Salad", g[0].Breakfast.Title)
		assert.Equal(t, "Oatmeal", g[1].Lunch.Title)
	})

	t.Run("MoveIntoEmpty", func(t *testing.T) {
		s := NewStore(storage.NewMemoryStore())
		_, _ = s.PlaceSuggestion(3, Dinner, salmon)

		g, err := s.MoveOrSwap(3, Dinner, 5, Lunch)
		require.NoError(t, err)
		assert.Nil(t, g[3].Dinner)
		assert.Equal(t, "Baked Salmon", g[5].Lunch.Title)
	})

	t.Run("SwapIsItsOwnInverse", func(t *testing.T) {
		s := NewStore(storage.NewMemoryStore())
		_, _ = s.PlaceSuggestion(0, Breakfast, oatmeal)
		_, _ = s.PlaceSuggestion(6, Dinner, salmon)
		before := s.Grid()

		_, err := s.MoveOrSwap(0, Breakfast, 6, Dinner)
		require.NoError(t, err)
		after, err := s.MoveOrSwap(6, Dinner, 0, Breakfast)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("SelfMoveIsNoop", func(t *testing.T) {
		mem := storage.NewMemoryStore()
		s := NewStore(mem)
		_, _ = s.PlaceSuggestion(4, Lunch, salad)
		before := s.Grid()
		commits := 0
		s.OnCommit(func(Grid) { commits++ })

		g, err := s.MoveOrSwap(4, Lunch, 4, Lunch)
		require.NoError(t, err)
		assert.Equal(t, before, g)
		assert.Zero(t, commits)
	})

	t.Run("InvalidLocation", func(t *testing.T) {
		s := NewStore(storage.NewMemoryStore())
		_, err := s.MoveOrSwap(-1, Lunch, 0, Lunch)
		assert.ErrorIs(t, err, ErrInvalidDay)
		_, err = s.MoveOrSwap(0, Lunch, 0, Slot("Snack"))
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})
}

func TestClearSlotAndClearAll(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := NewStore(mem)
	_, _ = s.PlaceSuggestion(0, Breakfast, oatmeal)
	_, _ = s.PlaceSuggestion(1, Lunch, salad)

	g, err := s.ClearSlot(0, Breakfast)
	require.NoError(t, err)
	assert.Nil(t, g[0].Breakfast)
	assert.Equal(t, 1, g.Filled())

	g = s.ClearAll()
	assert.True(t, g.IsEmpty())
	assertShape(t, g)

	_, ok, _ := mem.Get(StorageKey)
	assert.False(t, ok, "clear all must remove the persisted grid")
	assert.True(t, NewStore(mem).LoadInitial().IsEmpty())
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	s := NewStore(failingStorage{})
	g, err := s.PlaceSuggestion(0, Lunch, salad)
	require.NoError(t, err)
	assert.Equal(t, "Salad", g[0].Lunch.Title)
	assert.Equal(t, "Salad", s.Grid()[0].Lunch.Title)
}

func TestCommitObserversSeePersistedGrid(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := NewStore(mem)

	var seen []Grid
	stop := s.OnCommit(func(g Grid) {
		raw, ok, _ := mem.Get(StorageKey)
		require.True(t, ok, "grid must be persisted before observers run")
		var persisted Grid
		require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
		assert.Equal(t, g, persisted)
		seen = append(seen, g)
	})

	_, _ = s.PlaceSuggestion(0, Dinner, salmon)
	_, _ = s.ClearSlot(0, Dinner)
	stop()
	_, _ = s.PlaceSuggestion(1, Dinner, salmon)

	assert.Len(t, seen, 2)
}

func TestApplyDoesNotNotifyObservers(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := NewStore(mem)
	commits := 0
	s.OnCommit(func(Grid) { commits++ })

	var incoming Grid
	incoming[2].Lunch = salad.Clone()
	s.Apply(incoming)

	assert.Zero(t, commits)
	assert.Equal(t, incoming, s.Grid())
	assert.Equal(t, incoming, NewStore(mem).Grid())
}

func TestShapeInvariantUnderMutations(t *testing.T) {
	s := NewStore(storage.NewMemoryStore())
	cards := []MealCard{oatmeal, salad, salmon}
	for i := 0; i < 50; i++ {
		day := i % DaysPerWeek
		slot := Slots[i%3]
		switch i % 4 {
		case 0:
			_, _ = s.PlaceSuggestion(day, slot, cards[i%3])
		case 1:
			_, _ = s.MoveOrSwap(day, slot, (day+3)%DaysPerWeek, Slots[(i+1)%3])
		case 2:
			_, _ = s.ClearSlot((day+1)%DaysPerWeek, slot)
		case 3:
			if i%20 == 3 {
				s.ClearAll()
			}
		}
		assertShape(t, s.Grid())
	}
}

func TestApplyEmptyGridRemovesKey(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := NewStore(mem)
	_, err := s.PlaceSuggestion(4, Dinner, salmon)
	require.NoError(t, err)

	s.Apply(Empty())

	_, ok, _ := mem.Get(StorageKey)
	assert.False(t, ok, "an incoming empty week clears the shared key like ClearAll")
	assert.True(t, s.Grid().IsEmpty())
}

func TestSnapshotsDoNotAliasState(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := NewStore(mem)
	_, err := s.PlaceSuggestion(0, Lunch, salad)
	require.NoError(t, err)

	g := s.Grid()
	g[0].Lunch.Title = "Edited"
	g[0].Lunch.Ingredients = append(g[0].Lunch.Ingredients, "Croutons")
	assert.Equal(t, "Salad", s.Grid()[0].Lunch.Title)

	var incoming Grid
	incoming[1].Dinner = salmon.Clone()
	s.Apply(incoming)
	incoming[1].Dinner.Title = "Edited"
	assert.Equal(t, "Baked Salmon", s.Grid()[1].Dinner.Title)
	assert.Equal(t, "Baked Salmon", NewStore(mem).Grid()[1].Dinner.Title)
}

func TestObserversSeeCommitsInOrder(t *testing.T) {
	s := NewStore(storage.NewMemoryStore())
	sibling := NewStore(storage.NewMemoryStore())

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		calls int
		seen  []Grid
	)
	s.OnCommit(func(g Grid) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
		sibling.Apply(g)
		mu.Lock()
		seen = append(seen, g)
		mu.Unlock()
	})

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = s.PlaceSuggestion(0, Breakfast, oatmeal)
	}()
	<-entered

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, _ = s.PlaceSuggestion(0, Lunch, salad)
	}()

	select {
	case <-secondDone:
		t.Fatal("a later commit was published before an earlier one")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-firstDone
	<-secondDone

	require.Len(t, seen, 2)
	assert.Nil(t, seen[0][0].Lunch)
	require.NotNil(t, seen[1][0].Lunch)
	assert.Equal(t, s.Grid(), sibling.Grid(), "the sibling ends on the latest grid")
}

func ptr(s string) *string { return &s }
