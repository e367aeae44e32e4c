package week

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/savr-devTeam/savr.ai/internal/storage"
)

// StorageKey is the local-storage key holding the serialized grid.
const StorageKey = "savr.week.v1"

// Observer is notified with the committed grid after it has been persisted.
// Observers must not mutate the store they are registered on.
type Observer func(Grid)

// Store owns the canonical grid of one open board.
type Store struct {
	// dispatchMu spans a commit and its notifications, so observers see
	// commits in the order they were made.
	dispatchMu sync.Mutex

	mu        sync.Mutex
	grid      Grid
	storage   storage.Storage
	observers map[int]Observer
	nextObsID int
}

// NewStore creates a Store and loads any previously persisted grid.
func NewStore(s storage.Storage) *Store {
	st := &Store{
		storage:   s,
		observers: make(map[int]Observer),
	}
	st.LoadInitial()
	return st
}

// LoadInitial reloads the grid from storage. A missing, unreadable or
// malformed value yields an empty grid.
func (s *Store) LoadInitial() Grid {
	g := s.readPersisted()

	s.mu.Lock()
	s.grid = g
	s.mu.Unlock()
	return g
}

func (s *Store) readPersisted() Grid {
	raw, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		log.Printf("week: failed to read persisted grid: %v", err)
		return Empty()
	}
	if !ok {
		return Empty()
	}

	var g Grid
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		log.Printf("week: discarding malformed persisted grid: %v", err)
		return Empty()
	}
	return g
}

// Grid returns a snapshot of the current grid. Edits to it never reach the
// store.
func (s *Store) Grid() Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Clone()
}

// OnCommit registers an observer for local mutations and returns a function
// that removes it.
func (s *Store) OnCommit(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// PlaceSuggestion overwrites (day, slot) with a copy of card. Whatever was
// there before is discarded.
func (s *Store) PlaceSuggestion(day int, slot Slot, card MealCard) (Grid, error) {
	if err := checkLocation(day, slot); err != nil {
		return s.Grid(), err
	}
	return s.commit(func(g *Grid) {
		g[day].set(slot, card.Clone())
	}, false), nil
}

// MoveOrSwap exchanges the contents of two cells. An empty destination turns
// the exchange into a move; identical locations are a no-op.
func (s *Store) MoveOrSwap(fromDay int, fromSlot Slot, toDay int, toSlot Slot) (Grid, error) {
	if err := checkLocation(fromDay, fromSlot); err != nil {
		return s.Grid(), err
	}
	if err := checkLocation(toDay, toSlot); err != nil {
		return s.Grid(), err
	}
	if fromDay == toDay && fromSlot == toSlot {
		return s.Grid(), nil
	}
	return s.commit(func(g *Grid) {
		src := g[fromDay].Get(fromSlot)
		dst := g[toDay].Get(toSlot)
		g[toDay].set(toSlot, src)
		g[fromDay].set(fromSlot, dst)
	}, false), nil
}

// ClearSlot empties (day, slot).
func (s *Store) ClearSlot(day int, slot Slot) (Grid, error) {
	if err := checkLocation(day, slot); err != nil {
		return s.Grid(), err
	}
	return s.commit(func(g *Grid) {
		g[day].set(slot, nil)
	}, false), nil
}

// ClearAll empties every slot and removes the persisted grid, so the next
// LoadInitial starts fresh instead of reading an all-empty week.
func (s *Store) ClearAll() Grid {
	return s.commit(func(g *Grid) {
		*g = Empty()
	}, true)
}

// Apply replaces the whole grid with one received from another instance. It
// persists but does not notify commit observers, so updates are not echoed.
// An all-empty grid removes the persisted key, as ClearAll on the sender did
// for the storage both share.
func (s *Store) Apply(g Grid) Grid {
	g = g.Clone()
	s.mu.Lock()
	s.grid = g
	s.persistLocked(g.IsEmpty())
	s.mu.Unlock()
	return g.Clone()
}

func (s *Store) commit(mutate func(*Grid), remove bool) Grid {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next := s.grid
	mutate(&next)
	s.grid = next
	s.persistLocked(remove)
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next.Clone())
	}
	return next.Clone()
}

// persistLocked writes or removes the grid. Failures are logged only; the
// in-memory grid stays authoritative.
func (s *Store) persistLocked(remove bool) {
	if remove {
		if err := s.storage.Remove(StorageKey); err != nil {
			log.Printf("week: failed to remove persisted grid: %v", err)
		}
		return
	}

	data, err := json.Marshal(s.grid)
	if err != nil {
		log.Printf("week: failed to encode grid: %v", err)
		return
	}
	if err := s.storage.Set(StorageKey, string(data)); err != nil {
		log.Printf("week: failed to persist grid: %v", err)
	}
}

func checkLocation(day int, slot Slot) error {
	if !ValidDay(day) {
		return ErrInvalidDay
	}
	if !slot.Valid() {
		return ErrInvalidSlot
	}
	return nil
}
