// Package pantry keeps the user's ordered list of on-hand ingredients.
package pantry

import (
	"encoding/json"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/savr-devTeam/savr.ai/internal/storage"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

const (
	// ItemsKey holds the JSON list of pantry items.
	ItemsKey = "savr_pantry_items"
	// SignatureKey holds the ingredient signature of the last synced plan.
	SignatureKey = "mealPlan.ingredients.sig"
)

// Source records where an item came from.
type Source string

const (
	SourceManual    Source = "manual"
	SourceGenerated Source = "generated"
)

// Item is one pantry entry.
type Item struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
	Source  Source `json:"source"`
}

// Store holds the pantry list and persists it after every change.
type Store struct {
	mu      sync.Mutex
	items   []Item
	storage storage.Storage
	newID   func() string
}

// NewStore creates a Store and loads the persisted list.
func NewStore(s storage.Storage) *Store {
	st := &Store{storage: s, newID: uuid.NewString}
	st.Load()
	return st
}

// Load re-reads the persisted list. It accepts both the record form and the
// older flat list of strings; anything else yields an empty pantry.
func (s *Store) Load() []Item {
	items := s.readPersisted()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	return slices.Clone(s.items)
}

func (s *Store) readPersisted() []Item {
	raw, ok, err := s.storage.Get(ItemsKey)
	if err != nil {
		log.Printf("pantry: failed to read items: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		return items
	}

	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		log.Printf("pantry: discarding malformed items: %v", err)
		return nil
	}
	items = make([]Item, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			items = append(items, Item{ID: s.newID(), Text: l, Source: SourceManual})
		}
	}
	return items
}

// Items returns a copy of the list.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Labels returns the item texts in list order.
func (s *Store) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.items))
	for i, it := range s.items {
		out[i] = it.Text
	}
	return out
}

// Add prepends a trimmed label. Blank labels are ignored.
func (s *Store) Add(label string) ([]Item, bool) {
	label = strings.TrimSpace(label)

	s.mu.Lock()
	defer s.mu.Unlock()
	if label == "" {
		return slices.Clone(s.items), false
	}
	item := Item{ID: s.newID(), Text: label, Source: SourceManual}
	s.items = append([]Item{item}, s.items...)
	s.persistLocked()
	return slices.Clone(s.items), true
}

// Remove deletes the item at index. Out-of-range indices are ignored.
func (s *Store) Remove(index int) ([]Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return slices.Clone(s.items), false
	}
	s.items = slices.Delete(s.items, index, index+1)
	s.persistLocked()
	return slices.Clone(s.items), true
}

// Toggle flips the checked flag of the item at index.
func (s *Store) Toggle(index int) ([]Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return slices.Clone(s.items), false
	}
	s.items[index].Checked = !s.items[index].Checked
	s.persistLocked()
	return slices.Clone(s.items), true
}

// ClearAll empties the pantry and forgets the plan signature so the next
// auto-sync repopulates it.
func (s *Store) ClearAll() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persistLocked()
	if err := s.storage.Remove(SignatureKey); err != nil {
		log.Printf("pantry: failed to remove signature: %v", err)
	}
	return nil
}

// AutoSyncFromPlan appends the plan's ingredients that are not yet in the
// pantry. It does nothing when the plan's ingredient signature matches the
// last one synced. It reports whether the signature changed.
func (s *Store) AutoSyncFromPlan(g week.Grid) bool {
	sig := Signature(g)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, _, err := s.storage.Get(SignatureKey)
	if err != nil {
		log.Printf("pantry: failed to read signature: %v", err)
	}
	if sig == prev {
		return false
	}

	have := make(map[string]struct{}, len(s.items))
	for _, it := range s.items {
		have[normalize(it.Text)] = struct{}{}
	}
	added := 0
	for _, ing := range g.Ingredients() {
		key := normalize(ing)
		if key == "" {
			continue
		}
		if _, ok := have[key]; ok {
			continue
		}
		have[key] = struct{}{}
		s.items = append(s.items, Item{ID: s.newID(), Text: strings.TrimSpace(ing), Source: SourceGenerated})
		added++
	}
	if added > 0 {
		s.persistLocked()
	}
	if err := s.storage.Set(SignatureKey, sig); err != nil {
		log.Printf("pantry: failed to persist signature: %v", err)
	}
	return true
}

// Signature is the sorted, lower-cased, de-duplicated set of ingredients of
// every slot, joined with "|".
func Signature(g week.Grid) string {
	set := make(map[string]struct{})
	for _, ing := range g.Ingredients() {
		if key := normalize(ing); key != "" {
			set[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *Store) persistLocked() {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		log.Printf("pantry: failed to encode items: %v", err)
		return
	}
	if err := s.storage.Set(ItemsKey, string(data)); err != nil {
		log.Printf("pantry: failed to persist items: %v", err)
	}
}
