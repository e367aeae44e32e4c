package week

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// DaysPerWeek is the fixed length of a WeekGrid.
const DaysPerWeek = 7

// DayLabels maps a day index to its display label. The order never changes.
var DayLabels = [DaysPerWeek]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Slot is one of the three meal slots of a day.
type Slot string

const (
	Breakfast Slot = "Breakfast"
	Lunch     Slot = "Lunch"
	Dinner    Slot = "Dinner"
)

// Slots lists the slots in display order.
var Slots = [3]Slot{Breakfast, Lunch, Dinner}

// Grid errors.
var (
	ErrInvalidDay     = errors.New("day must be between 0 and 6")
	ErrInvalidSlot    = errors.New("slot must be Breakfast, Lunch or Dinner")
	ErrMalformedGrid  = errors.New("week must be an array of exactly 7 days")
	ErrMalformedEntry = errors.New("malformed day entry")
)

// Valid reports whether s is one of the three fixed slots.
func (s Slot) Valid() bool {
	return s == Breakfast || s == Lunch || s == Dinner
}

// ParseSlot validates a slot name.
func ParseSlot(name string) (Slot, error) {
	s := Slot(name)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, name)
	}
	return s, nil
}

// ValidDay reports whether day is a valid grid index.
func ValidDay(day int) bool {
	return day >= 0 && day < DaysPerWeek
}

// MealCard is a displayable meal suggestion or placement. Cards carry no
// identity; two equal cards in two slots are two independent copies.
type MealCard struct {
	Title       string   `json:"title"`
	Meal        string   `json:"meal,omitempty"`
	Calories    float64  `json:"cals"`
	Protein     float64  `json:"p"`
	Carbs       float64  `json:"c"`
	Fat         float64  `json:"f"`
	Image       string   `json:"img,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	PrepTime    string   `json:"prepTime,omitempty"`
}

// Clone returns a deep copy of the card.
func (c MealCard) Clone() *MealCard {
	c.Ingredients = slices.Clone(c.Ingredients)
	return &c
}

// DayPlan holds the three slots of one day. A nil card is an empty slot.
type DayPlan struct {
	Breakfast *MealCard `json:"Breakfast"`
	Lunch     *MealCard `json:"Lunch"`
	Dinner    *MealCard `json:"Dinner"`
}

// Get returns the card in slot s, or nil.
func (d DayPlan) Get(s Slot) *MealCard {
	switch s {
	case Breakfast:
		return d.Breakfast
	case Lunch:
		return d.Lunch
	case Dinner:
		return d.Dinner
	}
	return nil
}

func (d *DayPlan) set(s Slot, c *MealCard) {
	switch s {
	case Breakfast:
		d.Breakfast = c
	case Lunch:
		d.Lunch = c
	case Dinner:
		d.Dinner = c
	}
}

// Grid is the 7 x 3 planning matrix. The array type fixes its shape.
type Grid [DaysPerWeek]DayPlan

// Empty returns a grid with every slot empty.
func Empty() Grid {
	return Grid{}
}

// Get returns the card at (day, slot).
func (g Grid) Get(day int, slot Slot) (*MealCard, error) {
	if !ValidDay(day) {
		return nil, ErrInvalidDay
	}
	if !slot.Valid() {
		return nil, ErrInvalidSlot
	}
	return g[day].Get(slot), nil
}

// Clone returns a copy of g that shares no cards with it.
func (g Grid) Clone() Grid {
	out := g
	for i := range out {
		for _, s := range Slots {
			if c := out[i].Get(s); c != nil {
				out[i].set(s, c.Clone())
			}
		}
	}
	return out
}

// IsEmpty reports whether all 21 slots are empty.
func (g Grid) IsEmpty() bool {
	return g.Filled() == 0
}

// Filled counts the occupied slots.
func (g Grid) Filled() int {
	n := 0
	for _, d := range g {
		for _, s := range Slots {
			if d.Get(s) != nil {
				n++
			}
		}
	}
	return n
}

// Ingredients returns every ingredient string across all slots, in day and
// slot order, without normalisation.
func (g Grid) Ingredients() []string {
	var out []string
	for _, d := range g {
		for _, s := range Slots {
			if c := d.Get(s); c != nil {
				out = append(out, c.Ingredients...)
			}
		}
	}
	return out
}

// UnmarshalJSON accepts only an array of exactly seven day objects. Anything
// else leaves the grid untouched and returns an error, so callers never see a
// partially decoded week.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var days []json.RawMessage
	if err := json.Unmarshal(data, &days); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedGrid, err)
	}
	if len(days) != DaysPerWeek {
		return fmt.Errorf("%w: got %d entries", ErrMalformedGrid, len(days))
	}

	var next Grid
	for i, raw := range days {
		if err := json.Unmarshal(raw, &next[i]); err != nil {
			return fmt.Errorf("%w %d: %v", ErrMalformedEntry, i, err)
		}
	}
	*g = next
	return nil
}
