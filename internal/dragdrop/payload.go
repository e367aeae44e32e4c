// Package dragdrop decodes drag payloads and routes drops onto the week grid.
package dragdrop

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/savr-devTeam/savr.ai/internal/week"
)

const (
	KindSuggestion = "suggestion"
	KindSlot       = "slot"
)

// ErrMalformedPayload covers every payload that cannot be routed.
var ErrMalformedPayload = errors.New("malformed drag payload")

// Payload is either a Suggestion or a SlotMove.
type Payload interface {
	kind() string
}

// Suggestion is a card dragged out of the suggestion list.
type Suggestion struct {
	Card week.MealCard
}

// SlotMove is a card dragged out of an occupied grid cell.
type SlotMove struct {
	Card     week.MealCard
	FromDay  int
	FromSlot week.Slot
}

func (Suggestion) kind() string { return KindSuggestion }
func (SlotMove) kind() string   { return KindSlot }

type wireTag struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
}

type wirePayload struct {
	Type     string         `json:"type,omitempty"`
	Meal     *week.MealCard `json:"meal,omitempty"`
	Card     *week.MealCard `json:"card,omitempty"`
	FromDay  *int           `json:"fromDay,omitempty"`
	FromSlot string         `json:"fromSlot,omitempty"`
}

// Decode parses the JSON carried by a drag gesture. Older clients sent a bare
// card with no tag; that form decodes as a Suggestion.
func Decode(raw []byte) (Payload, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, ErrMalformedPayload
	}
	var t wireTag
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, ErrMalformedPayload
	}
	tag := t.Type
	if tag == "" {
		tag = t.Kind
	}
	if tag == "" {
		var bare week.MealCard
		if err := json.Unmarshal(raw, &bare); err != nil || !validCard(&bare) {
			return nil, ErrMalformedPayload
		}
		return Suggestion{Card: bare}, nil
	}

	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, ErrMalformedPayload
	}
	card := w.Meal
	if card == nil {
		card = w.Card
	}

	switch tag {
	case KindSuggestion:
		if !validCard(card) {
			return nil, ErrMalformedPayload
		}
		return Suggestion{Card: *card}, nil
	case KindSlot:
		if w.FromDay == nil || !week.ValidDay(*w.FromDay) {
			return nil, ErrMalformedPayload
		}
		slot, err := week.ParseSlot(w.FromSlot)
		if err != nil {
			return nil, ErrMalformedPayload
		}
		m := SlotMove{FromDay: *w.FromDay, FromSlot: slot}
		if card != nil {
			m.Card = *card
		}
		return m, nil
	}
	return nil, ErrMalformedPayload
}

// Encode produces the wire form of p, as a drag source would set it.
func Encode(p Payload) ([]byte, error) {
	switch v := p.(type) {
	case Suggestion:
		card := v.Card
		return json.Marshal(wirePayload{Type: KindSuggestion, Meal: &card})
	case SlotMove:
		card := v.Card
		day := v.FromDay
		return json.Marshal(wirePayload{Type: KindSlot, Meal: &card, FromDay: &day, FromSlot: string(v.FromSlot)})
	}
	return nil, ErrMalformedPayload
}

func validCard(c *week.MealCard) bool {
	return c != nil && strings.TrimSpace(c.Title) != ""
}
