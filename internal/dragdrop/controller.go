package dragdrop

import (
	"log"

	"github.com/savr-devTeam/savr.ai/internal/week"
)

// Board is the subset of week.Store a drop needs.
type Board interface {
	Grid() week.Grid
	PlaceSuggestion(day int, slot week.Slot, card week.MealCard) (week.Grid, error)
	MoveOrSwap(fromDay int, fromSlot week.Slot, toDay int, toSlot week.Slot) (week.Grid, error)
}

// Controller turns drops into board operations.
type Controller struct {
	board Board
}

// NewController creates a Controller for board.
func NewController(board Board) *Controller {
	return &Controller{board: board}
}

// Drop applies raw onto (day, slot). Unusable payloads and invalid targets
// are ignored: the current grid is returned with applied=false.
func (c *Controller) Drop(day int, slot week.Slot, raw []byte) (grid week.Grid, applied bool) {
	p, err := Decode(raw)
	if err != nil {
		return c.board.Grid(), false
	}
	return c.Apply(day, slot, p)
}

// Apply routes an already decoded payload.
func (c *Controller) Apply(day int, slot week.Slot, p Payload) (week.Grid, bool) {
	var (
		g   week.Grid
		err error
	)
	switch v := p.(type) {
	case Suggestion:
		g, err = c.board.PlaceSuggestion(day, slot, v.Card)
	case SlotMove:
		g, err = c.board.MoveOrSwap(v.FromDay, v.FromSlot, day, slot)
	default:
		return c.board.Grid(), false
	}
	if err != nil {
		log.Printf("dragdrop: ignoring drop on day=%d slot=%s: %v", day, slot, err)
		return g, false
	}
	return g, true
}
