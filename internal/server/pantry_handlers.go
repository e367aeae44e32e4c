package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/savr-devTeam/savr.ai/internal/pantry"
)

func pantryJSON(c *gin.Context, items []pantry.Item) {
	if items == nil {
		items = []pantry.Item{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Every pantry route re-reads durable storage first: other views of the same
// user may have changed the list since this one last looked.

// GetPantry lists the pantry.
func (h *Handler) GetPantry(c *gin.Context) {
	pantryJSON(c, instance(c).Pantry.Load())
}

// AddPantryItem prepends a manual item.
func (h *Handler) AddPantryItem(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	p := instance(c).Pantry
	p.Load()
	items, _ := p.Add(req.Text)
	pantryJSON(c, items)
}

// ClearPantry empties the pantry.
func (h *Handler) ClearPantry(c *gin.Context) {
	pantryJSON(c, instance(c).Pantry.ClearAll())
}

func pantryIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a number"})
		return 0, false
	}
	return i, true
}

// RemovePantryItem deletes by position. Out-of-range positions change nothing.
func (h *Handler) RemovePantryItem(c *gin.Context) {
	i, ok := pantryIndex(c)
	if !ok {
		return
	}
	p := instance(c).Pantry
	p.Load()
	items, _ := p.Remove(i)
	pantryJSON(c, items)
}

// TogglePantryItem flips the checked flag.
func (h *Handler) TogglePantryItem(c *gin.Context) {
	i, ok := pantryIndex(c)
	if !ok {
		return
	}
	p := instance(c).Pantry
	p.Load()
	items, _ := p.Toggle(i)
	pantryJSON(c, items)
}
