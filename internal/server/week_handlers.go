package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/savr-devTeam/savr.ai/internal/app"
	"github.com/savr-devTeam/savr.ai/internal/auth"
	"github.com/savr-devTeam/savr.ai/internal/export"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

const instanceKey = "instance"

// OpenInstance mounts a new view for the caller.
func (h *Handler) OpenInstance(c *gin.Context) {
	inst := h.app.Registry.Open(auth.UserID(c))
	c.JSON(http.StatusCreated, inst.Snapshot())
}

// CloseInstance unmounts a view.
func (h *Handler) CloseInstance(c *gin.Context) {
	if !h.app.Registry.Close(auth.UserID(c), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) loadInstance(c *gin.Context) {
	inst, ok := h.app.Registry.Get(auth.UserID(c), c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}
	c.Set(instanceKey, inst)
	c.Next()
}

func instance(c *gin.Context) *app.Instance {
	return c.MustGet(instanceKey).(*app.Instance)
}

func weekJSON(c *gin.Context, status int, g week.Grid) {
	c.JSON(status, gin.H{"week": g})
}

// GetWeek returns the instance's grid.
func (h *Handler) GetWeek(c *gin.Context) {
	weekJSON(c, http.StatusOK, instance(c).Week.Grid())
}

type dropRequest struct {
	Day  int       `json:"day"`
	Slot week.Slot `json:"slot"`
	// Payload is the drag data: either the JSON object itself or the string
	// a drag source stored.
	Payload json.RawMessage `json:"payload"`
}

// Drop routes a drag payload onto a cell. Unusable drops are not errors: the
// unchanged grid comes back with applied=false.
func (h *Handler) Drop(c *gin.Context) {
	var req dropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	raw := []byte(req.Payload)
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			raw = []byte(s)
		}
	}

	g, applied := instance(c).Drops.Drop(req.Day, req.Slot, raw)
	c.JSON(http.StatusOK, gin.H{"week": g, "applied": applied})
}

func location(c *gin.Context) (int, week.Slot, error) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || !week.ValidDay(day) {
		return 0, "", week.ErrInvalidDay
	}
	slot, err := week.ParseSlot(c.Param("slot"))
	if err != nil {
		return 0, "", err
	}
	return day, slot, nil
}

// PlaceSlot puts the card in the body at (day, slot).
func (h *Handler) PlaceSlot(c *gin.Context) {
	day, slot, err := location(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var card week.MealCard
	if err := c.ShouldBindJSON(&card); err != nil || card.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a meal card with a title is required"})
		return
	}
	g, err := instance(c).Week.PlaceSuggestion(day, slot, card)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	weekJSON(c, http.StatusOK, g)
}

// ClearSlot empties (day, slot).
func (h *Handler) ClearSlot(c *gin.Context) {
	day, slot, err := location(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := instance(c).Week.ClearSlot(day, slot)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	weekJSON(c, http.StatusOK, g)
}

type moveRequest struct {
	FromDay  int       `json:"fromDay"`
	FromSlot week.Slot `json:"fromSlot"`
	ToDay    int       `json:"toDay"`
	ToSlot   week.Slot `json:"toSlot"`
}

// MoveSlot moves or swaps two cells.
func (h *Handler) MoveSlot(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	g, err := instance(c).Week.MoveOrSwap(req.FromDay, req.FromSlot, req.ToDay, req.ToSlot)
	if errors.Is(err, week.ErrInvalidDay) || errors.Is(err, week.ErrInvalidSlot) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	weekJSON(c, http.StatusOK, g)
}

// ClearWeek empties every slot.
func (h *Handler) ClearWeek(c *gin.Context) {
	weekJSON(c, http.StatusOK, instance(c).Week.ClearAll())
}

// ExportWeek streams the week and pantry as an xlsx download.
func (h *Handler) ExportWeek(c *gin.Context) {
	inst := instance(c)
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, inst.Week.Grid(), inst.Pantry.Load()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	name := fmt.Sprintf("savr-week-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
