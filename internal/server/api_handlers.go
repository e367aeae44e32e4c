package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/savr-devTeam/savr.ai/internal/app"
	"github.com/savr-devTeam/savr.ai/internal/auth"
	"github.com/savr-devTeam/savr.ai/internal/broadcast"
	"github.com/savr-devTeam/savr.ai/internal/metrics"
	"github.com/savr-devTeam/savr.ai/internal/pantry"
	"github.com/savr-devTeam/savr.ai/internal/preferences"
	"github.com/savr-devTeam/savr.ai/internal/receipt"
	"github.com/savr-devTeam/savr.ai/internal/suggest"
)

// generationFailed is the message shown when suggestions cannot be produced.
const generationFailed = "Sorry, couldn't generate meals. Try again."

type suggestionRequest struct {
	SessionID   string              `json:"sessionId"`
	PantryItems []string            `json:"pantryItems"`
	Preferences *preferences.Update `json:"preferences"`
}

// GenerateSuggestions asks the model for a week of cards. The grid and the
// pantry are never touched.
func (h *Handler) GenerateSuggestions(c *gin.Context) {
	if h.app.Suggest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "suggestions are not configured"})
		return
	}

	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	userID := auth.UserID(c)
	items := req.PantryItems
	if items == nil {
		items = pantry.NewStore(h.app.Registry.UserStorage(userID)).Labels()
	}

	res, err := h.app.Suggest.Generate(c.Request.Context(), suggest.Request{
		UserID:      userID,
		SessionID:   req.SessionID,
		PantryItems: items,
		Preferences: req.Preferences,
	})
	if err != nil {
		log.Printf("Error generating suggestions for %s: %v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": generationFailed})
		return
	}
	c.JSON(http.StatusOK, res)
}

// ImportSuggestion turns a recipe page into one card.
func (h *Handler) ImportSuggestion(c *gin.Context) {
	if h.app.Importer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recipe import is not configured"})
		return
	}
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	card, err := h.app.Importer.ImportURL(c.Request.Context(), req.URL)
	if err != nil {
		log.Printf("Error importing %s: %v", req.URL, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not import recipe"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meal": card})
}

// ListPlans returns recent generations.
func (h *Handler) ListPlans(c *gin.Context) {
	if h.app.Suggest == nil {
		c.JSON(http.StatusOK, gin.H{"plans": []suggest.PlanRecord{}})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	plans, err := h.app.Suggest.History(c.Request.Context(), auth.UserID(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list plans"})
		return
	}
	if plans == nil {
		plans = []suggest.PlanRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// GetPreferences returns stored preferences layered over the defaults.
func (h *Handler) GetPreferences(c *gin.Context) {
	stored, err := h.app.Preferences.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": stored.WithDefaults()})
}

// SavePreferences writes the fields present in the body over the stored
// values. Omitted fields are kept; explicit zeros and empty lists clear.
func (h *Handler) SavePreferences(c *gin.Context) {
	var req preferences.Update
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	stored, err := h.app.Preferences.Get(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	saved, err := h.app.Preferences.Save(ctx, userID, req.Apply(stored))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": saved.WithDefaults()})
}

// PresignUpload returns a presigned PUT for a receipt image.
func (h *Handler) PresignUpload(c *gin.Context) {
	if h.app.Receipts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": receipt.ErrNoBucket.Error()})
		return
	}
	var req struct {
		FileName    string `json:"fileName"`
		ContentType string `json:"contentType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	up, err := h.app.Receipts.Presign(c.Request.Context(), auth.UserID(c), req.FileName, req.ContentType)
	switch {
	case errors.Is(err, receipt.ErrMissingFileName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		log.Printf("Error presigning upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate upload url"})
	default:
		c.JSON(http.StatusOK, up)
	}
}

// ParseReceipt reads line items off an uploaded receipt. With addToPantry set
// the item names are prepended to the pantry as manual items.
func (h *Handler) ParseReceipt(c *gin.Context) {
	if h.app.Receipts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": receipt.ErrNoBucket.Error()})
		return
	}
	var req struct {
		S3Key       string `json:"s3Key"`
		AddToPantry bool   `json:"addToPantry"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	userID := auth.UserID(c)
	items, err := h.app.Receipts.Parse(c.Request.Context(), userID, req.S3Key)
	switch {
	case errors.Is(err, receipt.ErrMissingKey), errors.Is(err, receipt.ErrForeignKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, receipt.ErrNoAnalyzer):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("Error parsing receipt for %s: %v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to process receipt"})
		return
	}
	if items == nil {
		items = []receipt.Item{}
	}

	added := 0
	if req.AddToPantry {
		p := pantry.NewStore(h.app.Registry.UserStorage(userID))
		p.Load()
		for _, it := range items {
			if _, ok := p.Add(it.Name); ok {
				added++
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "itemsFound": len(items), "addedToPantry": added})
}

// Channel upgrades to a websocket joined to the caller's broadcast channel.
// Week updates posted by any of the user's views are relayed to the socket
// and frames sent by the socket reach every view.
func (h *Handler) Channel(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading websocket: %v", err)
		return
	}
	ch := h.app.Registry.Hub().Open(app.ChannelName(auth.UserID(c)))
	if err := broadcast.ServeConn(conn, ch); err != nil {
		log.Printf("websocket closed: %v", err)
	}
}

// Usage reports token usage per day and process health.
func (h *Handler) Usage(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}
	usage, err := h.app.Metrics.GetDailyUsage(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}
	if usage == nil {
		usage = []metrics.DailyUsage{}
	}

	dataDir := ""
	if h.app.DataPath != "" {
		dataDir = filepath.Dir(h.app.DataPath)
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage, "system": metrics.CollectServerHealth(dataDir, h.app.Registry.Count())})
}
