// Package server exposes the planner over HTTP.
package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/savr-devTeam/savr.ai/internal/app"
	"github.com/savr-devTeam/savr.ai/internal/auth"
)

// Handler serves the API routes.
type Handler struct {
	app      *app.App
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. Websocket upgrades are accepted from
// allowedOrigins only, "*" allowing any.
func NewHandler(a *app.App, allowedOrigins []string) *Handler {
	return &Handler{
		app: a,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// NewRouter builds the gin engine with CORS, auth and every route.
func NewRouter(a *app.App, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(allowedOrigins, "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := NewHandler(a, allowedOrigins)
	api := r.Group("/api")
	api.Use(auth.Middleware(a.Verifier))
	{
		api.POST("/instances", h.OpenInstance)
		api.DELETE("/instances/:id", h.CloseInstance)

		inst := api.Group("/instances/:id")
		inst.Use(h.loadInstance)
		{
			inst.GET("/week", h.GetWeek)
			inst.POST("/drop", h.Drop)
			inst.POST("/week/move", h.MoveSlot)
			inst.PUT("/week/slots/:day/:slot", h.PlaceSlot)
			inst.DELETE("/week/slots/:day/:slot", h.ClearSlot)
			inst.DELETE("/week", h.ClearWeek)
			inst.GET("/week/export", h.ExportWeek)

			inst.GET("/pantry", h.GetPantry)
			inst.POST("/pantry", h.AddPantryItem)
			inst.DELETE("/pantry", h.ClearPantry)
			inst.DELETE("/pantry/:index", h.RemovePantryItem)
			inst.POST("/pantry/:index/toggle", h.TogglePantryItem)
		}

		api.POST("/suggestions", h.GenerateSuggestions)
		api.POST("/suggestions/import", h.ImportSuggestion)
		api.GET("/plans", h.ListPlans)

		api.GET("/preferences", h.GetPreferences)
		api.PUT("/preferences", h.SavePreferences)

		api.POST("/uploads/presign", h.PresignUpload)
		api.POST("/receipts/parse", h.ParseReceipt)

		api.GET("/channel", h.Channel)
		api.GET("/metrics/usage", h.Usage)
	}

	return r
}
