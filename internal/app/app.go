package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/savr-devTeam/savr.ai/internal/auth"
	"github.com/savr-devTeam/savr.ai/internal/broadcast"
	"github.com/savr-devTeam/savr.ai/internal/config"
	"github.com/savr-devTeam/savr.ai/internal/database"
	"github.com/savr-devTeam/savr.ai/internal/export"
	"github.com/savr-devTeam/savr.ai/internal/llm"
	"github.com/savr-devTeam/savr.ai/internal/metrics"
	"github.com/savr-devTeam/savr.ai/internal/pantry"
	"github.com/savr-devTeam/savr.ai/internal/preferences"
	"github.com/savr-devTeam/savr.ai/internal/receipt"
	"github.com/savr-devTeam/savr.ai/internal/storage"
	"github.com/savr-devTeam/savr.ai/internal/suggest"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

// App holds the application's dependencies.
type App struct {
	Registry    *Registry
	Suggest     *suggest.Service
	Importer    *suggest.Importer
	Preferences *preferences.Repository
	Metrics     *metrics.Store
	Receipts    *receipt.Service // nil when no bucket is configured
	Verifier    *auth.Verifier   // nil when auth is disabled
	DataPath    string

	db      *database.DB
	textGen llm.TextGenerator
}

// New wires every component from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	base, err := newStorage(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	textGen, err := llm.New(ctx, llm.Options{
		Provider:     cfg.LLMProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		GroqAPIKey:   cfg.GroqAPIKey,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	var receipts *receipt.Service
	if cfg.ReceiptsBucket != "" {
		receipts, err = receipt.NewClient(ctx, receipt.Options{
			Bucket:   cfg.ReceiptsBucket,
			Region:   cfg.AWSRegion,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create receipts client: %w", err)
		}
	}

	a := Assemble(db, base, textGen)
	a.Receipts = receipts
	a.Verifier = verifier
	a.DataPath = cfg.DatabasePath
	return a, nil
}

// NewOffline opens storage only. It serves commands that never call a model,
// so no LLM client or verifier is created.
func NewOffline(cfg *config.Config) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	base, err := newStorage(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	a := Assemble(db, base, nil)
	a.DataPath = cfg.DatabasePath
	return a, nil
}

// Assemble builds an App from already opened parts. textGen may be nil for
// commands that never generate.
func Assemble(db *database.DB, base storage.Storage, textGen llm.TextGenerator) *App {
	metricsStore := metrics.NewStore(db.SQL)
	prefs := preferences.NewRepository(db.SQL)

	a := &App{
		Registry:    NewRegistry(base, broadcast.NewHub()),
		Preferences: prefs,
		Metrics:     metricsStore,
		db:          db,
		textGen:     textGen,
	}
	if textGen != nil {
		a.Suggest = suggest.NewService(suggest.NewGenerator(textGen, metricsStore), prefs, suggest.NewPlanRepository(db.SQL))
		a.Importer = suggest.NewImporter(textGen, metricsStore)
	}
	return a
}

func newStorage(cfg *config.Config, db *database.DB) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageFile:
		fs, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return fs, nil
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewSQLStore(db.SQL), nil
	}
}

func newVerifier(ctx context.Context, cfg *config.Config) (*auth.Verifier, error) {
	switch {
	case cfg.CognitoUserPoolID != "":
		return auth.NewCognitoVerifier(ctx, cfg.CognitoRegion, cfg.CognitoUserPoolID)
	case cfg.AuthJWTSecret != "":
		return auth.NewHS256Verifier(cfg.AuthJWTSecret)
	default:
		log.Println("Warning: no auth configured, every request runs as the anonymous user")
		return nil, nil
	}
}

// Close releases every resource held by the App.
func (a *App) Close() error {
	a.Registry.CloseAll()
	if c, ok := a.textGen.(llm.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("Warning: failed to close LLM client: %v", err)
		}
	}
	return a.db.Close()
}

// LoadWeek reads the persisted week of userID without opening an instance.
func (a *App) LoadWeek(userID string) week.Grid {
	return week.NewStore(a.Registry.UserStorage(userID)).Grid()
}

// ClearWeek empties the persisted week of userID and tells its open views.
func (a *App) ClearWeek(userID string) {
	if views := a.Registry.ForUser(userID); len(views) > 0 {
		views[0].Week.ClearAll()
		return
	}
	week.NewStore(a.Registry.UserStorage(userID)).ClearAll()
}

// ExportWorkbook writes the user's week and pantry as xlsx.
func (a *App) ExportWorkbook(w io.Writer, userID string) error {
	s := a.Registry.UserStorage(userID)
	return export.WriteWorkbook(w, week.NewStore(s).Grid(), pantry.NewStore(s).Items())
}
