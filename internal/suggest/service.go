package suggest

import (
	"context"
	"errors"
	"log"

	"github.com/savr-devTeam/savr.ai/internal/preferences"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

// ErrNoMeals is returned when a generation produced no usable cards.
var ErrNoMeals = errors.New("no meals generated")

// PlanGenerator produces a parsed plan. *Generator implements it.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, pantryItems []string, prefs preferences.Preferences, sessionID string) (*Plan, error)
}

// PreferenceStore loads and saves user preferences.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (preferences.Preferences, error)
	Save(ctx context.Context, userID string, p preferences.Preferences) (preferences.Preferences, error)
}

// PlanStore keeps generation history.
type PlanStore interface {
	Save(ctx context.Context, userID string, plan *Plan, prefs preferences.Preferences) (PlanRecord, error)
	ListRecentByUserID(ctx context.Context, userID string, limit int) ([]PlanRecord, error)
}

// Request is one generation request.
type Request struct {
	UserID      string
	SessionID   string
	PantryItems []string
	// Preferences changed by the request. nil means use stored values.
	Preferences *preferences.Update
}

// Result is what a generation hands back to the suggestion list.
type Result struct {
	PlanID       string                  `json:"planId,omitempty"`
	Cards        []week.MealCard         `json:"meals"`
	Groups       []Group                 `json:"groups"`
	ShoppingList []string                `json:"shoppingList"`
	Preferences  preferences.Preferences `json:"preferences"`
}

// Service merges preferences, generates suggestions and keeps history.
type Service struct {
	gen   PlanGenerator
	prefs PreferenceStore
	plans PlanStore
}

// NewService creates a Service. prefs and plans may be nil.
func NewService(gen PlanGenerator, prefs PreferenceStore, plans PlanStore) *Service {
	return &Service{gen: gen, prefs: prefs, plans: plans}
}

// Generate never touches the week grid or the pantry.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	prefs := s.resolvePreferences(ctx, req)

	plan, err := s.gen.GeneratePlan(ctx, req.PantryItems, prefs, req.SessionID)
	if err != nil {
		return nil, err
	}
	if len(plan.Cards) == 0 {
		return nil, ErrNoMeals
	}

	res := &Result{
		Cards:        plan.Cards,
		Groups:       GroupByCategory(plan.Cards),
		ShoppingList: plan.ShoppingList,
		Preferences:  prefs,
	}
	if s.plans != nil {
		rec, err := s.plans.Save(ctx, req.UserID, plan, prefs)
		if err != nil {
			log.Printf("Error saving meal plan for %s: %v", req.UserID, err)
		} else {
			res.PlanID = rec.ID
		}
	}
	return res, nil
}

// resolvePreferences applies the request's changes to the stored preferences,
// saves them when there were any, and fills the defaults for generation.
func (s *Service) resolvePreferences(ctx context.Context, req Request) preferences.Preferences {
	var stored preferences.Preferences
	if s.prefs != nil {
		var err error
		stored, err = s.prefs.Get(ctx, req.UserID)
		if err != nil {
			log.Printf("Error getting user preferences for %s: %v", req.UserID, err)
			stored = preferences.Preferences{}
		}
	}

	if req.Preferences == nil || req.Preferences.IsEmpty() {
		return stored.WithDefaults()
	}
	updated := req.Preferences.Apply(stored)
	if s.prefs != nil {
		saved, err := s.prefs.Save(ctx, req.UserID, updated)
		if err != nil {
			log.Printf("Error saving user preferences for %s: %v", req.UserID, err)
		} else {
			updated = saved
		}
	}
	return updated.WithDefaults()
}

// History returns the user's most recent generations.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]PlanRecord, error) {
	if s.plans == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.plans.ListRecentByUserID(ctx, userID, limit)
}
