package suggest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/savr-devTeam/savr.ai/internal/preferences"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

const planTimeLayout = "2006-01-02 15:04:05"

// PlanRecord is one saved generation.
type PlanRecord struct {
	ID              string                  `json:"planId"`
	UserID          string                  `json:"userId"`
	SessionID       string                  `json:"sessionId,omitempty"`
	Cards           []week.MealCard         `json:"meals"`
	ShoppingList    []string                `json:"shoppingList"`
	Tips            []string                `json:"tips,omitempty"`
	PreferencesUsed preferences.Preferences `json:"preferencesUsed"`
	CreatedAt       time.Time               `json:"createdAt"`
}

type planData struct {
	Cards           []week.MealCard         `json:"meals"`
	ShoppingList    []string                `json:"shoppingList"`
	Tips            []string                `json:"tips,omitempty"`
	PreferencesUsed preferences.Preferences `json:"preferencesUsed"`
}

// PlanRepository is a database-backed repository for generated plans.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Save inserts a new plan and returns the stored record.
func (r *PlanRepository) Save(ctx context.Context, userID string, plan *Plan, prefs preferences.Preferences) (PlanRecord, error) {
	rec := PlanRecord{
		ID:              uuid.NewString(),
		UserID:          userID,
		SessionID:       plan.SessionID,
		Cards:           plan.Cards,
		ShoppingList:    plan.ShoppingList,
		Tips:            plan.Tips,
		PreferencesUsed: prefs,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	data, err := json.Marshal(planData{
		Cards:           rec.Cards,
		ShoppingList:    rec.ShoppingList,
		Tips:            rec.Tips,
		PreferencesUsed: rec.PreferencesUsed,
	})
	if err != nil {
		return PlanRecord{}, fmt.Errorf("failed to encode plan: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (id, user_id, session_id, plan_data, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, userID, rec.SessionID, string(data), rec.CreatedAt.Format(planTimeLayout))
	if err != nil {
		return PlanRecord{}, fmt.Errorf("failed to save meal plan for user %s: %w", userID, err)
	}
	return rec, nil
}

// ListRecentByUserID retrieves the N most recent plans for a given user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]PlanRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, plan_data, created_at FROM meal_plans
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []PlanRecord
	for rows.Next() {
		var (
			id, session, data, created string
			pd                         planData
		)
		if err := rows.Scan(&id, &session, &data, &created); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &pd); err != nil {
			return nil, fmt.Errorf("failed to decode meal plan %s: %w", id, err)
		}
		ts, _ := time.Parse(planTimeLayout, created)
		plans = append(plans, PlanRecord{
			ID:              id,
			UserID:          userID,
			SessionID:       session,
			Cards:           pd.Cards,
			ShoppingList:    pd.ShoppingList,
			Tips:            pd.Tips,
			PreferencesUsed: pd.PreferencesUsed,
			CreatedAt:       ts,
		})
	}
	return plans, rows.Err()
}
