// Package preferences stores per-user generation preferences.
package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Preferences drive suggestion generation and the budget view.
type Preferences struct {
	Budget              float64 `json:"budget"`
	DietaryRestrictions string  `json:"dietaryRestrictions"`
	NutritionGoal       string  `json:"nutritionGoal"`
	CaloricTarget       int     `json:"caloricTarget"`
	ProteinTarget       int     `json:"proteinTarget"`
	CarbTarget          int     `json:"carbTarget"`
	FatTarget           int     `json:"fatTarget"`

	Allergies         []string  `json:"allergies,omitempty"`
	Spent             float64   `json:"spent,omitempty"`
	CustomPreferences string    `json:"customPreferences,omitempty"`
	LastUpdated       time.Time `json:"lastUpdated,omitempty"`
}

// Defaults returns the generation values used for fields a user never set.
func Defaults() Preferences {
	return Preferences{
		Budget:        100,
		NutritionGoal: "maintenance",
		CaloricTarget: 2000,
		ProteinTarget: 150,
		CarbTarget:    200,
		FatTarget:     65,
	}
}

// WithDefaults fills the generation fields left unset with Defaults. Budget,
// goal and targets have no meaningful zero; the free-text fields, allergies
// and spent keep their values.
func (p Preferences) WithDefaults() Preferences {
	d := Defaults()
	p.Budget = pick(p.Budget, d.Budget)
	p.NutritionGoal = pick(p.NutritionGoal, d.NutritionGoal)
	p.CaloricTarget = pick(p.CaloricTarget, d.CaloricTarget)
	p.ProteinTarget = pick(p.ProteinTarget, d.ProteinTarget)
	p.CarbTarget = pick(p.CarbTarget, d.CarbTarget)
	p.FatTarget = pick(p.FatTarget, d.FatTarget)
	return p
}

// Update is a partial change to stored preferences. A field missing from the
// JSON body stays nil and keeps the stored value; a present field replaces
// it, zero values and empty lists included.
type Update struct {
	Budget              *float64  `json:"budget"`
	DietaryRestrictions *string   `json:"dietaryRestrictions"`
	NutritionGoal       *string   `json:"nutritionGoal"`
	CaloricTarget       *int      `json:"caloricTarget"`
	ProteinTarget       *int      `json:"proteinTarget"`
	CarbTarget          *int      `json:"carbTarget"`
	FatTarget           *int      `json:"fatTarget"`
	Allergies           *[]string `json:"allergies"`
	Spent               *float64  `json:"spent"`
	CustomPreferences   *string   `json:"customPreferences"`
}

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	return u.Budget == nil && u.DietaryRestrictions == nil && u.NutritionGoal == nil &&
		u.CaloricTarget == nil && u.ProteinTarget == nil && u.CarbTarget == nil && u.FatTarget == nil &&
		u.Allergies == nil && u.Spent == nil && u.CustomPreferences == nil
}

// Apply returns stored with every set field of u written over it.
func (u Update) Apply(stored Preferences) Preferences {
	out := stored
	set(&out.Budget, u.Budget)
	set(&out.DietaryRestrictions, u.DietaryRestrictions)
	set(&out.NutritionGoal, u.NutritionGoal)
	set(&out.CaloricTarget, u.CaloricTarget)
	set(&out.ProteinTarget, u.ProteinTarget)
	set(&out.CarbTarget, u.CarbTarget)
	set(&out.FatTarget, u.FatTarget)
	set(&out.Spent, u.Spent)
	set(&out.CustomPreferences, u.CustomPreferences)
	if u.Allergies != nil {
		out.Allergies = slices.Clone(*u.Allergies)
		if out.Allergies == nil {
			out.Allergies = []string{}
		}
	}
	return out
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// IsZero reports whether no field of p is set.
func (p Preferences) IsZero() bool {
	return p.Budget == 0 && p.DietaryRestrictions == "" && p.NutritionGoal == "" &&
		p.CaloricTarget == 0 && p.ProteinTarget == 0 && p.CarbTarget == 0 && p.FatTarget == 0 &&
		len(p.Allergies) == 0 && p.Spent == 0 && p.CustomPreferences == ""
}

func pick[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}

// Repository persists preferences in the user_preferences table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a Repository on a migrated database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored preferences for userID, or zero-valued preferences
// when none were saved.
func (r *Repository) Get(ctx context.Context, userID string) (Preferences, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM user_preferences WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to load preferences for user %s: %w", userID, err)
	}

	var p Preferences
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Preferences{}, fmt.Errorf("failed to decode preferences for user %s: %w", userID, err)
	}
	return p, nil
}

// Save upserts p for userID and stamps LastUpdated.
func (r *Repository) Save(ctx context.Context, userID string, p Preferences) (Preferences, error) {
	p.LastUpdated = time.Now().UTC().Truncate(time.Second)
	data, err := json.Marshal(p)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to encode preferences: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), p.LastUpdated.Format(time.RFC3339))
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to save preferences for user %s: %w", userID, err)
	}
	return p, nil
}
