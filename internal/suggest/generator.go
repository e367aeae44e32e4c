// Package suggest produces meal cards for the suggestion list.
package suggest

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"text/template"
	"time"

	"github.com/savr-devTeam/savr.ai/internal/llm"
	"github.com/savr-devTeam/savr.ai/internal/preferences"
	"github.com/savr-devTeam/savr.ai/internal/shared"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

//go:embed generator_prompt.md
var generatorPrompt string

var promptTmpl = template.Must(template.New("Generator").Parse(generatorPrompt))

// ErrNoJSON is returned when the model reply carries no JSON object.
var ErrNoJSON = errors.New("no JSON object in model response")

const agentName = "Suggest"

var weekDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var mealTypes = []string{"breakfast", "lunch", "dinner"}

var fallbackImages = map[string]string{
	"breakfast": "https://images.pexels.com/photos/376464/pexels-photo-376464.jpeg?auto=compress&cs=tinysrgb&w=800",
	"lunch":     "https://images.pexels.com/photos/1640777/pexels-photo-1640777.jpeg?auto=compress&cs=tinysrgb&w=800",
	"dinner":    "https://images.pexels.com/photos/262959/pexels-photo-262959.jpeg?auto=compress&cs=tinysrgb&w=800",
}

// FallbackImage returns the stock image for a meal category.
func FallbackImage(category string) string {
	if img, ok := fallbackImages[strings.ToLower(category)]; ok {
		return img
	}
	return fallbackImages["lunch"]
}

// Source yields meal suggestions for a pantry and a set of preferences.
type Source interface {
	Generate(ctx context.Context, pantryItems []string, prefs preferences.Preferences, sessionID string) ([]week.MealCard, error)
}

// MetricsRecorder receives token usage for every model call.
type MetricsRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// Plan is one parsed generation.
type Plan struct {
	Cards        []week.MealCard  `json:"meals"`
	ShoppingList []string         `json:"shoppingList"`
	Tips         []string         `json:"tips,omitempty"`
	SessionID    string           `json:"sessionId,omitempty"`
	Meta         shared.AgentMeta `json:"-"`
}

// Generator asks an LLM for a week of meals.
type Generator struct {
	textGen llm.TextGenerator
	metrics MetricsRecorder
}

// NewGenerator creates a Generator. metrics may be nil.
func NewGenerator(textGen llm.TextGenerator, metrics MetricsRecorder) *Generator {
	return &Generator{textGen: textGen, metrics: metrics}
}

// Generate implements Source.
func (g *Generator) Generate(ctx context.Context, pantryItems []string, prefs preferences.Preferences, sessionID string) ([]week.MealCard, error) {
	plan, err := g.GeneratePlan(ctx, pantryItems, prefs, sessionID)
	if err != nil {
		return nil, err
	}
	return plan.Cards, nil
}

// GeneratePlan renders the prompt, calls the model and parses the reply. The
// plan is tagged with sessionID, the client session that asked for it.
func (g *Generator) GeneratePlan(ctx context.Context, pantryItems []string, prefs preferences.Preferences, sessionID string) (*Plan, error) {
	start := time.Now()
	prompt, err := buildPrompt(pantryItems, prefs)
	if err != nil {
		return nil, err
	}

	resp, err := g.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate meals from LLM: %w", err)
	}
	meta := shared.AgentMeta{AgentName: agentName, Usage: resp.Usage, Latency: time.Since(start)}
	g.record(meta)

	plan, err := ParsePlan(resp.Content)
	if err != nil {
		return nil, err
	}
	plan.Meta = meta
	plan.SessionID = sessionID
	return plan, nil
}

func (g *Generator) record(meta shared.AgentMeta) {
	if g.metrics == nil {
		return
	}
	if err := g.metrics.RecordMeta(meta); err != nil {
		log.Printf("warning: failed to record %s metrics: %v", meta.AgentName, err)
	}
}

type promptData struct {
	Preferences  preferences.Preferences
	Restrictions string
	Pantry       []string
}

func buildPrompt(pantryItems []string, prefs preferences.Preferences) (string, error) {
	restrictions := prefs.DietaryRestrictions
	if len(prefs.Allergies) > 0 {
		allergies := "allergies: " + strings.Join(prefs.Allergies, ", ")
		if restrictions == "" {
			restrictions = allergies
		} else {
			restrictions += "; " + allergies
		}
	}

	pantry := pantryItems
	if len(pantry) > 20 {
		pantry = pantry[:20]
	}

	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, promptData{Preferences: prefs, Restrictions: restrictions, Pantry: pantry})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

type planMeal struct {
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	Calories    float64  `json:"calories"`
	Protein     float64  `json:"protein"`
	Carbs       float64  `json:"carbs"`
	Fat         float64  `json:"fat"`
	PrepTime    string   `json:"prepTime"`
	Image       string   `json:"image"`
}

type planReply struct {
	WeeklyPlan   map[string]json.RawMessage `json:"weeklyPlan"`
	ShoppingList []string                   `json:"shoppingList"`
	Tips         []string                   `json:"tips"`
}

// ParsePlan extracts the outermost JSON object from text and flattens its
// weekly plan into cards, Monday to Sunday and breakfast to dinner. Days or
// meals of the wrong shape are skipped.
func ParsePlan(text string) (*Plan, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, ErrNoJSON
	}

	var reply planReply
	if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse meal plan JSON: %w", err)
	}

	plan := &Plan{ShoppingList: reply.ShoppingList, Tips: reply.Tips}
	for _, day := range weekDays {
		raw, ok := reply.WeeklyPlan[day]
		if !ok {
			continue
		}
		var meals map[string]json.RawMessage
		if err := json.Unmarshal(raw, &meals); err != nil {
			continue
		}
		for _, mt := range mealTypes {
			mraw, ok := meals[mt]
			if !ok {
				continue
			}
			var m planMeal
			if err := json.Unmarshal(mraw, &m); err != nil {
				continue
			}
			plan.Cards = append(plan.Cards, toCard(m, mt))
		}
	}
	return plan, nil
}

func toCard(m planMeal, mealType string) week.MealCard {
	title := strings.TrimSpace(m.Name)
	if title == "" {
		title = "Untitled Meal"
	}
	img := m.Image
	if img == "" {
		img = FallbackImage(mealType)
	}
	prep := m.PrepTime
	if prep == "" {
		prep = "N/A"
	}
	return week.MealCard{
		Title:       title,
		Meal:        strings.ToUpper(mealType[:1]) + mealType[1:],
		Calories:    m.Calories,
		Protein:     m.Protein,
		Carbs:       m.Carbs,
		Fat:         m.Fat,
		Image:       img,
		Ingredients: m.Ingredients,
		PrepTime:    prep,
	}
}
