package suggest

import "github.com/savr-devTeam/savr.ai/internal/week"

// Group is the cards of one category.
type Group struct {
	Category string          `json:"category"`
	Cards    []week.MealCard `json:"meals"`
}

var primaryCategories = []string{"Breakfast", "Lunch", "Dinner"}

// GroupByCategory buckets cards by their Meal field. Breakfast, Lunch and
// Dinner come first when present, then other categories in first-seen order.
// Cards keep their relative order inside a group.
func GroupByCategory(cards []week.MealCard) []Group {
	buckets := make(map[string][]week.MealCard)
	var seen []string
	for _, c := range cards {
		cat := c.Meal
		if cat == "" {
			cat = "Other"
		}
		if _, ok := buckets[cat]; !ok {
			seen = append(seen, cat)
		}
		buckets[cat] = append(buckets[cat], c)
	}

	groups := make([]Group, 0, len(buckets))
	for _, cat := range primaryCategories {
		if cards, ok := buckets[cat]; ok {
			groups = append(groups, Group{Category: cat, Cards: cards})
			delete(buckets, cat)
		}
	}
	for _, cat := range seen {
		if cards, ok := buckets[cat]; ok {
			groups = append(groups, Group{Category: cat, Cards: cards})
		}
	}
	return groups
}
