package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/savr-devTeam/savr.ai/internal/llm"
	"github.com/savr-devTeam/savr.ai/internal/shared"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

// maxPageText caps the page text sent to the model.
const maxPageText = 12000

// Importer turns a recipe web page into a suggestion card.
type Importer struct {
	textGen    llm.TextGenerator
	metrics    MetricsRecorder
	httpClient *http.Client
}

// NewImporter creates an Importer. metrics may be nil.
func NewImporter(textGen llm.TextGenerator, metrics MetricsRecorder) *Importer {
	return &Importer{
		textGen:    textGen,
		metrics:    metrics,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type importedRecipe struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Ingredients []string `json:"ingredients"`
	Calories    float64  `json:"calories"`
	Protein     float64  `json:"protein"`
	Carbs       float64  `json:"carbs"`
	Fat         float64  `json:"fat"`
	PrepTime    string   `json:"prep_time"`
	Image       string   `json:"image"`
}

// ImportURL fetches url, strips page noise and asks the model for one card.
func (im *Importer) ImportURL(ctx context.Context, url string) (week.MealCard, error) {
	start := time.Now()
	content, image, err := im.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return week.MealCard{}, fmt.Errorf("failed to fetch content: %w", err)
	}

	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe details from the following page text.
Estimate nutrition per serving when the page does not state it.
Return the result strictly as a JSON object with this structure:
{
  "title": "Recipe Title",
  "category": "Breakfast, Lunch or Dinner",
  "ingredients": ["item 1", "item 2", ...],
  "calories": 500,
  "protein": 30,
  "carbs": 40,
  "fat": 20,
  "prep_time": "e.g. 30 mins"
}

Page text:
%s
`, content)

	resp, err := im.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return week.MealCard{}, fmt.Errorf("ai extraction failed: %w", err)
	}
	if im.metrics != nil {
		_ = im.metrics.RecordMeta(shared.AgentMeta{AgentName: "Import", Usage: resp.Usage, Latency: time.Since(start)})
	}

	text := resp.Content
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i != -1 && j > i {
		text = text[i : j+1]
	}
	var r importedRecipe
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return week.MealCard{}, fmt.Errorf("failed to parse AI response: %w. Response: %s", err, resp.Content)
	}
	if strings.TrimSpace(r.Title) == "" {
		return week.MealCard{}, fmt.Errorf("no recipe found at %s", url)
	}

	category := normalizeCategory(r.Category)
	if r.Image == "" {
		r.Image = image
	}
	if r.Image == "" {
		r.Image = FallbackImage(category)
	}
	return week.MealCard{
		Title:       strings.TrimSpace(r.Title),
		Meal:        category,
		Calories:    r.Calories,
		Protein:     r.Protein,
		Carbs:       r.Carbs,
		Fat:         r.Fat,
		Image:       r.Image,
		Ingredients: r.Ingredients,
		PrepTime:    r.PrepTime,
	}, nil
}

func normalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	for _, p := range primaryCategories {
		if strings.EqualFold(c, p) {
			return p
		}
	}
	if c == "" {
		return "Dinner"
	}
	return c
}

// fetchAndCleanHTML returns the visible body text and the og:image, if any.
func (im *Importer) fetchAndCleanHTML(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := im.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", err
	}

	image, _ := doc.Find(`meta[property="og:image"]`).Attr("content")

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) > maxPageText {
		text = text[:maxPageText]
	}
	return text, image, nil
}
