package suggest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchAndCleanHTML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		html := `
		<html>
			<head>
				<meta property="og:image" content="https://example.com/soup.jpg">
				<script>alert('bad');</script>
			</head>
			<body>
				<h1>Tasty Soup</h1>
				<div class="ads">Buy stuff!</div>
				<p>Simmer lentils.</p>
				<script>more_bad_stuff()</script>
				<footer>Copyright 2024</footer>
			</body>
		</html>`
		w.Write([]byte(html))
	}))
	defer ts.Close()

	im := NewImporter(&MockTextGenerator{}, nil)
	text, image, err := im.fetchAndCleanHTML(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("fetchAndCleanHTML failed: %v", err)
	}

	if !strings.Contains(text, "Tasty Soup") || !strings.Contains(text, "Simmer lentils.") {
		t.Errorf("expected recipe text, got %q", text)
	}
	for _, noise := range []string{"alert", "Buy stuff", "more_bad_stuff", "Copyright"} {
		if strings.Contains(text, noise) {
			t.Errorf("expected %q to be stripped, got %q", noise, text)
		}
	}
	if image != "https://example.com/soup.jpg" {
		t.Errorf("expected og:image, got %q", image)
	}
}

func TestImportURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Lentil Soup</h1></body></html>`))
	}))
	defer ts.Close()

	mockGen := &MockTextGenerator{
		Response: `{"title": "Lentil Soup", "category": "lunch", "ingredients": ["lentils", "carrot"], "calories": 380, "protein": 18, "carbs": 50, "fat": 6, "prep_time": "30 mins"}`,
	}
	metrics := &MockMetrics{}
	card, err := NewImporter(mockGen, metrics).ImportURL(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("ImportURL failed: %v", err)
	}

	if card.Title != "Lentil Soup" || card.Meal != "Lunch" || card.Calories != 380 || card.PrepTime != "30 mins" {
		t.Errorf("unexpected card: %+v", card)
	}
	if card.Image != FallbackImage("Lunch") {
		t.Errorf("expected the lunch fallback image, got %q", card.Image)
	}
	if len(metrics.Metas) != 1 || metrics.Metas[0].AgentName != "Import" {
		t.Errorf("expected import usage to be recorded, got %+v", metrics.Metas)
	}
}

func TestImportURLErrors(t *testing.T) {
	t.Run("BadStatus", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer ts.Close()

		if _, err := NewImporter(&MockTextGenerator{}, nil).ImportURL(context.Background(), ts.URL); err == nil {
			t.Error("expected an error for a 404 page")
		}
	})

	t.Run("NoTitle", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><body>nothing</body></html>`))
		}))
		defer ts.Close()

		mockGen := &MockTextGenerator{Response: `{"title": ""}`}
		if _, err := NewImporter(mockGen, nil).ImportURL(context.Background(), ts.URL); err == nil {
			t.Error("expected an error when no recipe is found")
		}
	})
}
