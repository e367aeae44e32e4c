package acceptance_tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savr-devTeam/savr.ai/internal/app"
	"github.com/savr-devTeam/savr.ai/internal/auth"
	"github.com/savr-devTeam/savr.ai/internal/database"
	"github.com/savr-devTeam/savr.ai/internal/dragdrop"
	"github.com/savr-devTeam/savr.ai/internal/pantry"
	"github.com/savr-devTeam/savr.ai/internal/server"
	"github.com/savr-devTeam/savr.ai/internal/storage"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

type client struct {
	t    *testing.T
	base string
}

func (c client) call(method, path string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c client) week(id string) week.Grid {
	c.t.Helper()
	var body struct {
		Week week.Grid `json:"week"`
	}
	require.Equal(c.t, http.StatusOK, c.call(http.MethodGet, "/api/instances/"+id+"/week", nil, &body))
	return body.Week
}

func (c client) pantry(id string) []string {
	c.t.Helper()
	var body struct {
		Items []pantry.Item `json:"items"`
	}
	require.Equal(c.t, http.StatusOK, c.call(http.MethodGet, "/api/instances/"+id+"/pantry", nil, &body))
	var out []string
	for _, it := range body.Items {
		out = append(out, it.Text)
	}
	return out
}

func TestTwoViewsStayInSync(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "savr.db"))
	require.NoError(t, err)
	application := app.Assemble(db, storage.NewSQLStore(db.SQL), nil)
	defer application.Close()

	srv := httptest.NewServer(server.NewRouter(application, []string{"*"}))
	defer srv.Close()
	c := client{t: t, base: srv.URL}

	var a, b app.Snapshot
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/api/instances", nil, &a))
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/api/instances", nil, &b))
	assert.True(t, a.Synced)

	// A drops a suggestion; B renders the same week and the shared pantry.
	payload, err := dragdrop.Encode(dragdrop.Suggestion{Card: week.MealCard{
		Title: "Veggie Omelette", Meal: "Breakfast", Calories: 320, Ingredients: []string{"Eggs", "Spinach"},
	}})
	require.NoError(t, err)
	var drop struct {
		Applied bool `json:"applied"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/api/instances/"+a.ID+"/drop",
		gin.H{"day": 0, "slot": "Breakfast", "payload": string(payload)}, &drop))
	require.True(t, drop.Applied)

	got := c.week(b.ID)
	require.NotNil(t, got[0].Breakfast)
	assert.Equal(t, "Veggie Omelette", got[0].Breakfast.Title)
	assert.ElementsMatch(t, []string{"Eggs", "Spinach"}, c.pantry(b.ID))

	// B moves it; A follows.
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/api/instances/"+b.ID+"/week/move",
		gin.H{"fromDay": 0, "fromSlot": "Breakfast", "toDay": 6, "toSlot": "Dinner"}, nil))
	got = c.week(a.ID)
	assert.Nil(t, got[0].Breakfast)
	require.NotNil(t, got[6].Dinner)

	// A closed view no longer follows.
	require.Equal(t, http.StatusNoContent, c.call(http.MethodDelete, "/api/instances/"+a.ID, nil, nil))
	require.Equal(t, http.StatusOK, c.call(http.MethodDelete, "/api/instances/"+b.ID+"/week", nil, nil))
	assert.True(t, application.LoadWeek(auth.AnonymousUser).IsEmpty())

	// A reopened view starts from the persisted state.
	var reopened app.Snapshot
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/api/instances", nil, &reopened))
	assert.True(t, reopened.Week.IsEmpty())
}

func TestWebsocketRelaysWeekUpdates(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "savr.db"))
	require.NoError(t, err)
	application := app.Assemble(db, storage.NewMemoryStore(), nil)
	defer application.Close()

	srv := httptest.NewServer(server.NewRouter(application, []string{"*"}))
	defer srv.Close()
	c := client{t: t, base: srv.URL}

	var view app.Snapshot
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/api/instances", nil, &view))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/channel", nil)
	require.NoError(t, err)
	defer conn.Close()

	// A frame from the socket reaches the server-side view.
	var remote week.Grid
	remote[3].Lunch = &week.MealCard{Title: "Lentil Soup", Ingredients: []string{"Lentils"}}
	msg, err := week.EncodeUpdate(remote)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	require.Eventually(t, func() bool {
		g := c.week(view.ID)
		return g[3].Lunch != nil && g[3].Lunch.Title == "Lentil Soup"
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"Lentils"}, c.pantry(view.ID))

	// Garbage frames are ignored by the view.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"week:update","week":[]}`)))

	// A commit by the view reaches the socket.
	require.Equal(t, http.StatusOK, c.call(http.MethodPut, "/api/instances/"+view.ID+"/week/slots/5/Dinner",
		week.MealCard{Title: "Tacos"}, nil))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	g, ok := week.DecodeUpdate(data)
	require.True(t, ok)
	require.NotNil(t, g[5].Dinner)
	assert.Equal(t, "Tacos", g[5].Dinner.Title)
	require.NotNil(t, g[3].Lunch, "the socket's own update is part of the grid")
}
