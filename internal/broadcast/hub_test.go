package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostReachesPeersButNotSender(t *testing.T) {
	hub := NewHub()
	a := hub.Open("savr:alice")
	b := hub.Open("savr:alice")
	c := hub.Open("savr:alice")
	other := hub.Open("savr:bob")

	var gotA, gotB, gotC, gotOther []string
	a.Subscribe(func(m []byte) { gotA = append(gotA, string(m)) })
	b.Subscribe(func(m []byte) { gotB = append(gotB, string(m)) })
	c.Subscribe(func(m []byte) { gotC = append(gotC, string(m)) })
	other.Subscribe(func(m []byte) { gotOther = append(gotOther, string(m)) })

	require.NoError(t, a.Post([]byte("hello")))

	assert.Empty(t, gotA, "sender must not receive its own message")
	assert.Equal(t, []string{"hello"}, gotB)
	assert.Equal(t, []string{"hello"}, gotC)
	assert.Empty(t, gotOther, "different channel names are isolated")
}

func TestCloseReleasesChannel(t *testing.T) {
	hub := NewHub()
	a := hub.Open("savr")
	b := hub.Open("savr")
	assert.Equal(t, 2, hub.Members("savr"))

	received := 0
	b.Subscribe(func([]byte) { received++ })
	b.Close()
	b.Close()

	assert.Equal(t, 1, hub.Members("savr"))
	require.NoError(t, a.Post([]byte("x")))
	assert.Zero(t, received)
	assert.ErrorIs(t, b.Post([]byte("x")), ErrClosed)

	a.Close()
	assert.Zero(t, hub.Members("savr"))
}

func TestNilChannelIsUnavailable(t *testing.T) {
	var ch *Channel
	assert.NoError(t, ch.Post([]byte("x")))
	ch.Subscribe(func([]byte) {})
	ch.Close()
	assert.Equal(t, "", ch.Name())
}

func TestServeConnBridgesWebsocket(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = ServeConn(conn, hub.Open("savr:alice"))
	}))
	defer srv.Close()

	local := hub.Open("savr:alice")
	fromSocket := make(chan string, 1)
	local.Subscribe(func(m []byte) { fromSocket <- string(m) })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Members("savr:alice") == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"week:update"}`)))
	select {
	case m := <-fromSocket:
		assert.Equal(t, `{"type":"week:update"}`, m)
	case <-time.After(2 * time.Second):
		t.Fatal("message from socket never reached the hub")
	}

	require.NoError(t, local.Post([]byte("from-local")))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "from-local", string(data), "socket must not receive its own frame back")

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return hub.Members("savr:alice") == 1 }, 2*time.Second, 10*time.Millisecond)
}
