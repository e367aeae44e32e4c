package week

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savr-devTeam/savr.ai/internal/storage"
)

// pipe is a two-ended channel: posting on one end delivers to the other.
type pipe struct {
	peer     *pipe
	handlers []func([]byte)
	posted   [][]byte
}

func newPipe() (*pipe, *pipe) {
	a, b := &pipe{}, &pipe{}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipe) Post(msg []byte) error {
	p.posted = append(p.posted, msg)
	for _, h := range p.peer.handlers {
		h(msg)
	}
	return nil
}

func (p *pipe) Subscribe(h func([]byte)) {
	p.handlers = append(p.handlers, h)
}

func TestBroadcastRoundTrip(t *testing.T) {
	chA, chB := newPipe()

	storeA := NewStore(storage.NewMemoryStore())
	storeB := NewStore(storage.NewMemoryStore())

	pubA := NewBroadcaster(chA)
	storeA.OnCommit(pubA.Publish)
	NewBroadcaster(chB).OnReceive(func(g Grid) { storeB.Apply(g) })

	_, err := storeA.PlaceSuggestion(0, Breakfast, oatmeal)
	require.NoError(t, err)
	_, err = storeA.PlaceSuggestion(4, Dinner, salmon)
	require.NoError(t, err)

	assert.Equal(t, storeA.Grid(), storeB.Grid())
	assert.Empty(t, chB.posted, "applying a remote grid must not republish")
}

func TestDecodeUpdateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{name: "NotJSON", msg: "{nope"},
		{name: "OtherType", msg: `{"type":"pantry:update","week":[{},{},{},{},{},{},{}]}`},
		{name: "MissingWeek", msg: `{"type":"week:update"}`},
		{name: "ShortWeek", msg: `{"type":"week:update","week":[{},{}]}`},
		{name: "WeekNotArray", msg: `{"type":"week:update","week":{"0":{}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := DecodeUpdate([]byte(tt.msg))
			assert.False(t, ok)
		})
	}

	t.Run("Valid", func(t *testing.T) {
		g, ok := DecodeUpdate([]byte(`{"type":"week:update","week":[{"Breakfast":{"title":"Toast","cals":200,"p":6,"c":30,"f":5}},{},{},{},{},{},{}]}`))
		require.True(t, ok)
		require.NotNil(t, g[0].Breakfast)
		assert.Equal(t, "Toast", g[0].Breakfast.Title)
	})
}

func TestMalformedMessagesAreIgnored(t *testing.T) {
	chA, chB := newPipe()
	received := 0
	NewBroadcaster(chB).OnReceive(func(Grid) { received++ })

	require.NoError(t, chA.Post([]byte(`{"type":"week:update","week":[1,2,3]}`)))
	require.NoError(t, chA.Post([]byte(`garbage`)))
	assert.Zero(t, received)
}

func TestNilChannelIsNoop(t *testing.T) {
	b := NewBroadcaster(nil)
	assert.False(t, b.Enabled())
	b.Publish(Empty())
	b.OnReceive(func(Grid) { t.Fatal("handler must never run") })

	var nilBroadcaster *Broadcaster
	nilBroadcaster.Publish(Empty())
}
