package week

import (
	"encoding/json"
	"log"
)

// ChannelName is the broadcast channel shared by every open board.
const ChannelName = "savr"

// MessageTypeUpdate tags a full-grid update.
const MessageTypeUpdate = "week:update"

// Channel is the publish/subscribe primitive the broadcaster runs on. A
// channel never delivers a message back to its own sender.
type Channel interface {
	Post(msg []byte) error
	Subscribe(handler func(msg []byte))
}

// Message is the wire shape of a broadcast.
type Message struct {
	Type string          `json:"type"`
	Week json.RawMessage `json:"week"`
}

// Broadcaster publishes committed grids to other instances and decodes the
// grids they publish. With a nil channel every method is a no-op.
type Broadcaster struct {
	ch Channel
}

// NewBroadcaster wraps ch. Passing nil yields a single-instance broadcaster.
func NewBroadcaster(ch Channel) *Broadcaster {
	return &Broadcaster{ch: ch}
}

// Enabled reports whether cross-instance sync is available.
func (b *Broadcaster) Enabled() bool {
	return b != nil && b.ch != nil
}

// Publish sends grid to every other instance. Delivery is fire-and-forget.
func (b *Broadcaster) Publish(grid Grid) {
	if !b.Enabled() {
		return
	}
	msg, err := EncodeUpdate(grid)
	if err != nil {
		log.Printf("week: failed to encode broadcast: %v", err)
		return
	}
	if err := b.ch.Post(msg); err != nil {
		log.Printf("week: broadcast dropped: %v", err)
	}
}

// OnReceive calls handler for every well-formed week update from another
// instance. Other message types and malformed weeks are ignored.
func (b *Broadcaster) OnReceive(handler func(Grid)) {
	if !b.Enabled() {
		return
	}
	b.ch.Subscribe(func(msg []byte) {
		g, ok := DecodeUpdate(msg)
		if !ok {
			return
		}
		handler(g)
	})
}

// EncodeUpdate builds a week:update message.
func EncodeUpdate(grid Grid) ([]byte, error) {
	week, err := json.Marshal(grid)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: MessageTypeUpdate, Week: week})
}

// DecodeUpdate parses a week:update message. It reports false for any other
// message type or a week that is not an array of seven days.
func DecodeUpdate(msg []byte) (Grid, bool) {
	var m Message
	if err := json.Unmarshal(msg, &m); err != nil {
		return Grid{}, false
	}
	if m.Type != MessageTypeUpdate || len(m.Week) == 0 {
		return Grid{}, false
	}
	var g Grid
	if err := json.Unmarshal(m.Week, &g); err != nil {
		return Grid{}, false
	}
	return g, true
}
