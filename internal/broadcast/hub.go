// Package broadcast provides same-origin style named channels: a message
// posted on a channel reaches every other open channel with the same name,
// never the sender itself.
package broadcast

import (
	"errors"
	"slices"
	"sync"
)

// ErrClosed is returned when posting on a closed channel.
var ErrClosed = errors.New("broadcast channel is closed")

// Handler receives a message posted by another channel.
type Handler func(msg []byte)

// Hub routes messages between channels that share a name.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Channel]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[*Channel]struct{})}
}

// Open joins the named channel.
func (h *Hub) Open(name string) *Channel {
	c := &Channel{hub: h, name: name}

	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[name]
	if !ok {
		members = make(map[*Channel]struct{})
		h.channels[name] = members
	}
	members[c] = struct{}{}
	return c
}

// Members returns how many channels are open under name.
func (h *Hub) Members(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[name])
}

func (h *Hub) peers(c *Channel) []*Channel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.channels[c.name]
	out := make([]*Channel, 0, len(members))
	for m := range members {
		if m != c {
			out = append(out, m)
		}
	}
	return out
}

func (h *Hub) leave(c *Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.channels[c.name]
	delete(members, c)
	if len(members) == 0 {
		delete(h.channels, c.name)
	}
}

// Channel is one participant of a named channel. A nil *Channel is valid and
// behaves as an unavailable channel: posts and subscriptions do nothing.
type Channel struct {
	hub  *Hub
	name string

	mu       sync.RWMutex
	handlers []Handler
	closed   bool
}

// Name returns the channel name.
func (c *Channel) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Post delivers msg to every other open channel of the same name. Delivery
// is synchronous and unacknowledged.
func (c *Channel) Post(msg []byte) error {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	for _, peer := range c.hub.peers(c) {
		peer.deliver(slices.Clone(msg))
	}
	return nil
}

// Subscribe registers a handler for messages from other channels.
func (c *Channel) Subscribe(handler func(msg []byte)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.handlers = append(c.handlers, handler)
}

// Close leaves the hub and drops all handlers. Close is idempotent.
func (c *Channel) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.handlers = nil
	c.mu.Unlock()

	c.hub.leave(c)
}

func (c *Channel) deliver(msg []byte) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	handlers := slices.Clone(c.handlers)
	c.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}
