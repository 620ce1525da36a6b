// Package chat is the WebSocket chat surface: clients send text commands and
// receive the messages tables post to their channel.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lox/holdembot/internal/table"
)

// Envelope kinds.
const (
	KindPost    = "post"
	KindUpdate  = "update"
	KindDelete  = "delete"
	KindPrivate = "private"
	KindReply   = "reply"
)

// Envelope is the JSON frame sent to clients.
type Envelope struct {
	Kind    string      `json:"kind"`
	ID      string      `json:"id,omitempty"`
	Channel string      `json:"channel,omitempty"`
	Text    string      `json:"text,omitempty"`
	Info    *table.Info `json:"info,omitempty"`
}

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrNotConnected   = errors.New("user is not connected")
)

// Hub tracks connected clients and implements table.Messenger by fanning
// messages out to every client subscribed to a channel.
type Hub struct {
	logger zerolog.Logger
	seq    atomic.Uint64

	mu      sync.RWMutex
	clients map[*Conn]struct{}
	// channel of every status message that may still be edited
	editable map[table.Handle]string
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:   logger.With().Str("component", "hub").Logger(),
		clients:  make(map[*Conn]struct{}),
		editable: make(map[table.Handle]string),
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info().Str("user", c.UserID()).Int("total", total).Msg("Client connected")
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info().Str("user", c.UserID()).Int("total", total).Msg("Client disconnected")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Post sends msg to every client subscribed to channel.
func (h *Hub) Post(_ context.Context, channel string, msg table.Message) (table.Handle, error) {
	handle := table.Handle(fmt.Sprintf("m%d", h.seq.Add(1)))
	if msg.Info != nil {
		h.mu.Lock()
		h.editable[handle] = channel
		h.mu.Unlock()
	}
	h.broadcast(channel, Envelope{Kind: KindPost, ID: string(handle), Channel: channel, Text: msg.Text, Info: msg.Info})
	return handle, nil
}

// Update replaces the content of a status message.
func (h *Hub) Update(_ context.Context, handle table.Handle, msg table.Message) error {
	h.mu.RLock()
	channel, ok := h.editable[handle]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("update %s: %w", handle, ErrUnknownMessage)
	}
	h.broadcast(channel, Envelope{Kind: KindUpdate, ID: string(handle), Channel: channel, Text: msg.Text, Info: msg.Info})
	return nil
}

// Delete removes a status message.
func (h *Hub) Delete(_ context.Context, handle table.Handle) error {
	h.mu.Lock()
	channel, ok := h.editable[handle]
	delete(h.editable, handle)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("delete %s: %w", handle, ErrUnknownMessage)
	}
	h.broadcast(channel, Envelope{Kind: KindDelete, ID: string(handle), Channel: channel})
	return nil
}

// PostPrivate sends msg to every connection of userID.
func (h *Hub) PostPrivate(_ context.Context, channel, userID string, msg table.Message) error {
	env := Envelope{Kind: KindPrivate, ID: fmt.Sprintf("m%d", h.seq.Add(1)), Channel: channel, Text: msg.Text}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients {
		if c.UserID() == userID {
			c.send(env)
			sent++
		}
	}
	if sent == 0 {
		return fmt.Errorf("%s: %w", userID, ErrNotConnected)
	}
	return nil
}

func (h *Hub) broadcast(channel string, env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for c := range h.clients {
		if c.Channel() == channel {
			c.send(env)
			count++
		}
	}
	h.logger.Debug().Str("channel", channel).Str("kind", env.Kind).Int("recipients", count).Msg("Broadcast")
}
