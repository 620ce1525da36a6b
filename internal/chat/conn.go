package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum command size allowed from peer
	maxMessageSize = 1024
)

// Conn is one chat client. It is also the Session commands run against.
type Conn struct {
	ws     *websocket.Conn
	out    chan Envelope
	userID string
	name   string
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	tableID string
	channel string
}

func newConn(ws *websocket.Conn, userID, name string, logger zerolog.Logger) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		ws:     ws,
		out:    make(chan Envelope, 256),
		userID: userID,
		name:   name,
		logger: logger.With().Str("component", "conn").Str("user", userID).Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Conn) UserID() string { return c.userID }
func (c *Conn) Name() string   { return c.name }

// TableID returns the table this client last opened or joined.
func (c *Conn) TableID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

// Channel returns the channel this client receives table messages from.
func (c *Conn) Channel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Subscribe points the client at a table and its channel. Empty values
// unsubscribe.
func (c *Conn) Subscribe(tableID, channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID, c.channel = tableID, channel
}

// Reply sends text to this client only.
func (c *Conn) Reply(text string) {
	c.send(Envelope{Kind: KindReply, Text: text})
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} { return c.ctx.Done() }

// Close shuts the connection down.
func (c *Conn) Close() {
	c.cancel()
}

// send queues an envelope without blocking. A client that falls behind is
// disconnected.
func (c *Conn) send(env Envelope) {
	select {
	case <-c.ctx.Done():
	case c.out <- env:
	default:
		c.logger.Warn().Msg("Send buffer full, closing connection")
		c.cancel()
	}
}

func (c *Conn) readPump(handle func(ctx context.Context, line string)) {
	defer c.cancel()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket error")
			}
			return
		}
		handle(c.ctx, string(data))
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case env := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to write message")
				c.cancel()
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}

		case <-c.ctx.Done():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
