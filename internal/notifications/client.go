package notifications

import (
	"log/slog"
	"time"

	"promptlime/internal/middleware"
	"promptlime/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Inbox streams only carry control frames from the browser.
	maxMessageSize = 512
	sendBufferSize = 64
)

var dropNotice = []byte(`{"type":"notifications_dropped","title":"","message":"buffer_full"}`)

// WSHub is the side of a hub a Client needs.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one browser tab subscribed to a user's notification stream.
type Client struct {
	Hub    WSHub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uint
}

// NewClient binds conn to userID on hub.
func NewClient(hub WSHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// ReadPump keeps the read deadline fresh on pongs and returns once the tab
// disconnects. The client is unregistered on the way out.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	extend := func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) }
	c.Conn.SetReadLimit(maxMessageSize)
	_ = extend("")
	c.Conn.SetPongHandler(extend)

	for {
		_, _, err := c.Conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			middleware.Logger.Debug("notification stream read error",
				slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
		}
		return
	}
}

// WritePump delivers queued notifications and pings until Send is closed or
// a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		var err error
		select {
		case msg, open := <-c.Send:
			if !open {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			err = c.write(websocket.TextMessage, msg)
		case <-ticker.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) write(kind int, payload []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(kind, payload)
}

// TrySend queues a message without blocking. A full buffer drops the message
// and queues a notice so the client can re-fetch its inbox.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		middleware.Logger.Warn("notification buffer full, dropped message",
			slog.Uint64("user_id", uint64(c.UserID)))
		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}
