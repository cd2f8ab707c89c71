package chathub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/config"
	"relaychat/backend/internal/models"
)

// WebSocketClient implements Client over a gorilla websocket.
type WebSocketClient struct {
	UserID  string
	ConnID  string
	Conn    *websocket.Conn
	Hub     *ManagerService
	Handler EventHandler
	// Lang selects the language of error frames.
	Lang string

	send   chan models.Event
	mu     sync.Mutex
	closed bool
	log    *slog.Logger
}

func NewWebSocketClient(userID string, conn *websocket.Conn, hub *ManagerService, h EventHandler, log *slog.Logger) *WebSocketClient {
	if log == nil {
		log = slog.Default()
	}
	connID := uuid.NewString()
	return &WebSocketClient{
		UserID:  userID,
		ConnID:  connID,
		Conn:    conn,
		Hub:     hub,
		Handler: h,
		send:    make(chan models.Event, config.WSSendBufferSize),
		log:     log.With("user_id", userID, "conn_id", connID),
	}
}

func (c *WebSocketClient) GetUserID() string { return c.UserID }
func (c *WebSocketClient) GetConnID() string { return c.ConnID }
func (c *WebSocketClient) Language() string  { return c.Lang }

func (c *WebSocketClient) Send(ev models.Event) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	select {
	case c.send <- ev:
		c.mu.Unlock()
		return true
	default:
	}
	c.mu.Unlock()

	c.log.Warn("send buffer full, closing slow connection", "event", ev.Name)
	c.Close()
	return false
}

// Run starts the pumps. The read pump runs handler callbacks inline, so
// events from one connection are processed in the order they arrive.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which closes the socket and ends the read pump.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Disconnect(c)
		if c.Handler != nil {
			c.Handler.ClientDisconnected(c)
		}
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.WSMaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		var ev models.InboundEvent
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Name == "" {
			c.log.Debug("ignoring malformed frame", "error", err)
			c.Send(models.Event{Name: models.EventError, Data: models.ErrorPayload{
				Kind:    apperr.KindValidation.String(),
				Message: "malformed frame",
			}})
			continue
		}
		if c.Handler != nil {
			c.Handler.HandleClientEvent(c, ev)
		}
	}
}

// writePump writes one JSON frame per event and keeps the connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.WSPingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				c.log.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
