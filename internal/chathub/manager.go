package chathub

import (
	"context"
	"log/slog"

	"relaychat/backend/internal/models"
)

// ManagerService owns the in-memory realtime state: which connection
// is addressable for each user and which connections listen to each chat.
type ManagerService struct {
	registry *Registry
	rooms    *Rooms

	relay           Relay
	closeSuperseded bool
	log             *slog.Logger
}

func NewManagerService(log *slog.Logger, closeSuperseded bool) *ManagerService {
	if log == nil {
		log = slog.Default()
	}
	return &ManagerService{
		registry:        NewRegistry(),
		rooms:           NewRooms(),
		closeSuperseded: closeSuperseded,
		log:             log.With("component", "chathub"),
	}
}

// SetRelay routes broadcasts through r so that every process sharing it
// delivers to its own connections. Without a relay delivery is process-local.
func (m *ManagerService) SetRelay(r Relay) {
	m.relay = r
}

// Run blocks until ctx is done, consuming the relay if one is set.
func (m *ManagerService) Run(ctx context.Context) error {
	if m.relay == nil {
		<-ctx.Done()
		return nil
	}
	return m.relay.Listen(ctx, m.deliverEnvelope)
}

// Connect registers c as the addressable connection of its user.
func (m *ManagerService) Connect(c Client) {
	prev := m.registry.Register(c)
	m.log.Info("client connected", "user_id", c.GetUserID(), "conn_id", c.GetConnID())

	if prev == nil {
		return
	}
	m.log.Info("connection superseded",
		"user_id", c.GetUserID(),
		"old_conn_id", prev.GetConnID(),
		"new_conn_id", c.GetConnID())
	if m.closeSuperseded {
		m.rooms.LeaveAll(prev)
		prev.Close()
	}
}

// Disconnect forgets c. A connection that was already superseded leaves its
// rooms without touching the newer registration.
func (m *ManagerService) Disconnect(c Client) {
	m.rooms.LeaveAll(c)
	if m.registry.Unregister(c) {
		m.log.Info("client disconnected", "user_id", c.GetUserID(), "conn_id", c.GetConnID())
	}
}

// Join subscribes a specific connection to a chat's events.
func (m *ManagerService) Join(c Client, chatID string) {
	m.rooms.Join(chatID, c)
}

// LeaveRoom unsubscribes every connection of the user from a chat, on every
// process sharing the relay.
func (m *ManagerService) LeaveRoom(ctx context.Context, userID, chatID string) {
	if m.publish(ctx, Envelope{Op: OpLeave, Room: chatID, User: userID}) {
		return
	}
	m.rooms.LeaveUser(chatID, userID)
}

// CloseRoom tears down all subscriptions of a chat, on every process sharing the relay.
func (m *ManagerService) CloseRoom(ctx context.Context, chatID string) {
	if m.publish(ctx, Envelope{Op: OpClose, Room: chatID}) {
		return
	}
	m.rooms.Drop(chatID)
}

// IsOnline reports whether the user has an addressable connection here.
func (m *ManagerService) IsOnline(userID string) bool {
	return len(m.registry.Lookup(userID)) > 0
}

// OnlineCount returns the number of addressable users on this process.
func (m *ManagerService) OnlineCount() int {
	return m.registry.Len()
}

// Broadcast delivers ev to every connection subscribed to chatID.
func (m *ManagerService) Broadcast(ctx context.Context, chatID string, ev models.Event) {
	if m.publish(ctx, Envelope{Room: chatID, Event: ev}) {
		return
	}
	m.deliverRoom(chatID, ev)
}

// SendToUser delivers ev to the user's connection. Offline users are skipped
// silently; the return value reports whether anything was handed off.
func (m *ManagerService) SendToUser(ctx context.Context, userID string, ev models.Event) bool {
	if m.publish(ctx, Envelope{User: userID, Event: ev}) {
		return true
	}
	return m.deliverUser(userID, ev)
}

func (m *ManagerService) publish(ctx context.Context, env Envelope) bool {
	if m.relay == nil {
		return false
	}
	if err := m.relay.Publish(ctx, env); err != nil {
		m.log.Warn("relay publish failed, applying locally", "op", env.Op, "event", env.Event.Name, "error", err)
		return false
	}
	return true
}

func (m *ManagerService) deliverEnvelope(env Envelope) {
	switch {
	case env.Op == OpLeave:
		m.rooms.LeaveUser(env.Room, env.User)
	case env.Op == OpClose:
		m.rooms.Drop(env.Room)
	case env.Op != "":
		m.log.Warn("ignoring envelope with unknown op", "op", env.Op)
	case env.Room != "":
		m.deliverRoom(env.Room, env.Event)
	case env.User != "":
		m.deliverUser(env.User, env.Event)
	}
}

func (m *ManagerService) deliverRoom(chatID string, ev models.Event) int {
	delivered := 0
	for _, c := range m.rooms.Subscribers(chatID) {
		if c.Send(ev) {
			delivered++
		} else {
			m.log.Debug("dropped event for closed client", "event", ev.Name, "conn_id", c.GetConnID())
		}
	}
	return delivered
}

func (m *ManagerService) deliverUser(userID string, ev models.Event) bool {
	delivered := false
	for _, c := range m.registry.Lookup(userID) {
		if c.Send(ev) {
			delivered = true
		}
	}
	return delivered
}
