package chathub

import "relaychat/backend/internal/models"

// Client is one open connection of an authenticated user.
// It abstracts the underlying transport so the hub can fan out events
// without knowing about websockets.
type Client interface {
	// GetUserID returns the identity the connection authenticated as.
	GetUserID() string
	// GetConnID returns an id unique to this connection.
	GetConnID() string

	// Send enqueues ev without blocking. It returns false when the
	// connection is closed or too slow to keep up.
	Send(ev models.Event) bool

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the connection down. It is safe to call more than once.
	Close()
}

// EventHandler receives what clients send over their connection.
type EventHandler interface {
	HandleClientEvent(c Client, ev models.InboundEvent)
	ClientDisconnected(c Client)
}
