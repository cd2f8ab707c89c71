package chathub

import "sync"

// Registry maps an identity to its single addressable connection.
// The latest connection for an identity supersedes the previous one.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register makes c the addressable connection for its user and returns the
// connection it replaced, if any.
func (r *Registry) Register(c Client) (superseded Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.clients[c.GetUserID()]
	r.clients[c.GetUserID()] = c
	if ok && prev != c {
		return prev
	}
	return nil
}

// Unregister removes c only if it is still the registered connection for its
// user, so a stale disconnect cannot clobber a newer connection.
func (r *Registry) Unregister(c Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.clients[c.GetUserID()]; ok && cur == c {
		delete(r.clients, c.GetUserID())
		return true
	}
	return false
}

// Lookup returns the user's connections: zero or one under the current policy.
func (r *Registry) Lookup(userID string) []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[userID]; ok {
		return []Client{c}
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
