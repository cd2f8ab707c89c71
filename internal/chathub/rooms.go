package chathub

import "sync"

type clientSet map[Client]struct{}

// Rooms maps a chat id to the connections subscribed to its events.
// It also tracks the reverse index so a disconnect can leave every room at once.
// Membership here is a delivery concern only; it never authorizes anything.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]clientSet
	joined map[Client]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]clientSet),
		joined: make(map[Client]map[string]struct{}),
	}
}

func (r *Rooms) Join(chatID string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[chatID]; !ok {
		r.rooms[chatID] = make(clientSet)
	}
	r.rooms[chatID][c] = struct{}{}

	if _, ok := r.joined[c]; !ok {
		r.joined[c] = make(map[string]struct{})
	}
	r.joined[c][chatID] = struct{}{}
}

func (r *Rooms) Leave(chatID string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(chatID, c)
}

// LeaveUser removes every connection of userID from the room.
func (r *Rooms) LeaveUser(chatID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.rooms[chatID] {
		if c.GetUserID() == userID {
			r.leaveLocked(chatID, c)
		}
	}
}

// LeaveAll removes c from every room it joined. Calling it twice is a no-op.
func (r *Rooms) LeaveAll(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chatID := range r.joined[c] {
		r.leaveLocked(chatID, c)
	}
	delete(r.joined, c)
}

// Drop tears the whole room down.
func (r *Rooms) Drop(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.rooms[chatID] {
		r.leaveLocked(chatID, c)
	}
	delete(r.rooms, chatID)
}

func (r *Rooms) leaveLocked(chatID string, c Client) {
	if members, ok := r.rooms[chatID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, chatID)
		}
	}
	if chats, ok := r.joined[c]; ok {
		delete(chats, chatID)
		if len(chats) == 0 {
			delete(r.joined, c)
		}
	}
}

// Subscribers returns a snapshot of the room's connections.
func (r *Rooms) Subscribers(chatID string) []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[chatID]
	out := make([]Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}
