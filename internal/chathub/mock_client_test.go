package chathub_test

import (
	"sync"

	"relaychat/backend/internal/models"
)

// mockClient records everything sent to it.
type mockClient struct {
	userID string
	connID string

	mu       sync.Mutex
	received []models.Event
	closed   bool
	closes   int
}

func newMockClient(userID, connID string) *mockClient {
	return &mockClient{userID: userID, connID: connID}
}

func (m *mockClient) GetUserID() string { return m.userID }
func (m *mockClient) GetConnID() string { return m.connID }
func (m *mockClient) Run()              {}

func (m *mockClient) Send(ev models.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.received = append(m.received, ev)
	return true
}

func (m *mockClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closes++
}

func (m *mockClient) Events() []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Event(nil), m.received...)
}

func (m *mockClient) EventNames() []string {
	var names []string
	for _, ev := range m.Events() {
		names = append(names, ev.Name)
	}
	return names
}

func (m *mockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
