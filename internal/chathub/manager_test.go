package chathub_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/backend/internal/chathub"
	"relaychat/backend/internal/models"
)

func newHub(closeSuperseded bool) *chathub.ManagerService {
	return chathub.NewManagerService(nil, closeSuperseded)
}

func TestManager_BroadcastReachesRoomOnly(t *testing.T) {
	hub := newHub(true)
	a := newMockClient("alice", "c1")
	b := newMockClient("bob", "c2")
	c := newMockClient("carol", "c3")
	for _, cl := range []*mockClient{a, b, c} {
		hub.Connect(cl)
	}
	hub.Join(a, "chat1")
	hub.Join(b, "chat1")

	hub.Broadcast(context.Background(), "chat1", models.Event{Name: models.EventNewMessage})

	assert.Equal(t, []string{models.EventNewMessage}, a.EventNames())
	assert.Equal(t, []string{models.EventNewMessage}, b.EventNames())
	assert.Empty(t, c.Events())
}

func TestManager_ConnectClosesSuperseded(t *testing.T) {
	hub := newHub(true)
	first := newMockClient("alice", "c1")
	second := newMockClient("alice", "c2")

	hub.Connect(first)
	hub.Join(first, "chat1")
	hub.Connect(second)

	assert.True(t, first.IsClosed())
	assert.False(t, second.IsClosed())

	hub.Broadcast(context.Background(), "chat1", models.Event{Name: models.EventNewMessage})
	assert.Empty(t, first.Events())

	assert.True(t, hub.SendToUser(context.Background(), "alice", models.Event{Name: models.EventIncomingCall}))
	assert.Equal(t, []string{models.EventIncomingCall}, second.EventNames())
}

func TestManager_SupersededKeptOpenStillGetsRoomEvents(t *testing.T) {
	hub := newHub(false)
	first := newMockClient("alice", "c1")
	second := newMockClient("alice", "c2")

	hub.Connect(first)
	hub.Join(first, "chat1")
	hub.Connect(second)

	assert.False(t, first.IsClosed())
	hub.Broadcast(context.Background(), "chat1", models.Event{Name: models.EventNewMessage})
	assert.Equal(t, []string{models.EventNewMessage}, first.EventNames())

	hub.SendToUser(context.Background(), "alice", models.Event{Name: models.EventIncomingCall})
	assert.NotContains(t, first.EventNames(), models.EventIncomingCall)
}

func TestManager_StaleDisconnectKeepsNewConnection(t *testing.T) {
	hub := newHub(false)
	first := newMockClient("alice", "c1")
	second := newMockClient("alice", "c2")
	hub.Connect(first)
	hub.Connect(second)

	hub.Disconnect(first)

	assert.True(t, hub.IsOnline("alice"))
	hub.Disconnect(second)
	assert.False(t, hub.IsOnline("alice"))
	assert.Equal(t, 0, hub.OnlineCount())
}

func TestManager_DisconnectLeavesRooms(t *testing.T) {
	hub := newHub(true)
	a := newMockClient("alice", "c1")
	hub.Connect(a)
	hub.Join(a, "chat1")
	hub.Disconnect(a)

	hub.Broadcast(context.Background(), "chat1", models.Event{Name: models.EventNewMessage})
	assert.Empty(t, a.Events())
}

func TestManager_SendToUserOffline(t *testing.T) {
	hub := newHub(true)
	assert.False(t, hub.SendToUser(context.Background(), "ghost", models.Event{Name: models.EventIncomingCall}))
}

func TestManager_LeaveRoomAndCloseRoom(t *testing.T) {
	hub := newHub(true)
	a := newMockClient("alice", "c1")
	b := newMockClient("bob", "c2")
	hub.Connect(a)
	hub.Connect(b)
	hub.Join(a, "group")
	hub.Join(b, "group")

	hub.LeaveRoom(context.Background(), "bob", "group")
	hub.Broadcast(context.Background(), "group", models.Event{Name: models.EventNewMessage})
	assert.Len(t, a.Events(), 1)
	assert.Empty(t, b.Events())

	hub.CloseRoom(context.Background(), "group")
	hub.Broadcast(context.Background(), "group", models.Event{Name: models.EventNewMessage})
	assert.Len(t, a.Events(), 1)
}

// loopRelay delivers published envelopes back to its listener in-process.
type loopRelay struct {
	mu        sync.Mutex
	deliver   func(chathub.Envelope)
	ready     chan struct{}
	failNext  bool
	published int
}

func newLoopRelay() *loopRelay { return &loopRelay{ready: make(chan struct{})} }

func (l *loopRelay) Publish(_ context.Context, env chathub.Envelope) error {
	l.mu.Lock()
	if l.failNext {
		l.failNext = false
		l.mu.Unlock()
		return errors.New("relay down")
	}
	l.published++
	deliver := l.deliver
	l.mu.Unlock()
	if deliver != nil {
		deliver(env)
	}
	return nil
}

func (l *loopRelay) Listen(ctx context.Context, deliver func(chathub.Envelope)) error {
	l.mu.Lock()
	l.deliver = deliver
	l.mu.Unlock()
	close(l.ready)
	<-ctx.Done()
	return nil
}

func TestManager_BroadcastThroughRelay(t *testing.T) {
	hub := newHub(true)
	relay := newLoopRelay()
	hub.SetRelay(relay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	select {
	case <-relay.ready:
	case <-time.After(time.Second):
		t.Fatal("relay listener did not start")
	}

	a := newMockClient("alice", "c1")
	hub.Connect(a)
	hub.Join(a, "chat1")

	hub.Broadcast(ctx, "chat1", models.Event{Name: models.EventNewMessage})
	hub.SendToUser(ctx, "alice", models.Event{Name: models.EventChatCreated})

	assert.Equal(t, []string{models.EventNewMessage, models.EventChatCreated}, a.EventNames())
	assert.Equal(t, 2, relay.published)
}

func TestManager_RelayFailureFallsBackToLocal(t *testing.T) {
	hub := newHub(true)
	relay := newLoopRelay()
	relay.failNext = true
	hub.SetRelay(relay)

	a := newMockClient("alice", "c1")
	hub.Connect(a)
	hub.Join(a, "chat1")

	hub.Broadcast(context.Background(), "chat1", models.Event{Name: models.EventNewMessage})

	assert.Equal(t, []string{models.EventNewMessage}, a.EventNames())
}

// busRelay is one process's handle on an in-memory channel shared by
// several hubs. Publish reaches every listener, the sender included.
type busRelay struct {
	bus   *bus
	ready chan struct{}
}

type bus struct {
	mu        sync.Mutex
	listeners []func(chathub.Envelope)
}

func (b *bus) attach() *busRelay { return &busRelay{bus: b, ready: make(chan struct{})} }

func (r *busRelay) Publish(_ context.Context, env chathub.Envelope) error {
	r.bus.mu.Lock()
	listeners := append([]func(chathub.Envelope){}, r.bus.listeners...)
	r.bus.mu.Unlock()
	for _, deliver := range listeners {
		deliver(env)
	}
	return nil
}

func (r *busRelay) Listen(ctx context.Context, deliver func(chathub.Envelope)) error {
	r.bus.mu.Lock()
	r.bus.listeners = append(r.bus.listeners, deliver)
	r.bus.mu.Unlock()
	close(r.ready)
	<-ctx.Done()
	return nil
}

func startOnBus(t *testing.T, ctx context.Context, b *bus) *chathub.ManagerService {
	t.Helper()
	hub := newHub(true)
	relay := b.attach()
	hub.SetRelay(relay)
	go hub.Run(ctx)
	select {
	case <-relay.ready:
	case <-time.After(time.Second):
		t.Fatal("relay listener did not start")
	}
	return hub
}

func TestManager_LeaveRoomReachesOtherInstances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shared := &bus{}
	local := startOnBus(t, ctx, shared)
	remote := startOnBus(t, ctx, shared)

	admin := newMockClient("admin", "c1")
	carol := newMockClient("carol", "c2")
	local.Connect(admin)
	local.Join(admin, "group")
	remote.Connect(carol)
	remote.Join(carol, "group")

	local.LeaveRoom(ctx, "carol", "group")
	local.SendToUser(ctx, "carol", models.Event{Name: models.EventGroupLeft})
	local.Broadcast(ctx, "group", models.Event{Name: models.EventNewMessage})

	require.Equal(t, []string{models.EventGroupLeft}, carol.EventNames())
	assert.Equal(t, []string{models.EventNewMessage}, admin.EventNames())
}

func TestManager_CloseRoomReachesOtherInstances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shared := &bus{}
	local := startOnBus(t, ctx, shared)
	remote := startOnBus(t, ctx, shared)

	a := newMockClient("alice", "c1")
	b := newMockClient("bob", "c2")
	local.Connect(a)
	local.Join(a, "group")
	remote.Connect(b)
	remote.Join(b, "group")
	remote.Join(b, "other")

	local.CloseRoom(ctx, "group")
	local.Broadcast(ctx, "group", models.Event{Name: models.EventNewMessage})
	local.Broadcast(ctx, "other", models.Event{Name: models.EventMessageRead})

	assert.Empty(t, a.Events())
	require.Equal(t, []string{models.EventMessageRead}, b.EventNames())
}
