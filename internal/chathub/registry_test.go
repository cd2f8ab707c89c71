package chathub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"relaychat/backend/internal/chathub"
)

func TestRegistry_RegisterSupersedes(t *testing.T) {
	r := chathub.NewRegistry()
	first := newMockClient("alice", "c1")
	second := newMockClient("alice", "c2")

	assert.Nil(t, r.Register(first))
	assert.Equal(t, first, r.Register(second))
	assert.Equal(t, []chathub.Client{second}, r.Lookup("alice"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RegisterSameClientTwice(t *testing.T) {
	r := chathub.NewRegistry()
	c := newMockClient("alice", "c1")

	r.Register(c)
	assert.Nil(t, r.Register(c))
}

func TestRegistry_StaleUnregisterIsNoop(t *testing.T) {
	r := chathub.NewRegistry()
	first := newMockClient("alice", "c1")
	second := newMockClient("alice", "c2")
	r.Register(first)
	r.Register(second)

	assert.False(t, r.Unregister(first))
	assert.Equal(t, []chathub.Client{second}, r.Lookup("alice"))

	assert.True(t, r.Unregister(second))
	assert.Empty(t, r.Lookup("alice"))
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := chathub.NewRegistry()
	assert.Empty(t, r.Lookup("nobody"))
}
