package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadCursor(t *testing.T) {
	c := NewReadCursor("sg_1", "alice", 10)
	assert.False(t, c.HasRead(10))
	assert.False(t, c.HasRead(11))

	assert.True(t, c.Advance(15))
	assert.False(t, c.Advance(12))
	assert.False(t, c.Advance(15))
	assert.Equal(t, int64(15), c.To)

	assert.False(t, c.HasRead(10))
	assert.True(t, c.HasRead(11))
	assert.True(t, c.HasRead(15))
	assert.False(t, c.HasRead(16))

	assert.Equal(t, int64(10), c.FetchFloor(0))
	assert.Equal(t, int64(12), c.FetchFloor(12))
}

func TestConversationIds(t *testing.T) {
	assert.Equal(t, "si_alice:bob", GenPrivateConversationId("bob", "alice"))
	assert.Equal(t, GenPrivateConversationId("alice", "bob"), GenPrivateConversationId("bob", "alice"))
	assert.Equal(t, "sg_42", GenGroupConversationId("42"))

	a, b, ok := PrivatePeers("si_alice:bob")
	assert.True(t, ok)
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	_, _, ok = PrivatePeers("sg_42")
	assert.False(t, ok)
}
