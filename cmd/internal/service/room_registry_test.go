package service

import (
	"testing"

	"github.com/tj/assert"
)

func TestRoomRegistry(t *testing.T) {
	r := NewRoomRegistry()

	assert.True(t, r.Join("r1", "a"))
	assert.False(t, r.Join("r1", "a"))
	assert.True(t, r.Join("r1", "b"))
	assert.True(t, r.Join("r2", "a"))

	assert.Equal(t, []string{"a", "b"}, r.Members("r1"))
	assert.Equal(t, []string{"r1", "r2"}, r.RoomsOf("a"))
	assert.True(t, r.IsMember("r2", "a"))

	assert.True(t, r.Leave("r1", "b"))
	assert.False(t, r.Leave("r1", "b"))
	assert.False(t, r.Leave("nope", "b"))
	assert.Empty(t, r.RoomsOf("b"))

	assert.Equal(t, []string{"r1", "r2"}, r.LeaveAll("a"))
	assert.Empty(t, r.Members("r1"))
	assert.Empty(t, r.LeaveAll("a"))
}
