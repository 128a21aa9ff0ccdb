package repository

import (
	"fmt"
	"testing"

	"ephemchat/cmd/internal/domain/entity"
	"ephemchat/cmd/internal/domain/sqlite"

	"github.com/tj/assert"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.Init(":memory:")
	assert.Nil(t, err)
	return db
}

func TestMessageRepository(t *testing.T) {
	repo := NewMessageRepository(openDB(t))

	for i := 0; i < 5; i++ {
		err := repo.Save(&entity.Message{
			ID:         fmt.Sprintf("m%d", i),
			ChatRoomID: "r1",
			SenderID:   "u1",
			Content:    fmt.Sprintf("hello %d", i),
			CreatedAt:  int64(1000 + i),
		})
		assert.Nil(t, err)
	}
	assert.Nil(t, repo.Save(&entity.Message{ID: "other", ChatRoomID: "r2", SenderID: "u2", Content: "x", CreatedAt: 1}))

	// ids are unique
	assert.NotNil(t, repo.Save(&entity.Message{ID: "m0", ChatRoomID: "r1", SenderID: "u1", Content: "dup", CreatedAt: 1}))

	msgs, err := repo.FindByRoom("r1", 3)
	assert.Nil(t, err)
	assert.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, "m4", msgs[2].ID)
}

func TestRoomRepository(t *testing.T) {
	repo := NewRoomRepository(openDB(t))

	assert.Nil(t, repo.AddMember("u1", "r1", 100))
	assert.Nil(t, repo.AddMember("u2", "r1", 200))
	// re-adding keeps the original row
	assert.Nil(t, repo.AddMember("u1", "r1", 300))

	members, err := repo.FindMembers("r1")
	assert.Nil(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, "u1", members[0].UserID)
	assert.EqualValues(t, 100, members[0].JoinedAt)
	assert.False(t, members[0].IsOnline)

	assert.Nil(t, repo.UpdatePresence("u1", "r1", true, 400))
	members, _ = repo.FindMembers("r1")
	assert.True(t, members[0].IsOnline)
	assert.EqualValues(t, 400, members[0].LastSeenAt)

	assert.Nil(t, repo.UpdatePresence("u1", "r1", false, 500))
	members, _ = repo.FindMembers("r1")
	assert.False(t, members[0].IsOnline)

	// non-members are a no-op
	assert.Nil(t, repo.UpdatePresence("ghost", "r1", true, 600))
	members, _ = repo.FindMembers("r1")
	assert.Len(t, members, 2)

	members, err = repo.FindMembers("empty")
	assert.Nil(t, err)
	assert.Empty(t, members)
}
