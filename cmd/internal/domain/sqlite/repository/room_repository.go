package repository

import (
	"ephemchat/cmd/internal/domain/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultRoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *DefaultRoomRepository {
	return &DefaultRoomRepository{db: db}
}

// AddMember upserts a membership row, leaving an existing one untouched.
func (d *DefaultRoomRepository) AddMember(userID, roomID string, now int64) error {
	member := &entity.ChatRoomUser{
		UserID:     userID,
		ChatRoomID: roomID,
		JoinedAt:   now,
		LastSeenAt: now,
	}
	return d.db.Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
}

// UpdatePresence flips the online flag on the user's membership row, if any.
func (d *DefaultRoomRepository) UpdatePresence(userID, roomID string, isOnline bool, now int64) error {
	return d.db.Model(&entity.ChatRoomUser{}).
		Where("user_id = ? AND chat_room_id = ?", userID, roomID).
		Updates(map[string]interface{}{
			"is_online":    isOnline,
			"last_seen_at": now,
		}).Error
}

func (d *DefaultRoomRepository) FindMembers(roomID string) ([]*entity.ChatRoomUser, error) {
	var members []*entity.ChatRoomUser
	err := d.db.Where("chat_room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
