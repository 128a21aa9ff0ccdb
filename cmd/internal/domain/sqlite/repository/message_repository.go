package repository

import (
	"ephemchat/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *DefaultMessageRepository {
	return &DefaultMessageRepository{db: db}
}

func (d *DefaultMessageRepository) Save(msg *entity.Message) error {
	return d.db.Create(msg).Error
}

// FindByRoom returns the latest messages of a room, oldest first.
func (d *DefaultMessageRepository) FindByRoom(roomID string, limit int) ([]*entity.Message, error) {
	var msgs []*entity.Message
	err := d.db.Where("chat_room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
