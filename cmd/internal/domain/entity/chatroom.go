package entity

// ChatRoomUser records a user's membership of a room together with
// the last known online flag for that room.
type ChatRoomUser struct {
	ID         int64  `gorm:"primaryKey"`
	UserID     string `gorm:"not null;uniqueIndex:idx_room_user"`
	ChatRoomID string `gorm:"not null;uniqueIndex:idx_room_user;index"`
	IsOnline   bool   `gorm:"not null"`
	JoinedAt   int64  `gorm:"not null"`
	LastSeenAt int64  `gorm:"not null"`
}
