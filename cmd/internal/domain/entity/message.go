package entity

type Message struct {
	ID         string `gorm:"primaryKey;autoIncrement:false"`
	ChatRoomID string `gorm:"not null;index"`
	SenderID   string `gorm:"not null;index"`
	Content    string `gorm:"not null"`
	CreatedAt  int64  `gorm:"not null;autoCreateTime:false"`
}
