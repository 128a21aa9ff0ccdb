package contract

const MessageStatusSent = "sent"

type RoomRequest struct {
	RoomID string `json:"roomId" validate:"required,max=128,nospaces"`
}

// SendMessageRequest carries raw user content, the message policy
// (not the struct validator) owns its sanitizing and length rules.
type SendMessageRequest struct {
	RoomID  string `json:"roomId" validate:"required,max=128,nospaces"`
	Content string `json:"content"`
}

type TypingRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=128,nospaces"`
	IsTyping bool   `json:"isTyping"`
}

type MessageResponse struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	ChatRoomID string `json:"chatRoomId"`
	CreatedAt  string `json:"createdAt"`
	Status     string `json:"status"`
}

type RoomMemberResponse struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type RoomPresenceResponse struct {
	RoomID  string                `json:"roomId"`
	Members []*RoomMemberResponse `json:"members"`
}
