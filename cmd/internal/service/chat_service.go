package service

import (
	"context"

	"ephemchat/cmd/internal/contract"
	"ephemchat/cmd/internal/domain/entity"
	"ephemchat/cmd/internal/domain/policy"
	"ephemchat/cmd/internal/utils"
	"ephemchat/cmd/internal/utils/apierror"
	"ephemchat/cmd/internal/utils/uid"

	"github.com/labstack/gommon/log"
)

type MessageRepository interface {
	Save(msg *entity.Message) error
}

type RoomRepository interface {
	AddMember(userID, roomID string, now int64) error
	UpdatePresence(userID, roomID string, isOnline bool, now int64) error
	FindMembers(roomID string) ([]*entity.ChatRoomUser, error)
}

type OnlineChecker interface {
	IsUserOnline(ctx context.Context, userID string) (bool, error)
}

type DefaultChatService struct {
	MessageRepo MessageRepository
	RoomRepo    RoomRepository
	Policy      *policy.MessagePolicy
	Presence    OnlineChecker
}

func NewChatService(
	messageRepo MessageRepository,
	roomRepo RoomRepository,
	policy *policy.MessagePolicy,
	presence OnlineChecker,
) *DefaultChatService {
	return &DefaultChatService{
		MessageRepo: messageRepo,
		RoomRepo:    roomRepo,
		Policy:      policy,
		Presence:    presence,
	}
}

// CreateMessage runs the content pipeline and persists the result.
// Nothing is stored when the content is rejected.
func (s *DefaultChatService) CreateMessage(roomID, senderID, content string) (*contract.MessageResponse, apierror.ErrorResponse) {
	clean, apierr := s.Policy.Prepare(content)
	if apierr != nil {
		return nil, apierr
	}

	msg := &entity.Message{
		ID:         uid.Generate(),
		ChatRoomID: roomID,
		SenderID:   senderID,
		Content:    clean,
		CreatedAt:  utils.NowUTC(),
	}

	if err := s.MessageRepo.Save(msg); err != nil {
		log.Errorf("failed to save message for room %s: %v", roomID, err)
		return nil, apierror.SendMessageFailedError
	}
	return toMessageResponse(msg), nil
}

// JoinRoom records the membership and marks the user online in that room.
func (s *DefaultChatService) JoinRoom(userID, roomID string) error {
	if err := s.RoomRepo.AddMember(userID, roomID, utils.NowUTC()); err != nil {
		return err
	}
	return s.UpdateUserOnlineStatus(userID, roomID, true)
}

func (s *DefaultChatService) UpdateUserOnlineStatus(userID, roomID string, isOnline bool) error {
	return s.RoomRepo.UpdatePresence(userID, roomID, isOnline, utils.NowUTC())
}

// GetRoomPresence lists the room's members with their live online flag.
func (s *DefaultChatService) GetRoomPresence(ctx context.Context, roomID string) (*contract.RoomPresenceResponse, apierror.ErrorResponse) {
	members, err := s.RoomRepo.FindMembers(roomID)
	if err != nil {
		log.Errorf("failed to fetch members of room %s: %v", roomID, err)
		return nil, apierror.InternalServerError
	}

	if len(members) == 0 {
		return nil, apierror.NotFoundError
	}

	resp := &contract.RoomPresenceResponse{
		RoomID:  roomID,
		Members: make([]*contract.RoomMemberResponse, len(members)),
	}
	for i, m := range members {
		online, err := s.Presence.IsUserOnline(ctx, m.UserID)
		if err != nil {
			log.Warnf("failed to read online flag of %s: %v", m.UserID, err)
		}
		resp.Members[i] = &contract.RoomMemberResponse{UserID: m.UserID, IsOnline: online}
	}
	return resp, nil
}

func toMessageResponse(msg *entity.Message) *contract.MessageResponse {
	return &contract.MessageResponse{
		ID:         msg.ID,
		Content:    msg.Content,
		SenderID:   msg.SenderID,
		SenderName: utils.GenerateDisplayName(),
		ChatRoomID: msg.ChatRoomID,
		CreatedAt:  utils.FormatEpoch(msg.CreatedAt),
		Status:     contract.MessageStatusSent,
	}
}
