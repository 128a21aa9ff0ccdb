package service

import (
	"context"

	"ephemchat/cmd/internal/contract"
	"ephemchat/cmd/internal/infrastructure/presence"
	"ephemchat/cmd/internal/utils/apierror"

	"github.com/labstack/gommon/log"
)

type PresenceReader interface {
	IsUserOnline(ctx context.Context, userID string) (bool, error)
	Mode() presence.Mode
}

type RoomPresenceReader interface {
	GetRoomPresence(ctx context.Context, roomID string) (*contract.RoomPresenceResponse, apierror.ErrorResponse)
}

// UtilService answers read-only introspection queries.
type UtilService struct {
	Gateway  *WebSocketService
	Calls    *CallService
	Presence PresenceReader
	Rooms    RoomPresenceReader
}

func NewUtilService(gateway *WebSocketService, calls *CallService, presence PresenceReader, rooms RoomPresenceReader) *UtilService {
	return &UtilService{
		Gateway:  gateway,
		Calls:    calls,
		Presence: presence,
		Rooms:    rooms,
	}
}

func (u *UtilService) Health() *contract.HealthResponse {
	return &contract.HealthResponse{
		Status:       "OK",
		PresenceMode: string(u.Presence.Mode()),
	}
}

func (u *UtilService) GetStats() *contract.StatsResponse {
	return &contract.StatsResponse{
		Connections:  u.Gateway.ConnectionCount(),
		QueueSize:    u.Calls.QueueSize(),
		ActiveCalls:  u.Calls.ActiveCalls(),
		PresenceMode: string(u.Presence.Mode()),
	}
}

func (u *UtilService) GetOnlineStatus(ctx context.Context, userID string) (*contract.OnlineStatusResponse, apierror.ErrorResponse) {
	online, err := u.Presence.IsUserOnline(ctx, userID)
	if err != nil {
		log.Errorf("failed to read online flag of %s: %v", userID, err)
		return nil, apierror.InternalServerError
	}
	return &contract.OnlineStatusResponse{UserID: userID, IsOnline: online}, nil
}

func (u *UtilService) GetRoomPresence(ctx context.Context, roomID string) (*contract.RoomPresenceResponse, apierror.ErrorResponse) {
	return u.Rooms.GetRoomPresence(ctx, roomID)
}
