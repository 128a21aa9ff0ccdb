package service

import (
	"context"
	"encoding/json"

	"ephemchat/cmd/internal/contract"
	"ephemchat/cmd/internal/domain/entity"
	"ephemchat/cmd/internal/domain/events"
	"ephemchat/cmd/internal/utils"

	"github.com/labstack/gommon/log"
)

func (s *WebSocketService) handleJoinRoom(ctx context.Context, conn *entity.Connection, data json.RawMessage) {
	var req contract.RoomRequest
	if !s.decode(ctx, conn, data, &req) {
		return
	}

	if !s.Rooms.Join(req.RoomID, conn.Handle) {
		return
	}

	if err := s.Chat.JoinRoom(conn.UserID, req.RoomID); err != nil {
		log.Errorf("failed to record %s joining %s: %v", conn.UserID, req.RoomID, err)
	}

	members := s.Rooms.Members(req.RoomID)
	s.broadcast(ctx, members, &events.UserJoined{
		UserID:      conn.UserID,
		DisplayName: utils.GenerateDisplayName(),
	}, conn.Handle)
	s.broadcast(ctx, members, &events.OnlineStatus{UserID: conn.UserID, IsOnline: true}, conn.Handle)
}

func (s *WebSocketService) handleLeaveRoom(ctx context.Context, conn *entity.Connection, data json.RawMessage) {
	var req contract.RoomRequest
	if !s.decode(ctx, conn, data, &req) {
		return
	}

	if !s.Rooms.Leave(req.RoomID, conn.Handle) {
		return
	}

	if err := s.Chat.UpdateUserOnlineStatus(conn.UserID, req.RoomID, false); err != nil {
		log.Errorf("failed to record %s leaving %s: %v", conn.UserID, req.RoomID, err)
	}
	s.broadcast(ctx, s.Rooms.Members(req.RoomID), &events.UserLeft{UserID: conn.UserID}, "")
}

// handleSendMessage charges the rate limiter before anything else, so
// rejected or failing messages still count against the sender.
func (s *WebSocketService) handleSendMessage(ctx context.Context, conn *entity.Connection, data json.RawMessage) {
	var req contract.SendMessageRequest
	if !s.parse(ctx, conn, data, &req) {
		return
	}

	limit, err := s.Presence.CheckRateLimit(ctx, conn.UserID)
	if err != nil {
		log.Errorf("rate limit check failed for %s, letting message through: %v", conn.UserID, err)
	} else if !limit.Allowed {
		s.Emit(ctx, conn.Handle, &events.RateLimited{RetryAfter: limit.RetryAfter})
		return
	}

	if !s.validate(ctx, conn, &req) {
		return
	}

	msg, apierr := s.Chat.CreateMessage(req.RoomID, conn.UserID, req.Content)
	if apierr != nil {
		s.emitError(ctx, conn.Handle, apierr)
		return
	}
	s.broadcast(ctx, s.Rooms.Members(req.RoomID), &events.Message{MessageResponse: msg}, "")
}

func (s *WebSocketService) handleTyping(ctx context.Context, conn *entity.Connection, data json.RawMessage) {
	var req contract.TypingRequest
	if !s.decode(ctx, conn, data, &req) {
		return
	}

	s.broadcast(ctx, s.Rooms.Members(req.RoomID), &events.TypingIndicator{
		RoomID:   req.RoomID,
		UserID:   conn.UserID,
		IsTyping: req.IsTyping,
	}, conn.Handle)
}
