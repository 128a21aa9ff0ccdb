package service

import (
	"context"
	"encoding/json"

	"ephemchat/cmd/internal/contract"
	"ephemchat/cmd/internal/domain/entity"
	"ephemchat/cmd/internal/domain/events"

	"github.com/labstack/gommon/log"
)

func (s *WebSocketService) handleFindCall(ctx context.Context, conn *entity.Connection, data json.RawMessage) {
	var req contract.FindCallRequest
	if !s.decode(ctx, conn, data, &req) {
		return
	}
	s.seekCall(ctx, conn, req.Interest, contract.ReasonPeerLeft)
}

func (s *WebSocketService) handleNextCall(ctx context.Context, conn *entity.Connection, data json.RawMessage) {
	var req contract.FindCallRequest
	if !s.decode(ctx, conn, data, &req) {
		return
	}
	s.seekCall(ctx, conn, req.Interest, contract.ReasonPeerSkipped)
}

func (s *WebSocketService) handleCancelFind(conn *entity.Connection) {
	s.Calls.RemoveFromQueue(conn.Handle)
}

func (s *WebSocketService) handleEndCall(ctx context.Context, conn *entity.Connection) {
	if call := s.Calls.EndCall(conn.Handle); call != nil {
		s.notifyCallEnded(ctx, call, conn.Handle, contract.ReasonPeerEndedCall)
	}
}

// seekCall leaves the current call (telling the peer why), then queues the
// caller and tries to pair them right away. The waiting side of a new pair
// is the initiator and sends the first offer.
func (s *WebSocketService) seekCall(ctx context.Context, conn *entity.Connection, interest, reason string) {
	if call := s.Calls.EndCall(conn.Handle); call != nil {
		s.notifyCallEnded(ctx, call, conn.Handle, reason)
	}

	s.Emit(ctx, conn.Handle, &events.SearchingForMatch{})

	call, ok := s.Calls.Seek(conn.Handle, conn.UserID, interest)
	if !ok {
		return
	}

	partner := call.User2
	s.Emit(ctx, conn.Handle, &events.CallFound{
		CallID:      call.ID,
		PeerID:      partner.UserID,
		IsInitiator: false,
	})
	s.Emit(ctx, partner.Handle, &events.CallFound{
		CallID:      call.ID,
		PeerID:      conn.UserID,
		IsInitiator: true,
	})
	log.Debugf("call %s started between %s and %s", call.ID, conn.UserID, partner.UserID)
}

func (s *WebSocketService) notifyCallEnded(ctx context.Context, call *CallSession, leaver, reason string) {
	peer, ok := call.Peer(leaver)
	if !ok {
		return
	}
	s.Emit(ctx, peer.Handle, &events.CallEnded{Reason: reason})
}
