package service

import (
	"context"
	"encoding/json"

	"ephemchat/cmd/internal/contract"
	"ephemchat/cmd/internal/domain/entity"
	"ephemchat/cmd/internal/domain/events"

	"github.com/labstack/gommon/log"
)

func (s *WebSocketService) handleOffer(ctx context.Context, conn *entity.Connection, data json.RawMessage) {
	var req contract.SignalRequest
	if !s.decode(ctx, conn, data, &req) {
		return
	}
	s.relay(ctx, conn, &events.Offer{SDP: req.SDP})
}

func (s *WebSocketService) handleAnswer(ctx context.Context, conn *entity.Connection, data json.RawMessage) {
	var req contract.SignalRequest
	if !s.decode(ctx, conn, data, &req) {
		return
	}
	s.relay(ctx, conn, &events.Answer{SDP: req.SDP})
}

func (s *WebSocketService) handleIceCandidate(ctx context.Context, conn *entity.Connection, data json.RawMessage) {
	var req contract.CandidateRequest
	if !s.decode(ctx, conn, data, &req) {
		return
	}
	s.relay(ctx, conn, &events.IceCandidate{Candidate: req.Candidate})
}

// relay forwards a signaling event to the sender's call peer. Without a
// peer the event is dropped and the sender is not told.
func (s *WebSocketService) relay(ctx context.Context, conn *entity.Connection, evt events.SocketEvent) {
	peer, ok := s.Calls.GetPeer(conn.Handle)
	if !ok {
		log.Debugf("dropping %s from %s: not in a call", evt.GetType(), conn.Handle)
		return
	}
	s.Emit(ctx, peer.Handle, evt)
}
