package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"ephemchat/cmd/internal/contract"
	"ephemchat/cmd/internal/domain/entity"
	"ephemchat/cmd/internal/domain/events"
	"ephemchat/cmd/internal/infrastructure/presence"
	"ephemchat/cmd/internal/infrastructure/websocket"
	"ephemchat/cmd/internal/utils"
	"ephemchat/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 50

type PresenceStore interface {
	SetSession(ctx context.Context, sessionID string, sess presence.Session) error
	GetSession(ctx context.Context, sessionID string) (presence.Session, bool, error)
	DeleteSession(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, userID string) (presence.RateLimitResult, error)
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
	SetUserSocket(ctx context.Context, userID, handle string) error
	GetUserSocket(ctx context.Context, userID string) (string, bool, error)
	DeleteUserSocket(ctx context.Context, userID string) error
}

type ChatService interface {
	CreateMessage(roomID, senderID, content string) (*contract.MessageResponse, apierror.ErrorResponse)
	JoinRoom(userID, roomID string) error
	UpdateUserOnlineStatus(userID, roomID string, isOnline bool) error
}

// session serializes everything that happens on one connection: its
// events are handled one at a time, and cleanup waits for the event in
// flight. Once closed, late events are dropped.
type session struct {
	mu     sync.Mutex
	conn   *entity.Connection
	closed bool
}

// WebSocketService is the session gateway. It authenticates connections,
// routes their events to the room, matchmaking and signaling handlers, and
// tears everything down when a connection goes away.
type WebSocketService struct {
	Verifier utils.TokenVerifier
	Presence PresenceStore
	Chat     ChatService
	Calls    *CallService
	Rooms    *RoomRegistry
	Gateway  websocket.GatewayClient
	Validate *validator.Validate

	// Concurrency caps parallel pushes of one broadcast.
	Concurrency int

	mu    sync.RWMutex
	conns map[string]*session
}

func NewWebSocketService(
	verifier utils.TokenVerifier,
	presence PresenceStore,
	chat ChatService,
	calls *CallService,
	rooms *RoomRegistry,
	gateway websocket.GatewayClient,
	validate *validator.Validate,
) *WebSocketService {
	return &WebSocketService{
		Verifier:    verifier,
		Presence:    presence,
		Chat:        chat,
		Calls:       calls,
		Rooms:       rooms,
		Gateway:     gateway,
		Validate:    validate,
		Concurrency: defaultConcurrency,
		conns:       make(map[string]*session),
	}
}

// Authenticate checks the handshake credential. A failure means the
// connection must be refused before any state is created for it.
func (s *WebSocketService) Authenticate(token string) (*utils.TokenData, apierror.ErrorResponse) {
	if token == "" {
		return nil, apierror.MissingAuthTokenError
	}

	data, err := s.Verifier.Verify(token)
	if err != nil {
		log.Debugf("rejected handshake: %v", err)
		return nil, apierror.InvalidAuthTokenError
	}
	return data, nil
}

// RegisterConnection binds an authenticated identity to handle and marks the user online.
func (s *WebSocketService) RegisterConnection(ctx context.Context, handle string, token *utils.TokenData) *entity.Connection {
	conn := entity.NewConnection(handle, token.UserID, token.Email, token.Exp, utils.NowUTC())

	s.mu.Lock()
	s.conns[handle] = &session{conn: conn}
	s.mu.Unlock()

	s.markOnline(ctx, conn)
	marker := presence.Session{UserID: conn.UserID, ExpiresAt: token.Exp}
	if err := s.Presence.SetSession(ctx, handle, marker); err != nil {
		log.Errorf("failed to store session for %s: %v", handle, err)
	}

	log.Infof("user %s connected on %s", conn.UserID, handle)
	return conn
}

// HandleMessage decodes one raw frame and dispatches it.
func (s *WebSocketService) HandleMessage(ctx context.Context, handle string, raw []byte) {
	var msg contract.IncomingSocketMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
		s.emitError(ctx, handle, apierror.MalformedPayloadError)
		return
	}
	s.Dispatch(ctx, handle, &msg)
}

func (s *WebSocketService) Dispatch(ctx context.Context, handle string, msg *contract.IncomingSocketMessage) {
	sess := s.lookup(ctx, handle)
	if sess == nil {
		log.Debugf("dropping %s for unknown connection %s", msg.Type, handle)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return
	}
	sess.conn.Touch(utils.NowUTC())

	switch msg.Type {
	case contract.EventPing:
		s.handlePing(ctx, sess.conn)

	case contract.EventJoinRoom:
		s.handleJoinRoom(ctx, sess.conn, msg.Data)
	case contract.EventLeaveRoom:
		s.handleLeaveRoom(ctx, sess.conn, msg.Data)
	case contract.EventSendMessage:
		s.handleSendMessage(ctx, sess.conn, msg.Data)
	case contract.EventTyping:
		s.handleTyping(ctx, sess.conn, msg.Data)

	case contract.EventFindCall:
		s.handleFindCall(ctx, sess.conn, msg.Data)
	case contract.EventNextCall:
		s.handleNextCall(ctx, sess.conn, msg.Data)
	case contract.EventCancelFind:
		s.handleCancelFind(sess.conn)
	case contract.EventEndCall:
		s.handleEndCall(ctx, sess.conn)

	case contract.EventOffer:
		s.handleOffer(ctx, sess.conn, msg.Data)
	case contract.EventAnswer:
		s.handleAnswer(ctx, sess.conn, msg.Data)
	case contract.EventIceCandidate:
		s.handleIceCandidate(ctx, sess.conn, msg.Data)

	default:
		s.emitError(ctx, handle, apierror.UnknownEventError)
	}
}

// RemoveConnection runs the disconnect cleanup for handle. It is safe to
// call more than once, only the first call has effect. A handle this
// process never saw is rebuilt from its session marker first, so its
// presence is cleared too.
func (s *WebSocketService) RemoveConnection(ctx context.Context, handle string) {
	// The marker goes away under mu so lookup cannot resurrect the handle
	// while the cleanup below waits for the event in flight.
	s.mu.Lock()
	sess, ok := s.conns[handle]
	if !ok {
		sess = s.restore(ctx, handle)
	}
	delete(s.conns, handle)
	if sess != nil {
		if err := s.Presence.DeleteSession(ctx, handle); err != nil {
			log.Errorf("failed to delete session of %s: %v", handle, err)
		}
	}
	s.mu.Unlock()

	if sess == nil {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return
	}
	sess.closed = true

	conn := sess.conn
	s.markOffline(ctx, conn)

	res := s.Calls.HandleDisconnect(handle)
	if res.Call != nil {
		if peer, ok := res.Call.Peer(handle); ok {
			s.Emit(ctx, peer.Handle, &events.PeerDisconnected{})
			s.Emit(ctx, peer.Handle, &events.CallEnded{Reason: contract.ReasonPeerDisconnected})
		}
	}

	for _, roomID := range s.Rooms.LeaveAll(handle) {
		if err := s.Chat.UpdateUserOnlineStatus(conn.UserID, roomID, false); err != nil {
			log.Errorf("failed to update presence of %s in %s: %v", conn.UserID, roomID, err)
		}

		members := s.Rooms.Members(roomID)
		s.broadcast(ctx, members, &events.UserLeft{UserID: conn.UserID}, "")
		s.broadcast(ctx, members, &events.OnlineStatus{UserID: conn.UserID, IsOnline: false}, "")
	}

	log.Infof("user %s disconnected from %s (queued: %t, in call: %t)",
		conn.UserID, handle, res.WasInQueue, res.Call != nil)
}

// Connections returns a snapshot of every live connection.
func (s *WebSocketService) Connections() []*entity.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := make([]*entity.Connection, 0, len(s.conns))
	for _, sess := range s.conns {
		conns = append(conns, sess.conn)
	}
	return conns
}

func (s *WebSocketService) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// RefreshPresence re-arms the online flag of every live connection.
func (s *WebSocketService) RefreshPresence(ctx context.Context) int {
	conns := s.Connections()
	for _, conn := range conns {
		if err := s.Presence.SetUserOnline(ctx, conn.UserID); err != nil {
			log.Errorf("failed to refresh presence of %s: %v", conn.UserID, err)
		}
	}
	return len(conns)
}

// Emit sends one event to one connection. Delivery failures are logged, never returned.
func (s *WebSocketService) Emit(ctx context.Context, handle string, evt events.SocketEvent) {
	s.post(ctx, handle, events.Wrap(evt))
}

// broadcast fans evt out to handles, skipping except. The envelope is
// encoded once and pushed concurrently.
func (s *WebSocketService) broadcast(ctx context.Context, handles []string, evt events.SocketEvent, except string) {
	payload, err := json.Marshal(events.Wrap(evt))
	if err != nil {
		log.Errorf("failed to encode %s: %v", evt.GetType(), err)
		return
	}
	raw := json.RawMessage(payload)

	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, handle := range handles {
		if handle == except {
			continue
		}
		g.Go(func() error {
			s.post(ctx, handle, raw)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *WebSocketService) post(ctx context.Context, handle string, data interface{}) {
	err := s.Gateway.PostToConnection(ctx, handle, data)
	switch {
	case err == nil:
	case errors.Is(err, websocket.ErrConnectionGone):
		// We ignore this so one stale connection doesn't block others
		log.Debugf("skipping push to gone connection %s", handle)
	default:
		log.Warnf("failed to push to connection %s: %v", handle, err)
	}
}

func (s *WebSocketService) emitError(ctx context.Context, handle string, apierr apierror.ErrorResponse) {
	s.Emit(ctx, handle, &events.Error{Message: apierror.Describe(apierr)})
}

// decode unmarshals and validates an event payload, answering the sender
// with an error event when it is unusable. Absent payloads decode as {}.
func (s *WebSocketService) decode(ctx context.Context, conn *entity.Connection, data json.RawMessage, dst interface{}) bool {
	if !s.parse(ctx, conn, data, dst) {
		return false
	}
	return s.validate(ctx, conn, dst)
}

func (s *WebSocketService) parse(ctx context.Context, conn *entity.Connection, data json.RawMessage, dst interface{}) bool {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}

	if err := json.Unmarshal(data, dst); err != nil {
		s.emitError(ctx, conn.Handle, apierror.MalformedPayloadError)
		return false
	}
	utils.Sanitize(dst)
	return true
}

func (s *WebSocketService) validate(ctx context.Context, conn *entity.Connection, dst interface{}) bool {
	err := s.Validate.Struct(dst)
	if err == nil {
		return true
	}

	if verr := apierror.FromValidationError(err); verr != nil {
		s.emitError(ctx, conn.Handle, verr)
	} else {
		s.emitError(ctx, conn.Handle, apierror.MalformedPayloadError)
	}
	return false
}

// lookup finds the live session of handle. Connections terminated by an
// external gateway may outlive this process, those are rebuilt from the
// session marker on their first event.
func (s *WebSocketService) lookup(ctx context.Context, handle string) *session {
	s.mu.RLock()
	sess, ok := s.conns[handle]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.conns[handle]; ok {
		return sess
	}

	sess = s.restore(ctx, handle)
	if sess != nil {
		s.conns[handle] = sess
		log.Infof("restored session of user %s on %s", sess.conn.UserID, handle)
	}
	return sess
}

// restore rebuilds a session from the marker of handle, or returns nil.
// Must be called with mu held.
func (s *WebSocketService) restore(ctx context.Context, handle string) *session {
	marker, found, err := s.Presence.GetSession(ctx, handle)
	if err != nil {
		log.Errorf("failed to read session of %s: %v", handle, err)
		return nil
	}
	if !found {
		return nil
	}

	conn := entity.NewConnection(handle, marker.UserID, "", marker.ExpiresAt, utils.NowUTC())
	return &session{conn: conn}
}

func (s *WebSocketService) handlePing(ctx context.Context, conn *entity.Connection) {
	if err := s.Presence.SetUserOnline(ctx, conn.UserID); err != nil {
		log.Errorf("failed to refresh presence of %s: %v", conn.UserID, err)
	}
	s.Emit(ctx, conn.Handle, &events.Ack{})
}

func (s *WebSocketService) markOnline(ctx context.Context, conn *entity.Connection) {
	if err := s.Presence.SetUserOnline(ctx, conn.UserID); err != nil {
		log.Errorf("failed to mark %s online: %v", conn.UserID, err)
	}
	if err := s.Presence.SetUserSocket(ctx, conn.UserID, conn.Handle); err != nil {
		log.Errorf("failed to map %s to %s: %v", conn.UserID, conn.Handle, err)
	}
}

// markOffline leaves the flags alone when a newer connection of the same
// user has taken over the socket mapping.
func (s *WebSocketService) markOffline(ctx context.Context, conn *entity.Connection) {
	current, found, err := s.Presence.GetUserSocket(ctx, conn.UserID)
	if err != nil {
		log.Errorf("failed to read socket mapping of %s: %v", conn.UserID, err)
	}
	if found && current != conn.Handle {
		return
	}

	if err := s.Presence.SetUserOffline(ctx, conn.UserID); err != nil {
		log.Errorf("failed to mark %s offline: %v", conn.UserID, err)
	}
	if err := s.Presence.DeleteUserSocket(ctx, conn.UserID); err != nil {
		log.Errorf("failed to clear socket mapping of %s: %v", conn.UserID, err)
	}
}
