package service

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"ephemchat/cmd/internal/utils/uid"

	"github.com/labstack/gommon/log"
)

var (
	ErrSelfMatch     = errors.New("cannot pair a connection with itself")
	ErrAlreadyInCall = errors.New("connection is already in a call")
)

type WaitingEntry struct {
	Handle   string
	UserID   string
	Interest string
	JoinedAt time.Time
}

type Participant struct {
	Handle string
	UserID string
}

// CallSession pairs two connections. It is never mutated after creation.
type CallSession struct {
	ID        string
	User1     Participant
	User2     Participant
	StartedAt time.Time
}

// Peer returns the other participant, from the point of view of handle.
func (c *CallSession) Peer(handle string) (Participant, bool) {
	switch handle {
	case c.User1.Handle:
		return c.User2, true
	case c.User2.Handle:
		return c.User1, true
	default:
		return Participant{}, false
	}
}

type DisconnectResult struct {
	Call       *CallSession
	WasInQueue bool
}

// CallService is the matchmaker. It keeps a FIFO waiting queue and the table
// of active calls behind a single lock, so every operation, including the
// compound Seek, is atomic with respect to every other.
//
// A handle is in at most one of: the queue, one call, or neither.
type CallService struct {
	mu       sync.Mutex
	queue    *list.List               // of *WaitingEntry, oldest first
	waiting  map[string]*list.Element // handle -> queue element
	calls    map[string]*CallSession  // call id -> call
	byHandle map[string]string        // handle -> call id

	now   func() time.Time
	newID func() string
}

func NewCallService() *CallService {
	return &CallService{
		queue:    list.New(),
		waiting:  make(map[string]*list.Element),
		calls:    make(map[string]*CallSession),
		byHandle: make(map[string]string),
		now:      time.Now,
		newID:    uid.NewCallID,
	}
}

// AddToQueue enqueues handle at the back, replacing any entry it already had.
// Handles that are in a call are not queued and false is returned.
func (s *CallService) AddToQueue(handle, userID, interest string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addToQueue(handle, userID, interest)
}

func (s *CallService) RemoveFromQueue(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeFromQueue(handle)
}

// FindMatch returns a copy of the oldest compatible waiting entry other
// than handle. The requester must be queued itself. The queue is left
// untouched, CreateCall takes both sides out.
func (s *CallService) FindMatch(handle, interest string) (*WaitingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findMatch(handle, interest)
}

// CreateCall pairs two connections, taking both out of the queue.
func (s *CallService) CreateCall(handle1, user1, handle2, user2 string) (*CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCall(Participant{handle1, user1}, Participant{handle2, user2})
}

// Seek queues the caller and, in the same critical section, pairs them with
// the oldest compatible waiting connection. When a call is created the
// caller is User1 and the matched waiter is User2.
func (s *CallService) Seek(handle, userID, interest string) (*CallSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.byHandle[handle]; busy {
		return nil, false
	}

	s.addToQueue(handle, userID, interest)
	match, ok := s.findMatch(handle, interest)
	if !ok {
		return nil, false
	}

	call, err := s.createCall(Participant{handle, userID}, Participant{match.Handle, match.UserID})
	if err != nil {
		log.Errorf("matchmaking %s with %s failed: %v", handle, match.Handle, err)
		return nil, false
	}
	return call, true
}

func (s *CallService) GetCallBySocket(handle string) (*CallSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	callID, ok := s.byHandle[handle]
	if !ok {
		return nil, false
	}
	return s.calls[callID], true
}

func (s *CallService) GetCall(callID string) (*CallSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call, ok := s.calls[callID]
	return call, ok
}

func (s *CallService) GetPeer(handle string) (Participant, bool) {
	call, ok := s.GetCallBySocket(handle)
	if !ok {
		return Participant{}, false
	}
	return call.Peer(handle)
}

// EndCall tears down the call handle is part of and returns it, or nil.
func (s *CallService) EndCall(handle string) *CallSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endCall(handle)
}

// HandleDisconnect drops every trace of handle. Calling it twice is harmless,
// the second call reports nothing.
func (s *CallService) HandleDisconnect(handle string) DisconnectResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return DisconnectResult{
		WasInQueue: s.removeFromQueue(handle),
		Call:       s.endCall(handle),
	}
}

func (s *CallService) IsInQueue(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.waiting[handle]
	return ok
}

func (s *CallService) IsInCall(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byHandle[handle]
	return ok
}

func (s *CallService) QueueSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *CallService) ActiveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

/*
 * The helpers below must be called with mu held.
 */

func (s *CallService) addToQueue(handle, userID, interest string) bool {
	if _, busy := s.byHandle[handle]; busy {
		return false
	}
	s.removeFromQueue(handle)

	entry := &WaitingEntry{
		Handle:   handle,
		UserID:   userID,
		Interest: interest,
		JoinedAt: s.now(),
	}
	s.waiting[handle] = s.queue.PushBack(entry)
	return true
}

func (s *CallService) removeFromQueue(handle string) bool {
	el, ok := s.waiting[handle]
	if !ok {
		return false
	}
	s.queue.Remove(el)
	delete(s.waiting, handle)
	return true
}

func (s *CallService) findMatch(handle, interest string) (*WaitingEntry, bool) {
	if _, queued := s.waiting[handle]; !queued {
		return nil, false
	}

	for el := s.queue.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*WaitingEntry)
		if entry.Handle == handle || !compatible(interest, entry.Interest) {
			continue
		}

		found := *entry
		return &found, true
	}
	return nil, false
}

func (s *CallService) createCall(p1, p2 Participant) (*CallSession, error) {
	if p1.Handle == p2.Handle {
		return nil, ErrSelfMatch
	}
	if _, busy := s.byHandle[p1.Handle]; busy {
		return nil, ErrAlreadyInCall
	}
	if _, busy := s.byHandle[p2.Handle]; busy {
		return nil, ErrAlreadyInCall
	}

	s.removeFromQueue(p1.Handle)
	s.removeFromQueue(p2.Handle)

	call := &CallSession{
		ID:        s.newID(),
		User1:     p1,
		User2:     p2,
		StartedAt: s.now(),
	}
	s.calls[call.ID] = call
	s.byHandle[p1.Handle] = call.ID
	s.byHandle[p2.Handle] = call.ID
	return call, nil
}

func (s *CallService) endCall(handle string) *CallSession {
	callID, ok := s.byHandle[handle]
	if !ok {
		return nil
	}

	call := s.calls[callID]
	delete(s.calls, callID)
	delete(s.byHandle, call.User1.Handle)
	delete(s.byHandle, call.User2.Handle)
	return call
}

// compatible treats an empty interest as a wildcard.
func compatible(a, b string) bool {
	return a == "" || b == "" || a == b
}
