package contract

import "encoding/json"

type EventType string

// Inbound events, sent by clients.
const (
	EventPing EventType = "ping"

	EventJoinRoom    EventType = "join_room"
	EventLeaveRoom   EventType = "leave_room"
	EventSendMessage EventType = "send_message"
	EventTyping      EventType = "typing"

	EventFindCall   EventType = "find_call"
	EventCancelFind EventType = "cancel_find"
	EventEndCall    EventType = "end_call"
	EventNextCall   EventType = "next_call"

	EventOffer        EventType = "offer"
	EventAnswer       EventType = "answer"
	EventIceCandidate EventType = "ice_candidate"
)

// Outbound events, emitted by the server. Offer, answer and
// ice_candidate are relayed under their inbound names.
const (
	EventAck   EventType = "ack"
	EventError EventType = "error"

	EventMessage         EventType = "message"
	EventUserJoined      EventType = "user_joined"
	EventUserLeft        EventType = "user_left"
	EventTypingIndicator EventType = "typing_indicator"
	EventRateLimited     EventType = "rate_limited"
	EventOnlineStatus    EventType = "online_status"

	EventSearchingForMatch EventType = "searching_for_match"
	EventCallFound         EventType = "call_found"
	EventCallEnded         EventType = "call_ended"
	EventPeerDisconnected  EventType = "peer_disconnected"
)

// IncomingSocketMessage is used for messages we receive from the users.
// Data is decoded lazily into the payload type matching Type.
type IncomingSocketMessage struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutgoingSocketMessage is what we send to the Client
type OutgoingSocketMessage struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
