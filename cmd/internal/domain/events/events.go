package events

import (
	"encoding/json"

	"ephemchat/cmd/internal/contract"
)

type SocketEvent interface {
	GetType() contract.EventType
}

// Wrap places an event into the envelope clients receive.
func Wrap(evt SocketEvent) *contract.OutgoingSocketMessage {
	return &contract.OutgoingSocketMessage{
		Type: evt.GetType(),
		Data: evt,
	}
}

type Ack struct{}

func (*Ack) GetType() contract.EventType {
	return contract.EventAck
}

type Error struct {
	Message string `json:"message"`
}

func (e *Error) GetType() contract.EventType {
	return contract.EventError
}

/*
 * Rooms
 */

type Message struct {
	*contract.MessageResponse
}

func (e *Message) GetType() contract.EventType {
	return contract.EventMessage
}

type UserJoined struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

func (e *UserJoined) GetType() contract.EventType {
	return contract.EventUserJoined
}

type UserLeft struct {
	UserID string `json:"userId"`
}

func (e *UserLeft) GetType() contract.EventType {
	return contract.EventUserLeft
}

type TypingIndicator struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

func (e *TypingIndicator) GetType() contract.EventType {
	return contract.EventTypingIndicator
}

type RateLimited struct {
	RetryAfter int `json:"retryAfter"`
}

func (e *RateLimited) GetType() contract.EventType {
	return contract.EventRateLimited
}

type OnlineStatus struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

func (e *OnlineStatus) GetType() contract.EventType {
	return contract.EventOnlineStatus
}

/*
 * Calls
 */

type SearchingForMatch struct{}

func (*SearchingForMatch) GetType() contract.EventType {
	return contract.EventSearchingForMatch
}

type CallFound struct {
	CallID      string `json:"callId"`
	PeerID      string `json:"peerId"`
	IsInitiator bool   `json:"isInitiator"`
}

func (e *CallFound) GetType() contract.EventType {
	return contract.EventCallFound
}

type CallEnded struct {
	Reason string `json:"reason"`
}

func (e *CallEnded) GetType() contract.EventType {
	return contract.EventCallEnded
}

type PeerDisconnected struct{}

func (*PeerDisconnected) GetType() contract.EventType {
	return contract.EventPeerDisconnected
}

/*
 * Signaling, payloads are opaque and forwarded untouched
 */

type Offer struct {
	SDP json.RawMessage `json:"sdp"`
}

func (e *Offer) GetType() contract.EventType {
	return contract.EventOffer
}

type Answer struct {
	SDP json.RawMessage `json:"sdp"`
}

func (e *Answer) GetType() contract.EventType {
	return contract.EventAnswer
}

type IceCandidate struct {
	Candidate json.RawMessage `json:"candidate"`
}

func (e *IceCandidate) GetType() contract.EventType {
	return contract.EventIceCandidate
}
