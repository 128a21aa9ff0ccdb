package contract

import "encoding/json"

const (
	ReasonPeerLeft         = "Peer left"
	ReasonPeerEndedCall    = "Peer ended the call"
	ReasonPeerSkipped      = "Peer skipped"
	ReasonPeerDisconnected = "Peer disconnected"
)

type FindCallRequest struct {
	Interest string `json:"interest,omitempty" validate:"omitempty,max=64,printable"`
}

// SignalRequest covers offer and answer. The session description is
// relayed as-is, its content is never inspected.
type SignalRequest struct {
	SDP json.RawMessage `json:"sdp" validate:"required"`
}

type CandidateRequest struct {
	Candidate json.RawMessage `json:"candidate" validate:"required"`
}
