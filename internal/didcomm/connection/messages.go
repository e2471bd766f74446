// Package connection implements the C5 connection-establishment state
// machines: inviter and invitee role variants sharing one transition
// vocabulary but distinct accepted-message sets (spec §4.2). Transitions are
// pure: each takes a Session by value and returns the next Session, mirroring
// spec §9's "state machines as value types" design note, grounded on the
// teacher's transition-by-return-value style in
// core/identity_verification.go's state-mutation helpers, generalised here
// to return instead of mutate.
package connection

import (
	"github.com/google/uuid"

	"aries-agent-core/internal/didcomm/model"
)

const (
	TypeInvitation             = "https://didcomm.org/connections/1.0/invitation"
	TypeRequest                = "https://didcomm.org/connections/1.0/request"
	TypeResponse               = "https://didcomm.org/connections/1.0/response"
	TypeProblemReport          = "https://didcomm.org/connections/1.0/problem_report"
	TypeAck                    = "https://didcomm.org/notification/1.0/ack"
	TypePing                   = "https://didcomm.org/trust_ping/1.0/ping"
	TypePingResponse           = "https://didcomm.org/trust_ping/1.0/ping_response"
	TypeOOBInvitation          = "https://didcomm.org/out-of-band/1.1/invitation"
	TypeHandshakeReuse         = "https://didcomm.org/out-of-band/1.1/handshake-reuse"
	TypeHandshakeReuseAccepted = "https://didcomm.org/out-of-band/1.1/handshake-reuse-accepted"
	TypeDiscoverQuery          = "https://didcomm.org/discover-features/1.0/query"
	TypeDiscoverDisclose       = "https://didcomm.org/discover-features/1.0/disclose"
)

// Invitation is the first message of the connection protocol (spec §3).
// A pairwise invitation inlines RecipientKeys+ServiceEndpoint; a public
// invitation carries only PublicDID, resolved later by a collaborator out of
// core scope. An out-of-band invitation additionally may embed an
// Attachment carrying an initial request/offer (SPEC_FULL §4 supplement).
type Invitation struct {
	ID              string             `json:"@id"`
	Type            string             `json:"@type"`
	Label           string             `json:"label,omitempty"`
	RecipientKeys   []string           `json:"recipientKeys,omitempty"`
	RoutingKeys     []string           `json:"routingKeys,omitempty"`
	ServiceEndpoint string             `json:"serviceEndpoint,omitempty"`
	PublicDID       string             `json:"did,omitempty"`
	Attachments     []model.Attachment `json:"~attach,omitempty"`
}

// NewPairwiseInvitation builds a pairwise invitation whose id seeds the
// connection's thread-id (spec §4.2: "thread_id = invitation.id").
func NewPairwiseInvitation(label string, recipientKeys, routingKeys []string, endpoint string) Invitation {
	return Invitation{
		ID:              uuid.NewString(),
		Type:            TypeInvitation,
		Label:           label,
		RecipientKeys:   recipientKeys,
		RoutingKeys:     routingKeys,
		ServiceEndpoint: endpoint,
	}
}

// ConnectionData is the plaintext payload of a connection request/response:
// the sender's new pairwise DID and DIDDoc.
type ConnectionData struct {
	DID    string        `json:"did"`
	DIDDoc model.DIDDoc  `json:"did_doc"`
}

// Request is the invitee's first message, carrying its own DIDDoc with
// recipient keys equal to its own verkey (spec §4.2).
type Request struct {
	ID         string         `json:"@id"`
	Type       string         `json:"@type"`
	Label      string         `json:"label,omitempty"`
	Connection ConnectionData `json:"connection"`
	Thread     *model.Thread  `json:"~thread,omitempty"`
}

// SignedResponse carries the inviter's new pairwise DID/DIDDoc encoded as a
// connection~sig signed attachment (spec §4.2, §6: "signed by the inviter's
// bootstrap verkey"). ConnectionSig is produced by internal/crypto's
// EncodeSignedPayload over a ConnectionData value.
type SignedResponse struct {
	ID            string            `json:"@id"`
	Type          string            `json:"@type"`
	Thread        *model.Thread     `json:"~thread"`
	ConnectionSig *SignedPayloadRef `json:"connection~sig"`
}

// SignedPayloadRef avoids an import cycle with internal/crypto by mirroring
// its SignedPayload shape locally; the state machine only ever passes this
// through to/from the crypto capability, never inspects its fields.
type SignedPayloadRef struct {
	SigData   string `json:"sig_data"`
	Signature string `json:"signature"`
	Signer    string `json:"signer"`
}

// Ping is the trust_ping keepalive (spec §4.2, §6).
type Ping struct {
	ID               string        `json:"@id"`
	Type             string        `json:"@type"`
	Comment          string        `json:"comment,omitempty"`
	ResponseRequested bool         `json:"response_requested"`
	Thread           *model.Thread `json:"~thread,omitempty"`
}

// PingResponse answers a Ping whose ResponseRequested was true.
type PingResponse struct {
	ID      string        `json:"@id"`
	Type    string        `json:"@type"`
	Comment string        `json:"comment,omitempty"`
	Thread  *model.Thread `json:"~thread"`
}

func NewPingResponse(thid string) *PingResponse {
	return &PingResponse{ID: uuid.NewString(), Type: TypePingResponse, Thread: &model.Thread{ThID: thid}}
}

// HandshakeReuse lets a party already connected reuse that connection for a
// new out-of-band invitation rather than creating a fresh one (SPEC_FULL §4
// supplement #1, out-of-band/1.1).
type HandshakeReuse struct {
	ID     string        `json:"@id"`
	Type   string        `json:"@type"`
	Thread *model.Thread `json:"~thread"`
}

// HandshakeReuseAccepted is the inviter's reply confirming reuse.
type HandshakeReuseAccepted struct {
	ID     string        `json:"@id"`
	Type   string        `json:"@type"`
	Thread *model.Thread `json:"~thread"`
}

func NewHandshakeReuseAccepted(thid string) *HandshakeReuseAccepted {
	return &HandshakeReuseAccepted{ID: uuid.NewString(), Type: TypeHandshakeReuseAccepted, Thread: &model.Thread{ThID: thid}}
}

// DiscoverQuery asks the counterparty which protocols/goal-codes it
// supports (SPEC_FULL §4 supplement #2).
type DiscoverQuery struct {
	ID      string        `json:"@id"`
	Type    string        `json:"@type"`
	Query   string        `json:"query"`
	Comment string        `json:"comment,omitempty"`
	Thread  *model.Thread `json:"~thread,omitempty"`
}

// DiscoverDisclose answers a DiscoverQuery, listing matching protocols.
type DiscoverDisclose struct {
	ID        string                 `json:"@id"`
	Type      string                 `json:"@type"`
	Protocols []DiscoverProtocolInfo `json:"protocols"`
	Thread    *model.Thread          `json:"~thread,omitempty"`
}

type DiscoverProtocolInfo struct {
	PID string `json:"pid"`
}

func NewDiscoverDisclose(thid string, protocols []string) *DiscoverDisclose {
	infos := make([]DiscoverProtocolInfo, len(protocols))
	for i, p := range protocols {
		infos[i] = DiscoverProtocolInfo{PID: p}
	}
	d := &DiscoverDisclose{ID: uuid.NewString(), Type: TypeDiscoverDisclose, Protocols: infos}
	if thid != "" {
		d.Thread = &model.Thread{ThID: thid}
	}
	return d
}
