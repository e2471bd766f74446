package connection

import (
	"github.com/google/uuid"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/crypto"
	"aries-agent-core/internal/didcomm/model"
)

// InviterSession is the inviter-role connection session (spec §3, §4.2).
// Transitions consume it by value and return the next session plus any
// message the caller should send, never mutating in place (spec §9).
type InviterSession struct {
	SourceID  string
	ThreadID  string
	State     State
	Autohop   bool

	Invitation *Invitation

	bootstrapPairwise model.PairwiseInfo
	bootstrapKeyPair  *crypto.KeyPair
	routingKeys       []string
	endpoint          string

	MyPairwise  model.PairwiseInfo
	myKeyPair   *crypto.KeyPair
	TheirDIDDoc *model.DIDDoc

	pendingResponse *SignedResponse
}

// NewInviterSession starts a fresh Initial-state session.
func NewInviterSession(sourceID string) InviterSession {
	return InviterSession{SourceID: sourceID, State: StateInitial}
}

// Connect builds a pairwise invitation under a fresh bootstrap key (spec
// §4.2: Initial + Connect → Invited). The invitation's id seeds the
// session's thread-id.
func (s InviterSession) Connect(cap crypto.Capability, label string, routingKeys []string, endpoint string) (InviterSession, Invitation, error) {
	if s.State != StateInitial {
		return s, Invitation{}, agenterr.New(agenterr.InvalidState, "InviterSession.Connect", "connect only valid from Initial")
	}
	bootstrapPW, kp, err := cap.CreateDID()
	if err != nil {
		return s, Invitation{}, err
	}
	inv := NewPairwiseInvitation(label, []string{bootstrapPW.Verkey}, routingKeys, endpoint)

	next := s
	next.ThreadID = inv.ID
	next.State = StateInvited
	next.Invitation = &inv
	next.bootstrapPairwise = bootstrapPW
	next.bootstrapKeyPair = kp
	next.routingKeys = routingKeys
	next.endpoint = endpoint
	return next, inv, nil
}

// HandleRequest verifies req's thread-id against the invitation, mints a
// fresh pairwise DID+DIDDoc, and builds the connection~sig-signed response
// (spec §4.2: Invited + Request → Requested). The response is cached on the
// returned session so a subsequent SendResponse can re-send it unchanged.
func (s InviterSession) HandleRequest(cap crypto.Capability, req Request) (InviterSession, *SignedResponse, *model.ProblemReport, error) {
	if s.State != StateInvited {
		return s, nil, nil, agenterr.New(agenterr.InvalidState, "InviterSession.HandleRequest", "request only valid from Invited")
	}
	reqThid := threadIDOf(req.Thread, req.ID)
	if s.ThreadID != "" && reqThid != s.ThreadID {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", "request thread-id does not match invitation")
		return s, nil, pr, agenterr.New(agenterr.ThreadMismatch, "InviterSession.HandleRequest", "thread-id mismatch")
	}
	if err := req.Connection.DIDDoc.Validate(); err != nil {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", err.Error())
		return s, nil, pr, agenterr.Wrap(agenterr.InvalidInput, "InviterSession.HandleRequest", "invalid counterparty diddoc", err)
	}

	newPW, kp, err := cap.CreateDID()
	if err != nil {
		return s, nil, nil, err
	}
	newThreadID := req.ID

	cd := ConnectionData{
		DID: newPW.DID,
		DIDDoc: model.DIDDoc{
			ID:              newPW.DID,
			RecipientKeys:   []string{newPW.Verkey},
			RoutingKeys:     s.routingKeys,
			ServiceEndpoint: s.endpoint,
		},
	}
	signed, err := cap.EncodeSignedPayload(s.bootstrapKeyPair, cd)
	if err != nil {
		return s, nil, nil, err
	}

	resp := &SignedResponse{
		ID:     uuid.NewString(),
		Type:   TypeResponse,
		Thread: &model.Thread{ThID: newThreadID},
		ConnectionSig: &SignedPayloadRef{
			SigData:   signed.SigData,
			Signature: signed.Signature,
			Signer:    signed.Signer,
		},
	}

	next := s
	next.State = StateRequested
	next.ThreadID = newThreadID
	next.MyPairwise = newPW
	next.myKeyPair = kp
	next.TheirDIDDoc = &req.Connection.DIDDoc
	next.pendingResponse = resp
	return next, resp, nil, nil
}

// SendResponse re-sends the cached signed response (spec §4.2: Requested +
// SendResponse → Responded). Idempotent: callers may invoke it again after a
// dropped send without building a new response (spec §5 cancellation note).
func (s InviterSession) SendResponse() (InviterSession, *SignedResponse, error) {
	if s.State != StateRequested {
		return s, nil, agenterr.New(agenterr.InvalidState, "InviterSession.SendResponse", "send-response only valid from Requested")
	}
	next := s
	next.State = StateResponded
	return next, s.pendingResponse, nil
}

// HandleAck completes the session on a matching thread-id, or demotes it to
// Initial with a problem report on mismatch (spec §4.2: Responded + Ack).
func (s InviterSession) HandleAck(ack *model.Ack) (InviterSession, *model.ProblemReport, error) {
	if s.State != StateResponded {
		return s, nil, agenterr.New(agenterr.InvalidState, "InviterSession.HandleAck", "ack only valid from Responded")
	}
	thid := ""
	if ack.Thread != nil {
		thid = ack.Thread.ThID
	}
	if thid != s.ThreadID {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", "ack thread-id does not match session")
		next := s
		next.State = StateInitial
		return next, pr, agenterr.New(agenterr.ThreadMismatch, "InviterSession.HandleAck", "thread-id mismatch")
	}
	next := s
	next.State = StateCompleted
	return next, nil, nil
}

// HandlePing answers a trust-ping; when ResponseRequested and the thread-id
// matches, the session also completes (spec §4.2: Responded + Ping →
// Completed; Completed + Ping → Completed).
func (s InviterSession) HandlePing(ping *Ping) (InviterSession, *PingResponse, error) {
	thid := ""
	if ping.Thread != nil {
		thid = ping.Thread.ThID
	}
	switch s.State {
	case StateResponded:
		if thid != s.ThreadID {
			return s, nil, agenterr.New(agenterr.ThreadMismatch, "InviterSession.HandlePing", "ping thread-id does not match session")
		}
		if !ping.ResponseRequested {
			return s, nil, nil
		}
		next := s
		next.State = StateCompleted
		return next, NewPingResponse(s.ThreadID), nil
	case StateCompleted:
		if ping.ResponseRequested {
			return s, NewPingResponse(s.ThreadID), nil
		}
		return s, nil, nil
	default:
		return s, nil, agenterr.New(agenterr.InvalidState, "InviterSession.HandlePing", "ping not valid in current state")
	}
}

// HandleHandshakeReuse answers an out-of-band handshake-reuse while
// Completed (spec §4.2, SPEC_FULL §4 supplement #1).
func (s InviterSession) HandleHandshakeReuse(reuse *HandshakeReuse) (InviterSession, *HandshakeReuseAccepted, error) {
	if s.State != StateCompleted {
		return s, nil, agenterr.New(agenterr.InvalidState, "InviterSession.HandleHandshakeReuse", "handshake-reuse only valid once Completed")
	}
	thid := ""
	if reuse.Thread != nil {
		thid = reuse.Thread.ThID
	}
	return s, NewHandshakeReuseAccepted(thid), nil
}

// HandleDiscoverQuery answers a discover-features query while Completed,
// listing the protocols the caller passes (SPEC_FULL §4 supplement #2).
func (s InviterSession) HandleDiscoverQuery(q *DiscoverQuery, supported []string) (InviterSession, *DiscoverDisclose, error) {
	if s.State != StateCompleted {
		return s, nil, agenterr.New(agenterr.InvalidState, "InviterSession.HandleDiscoverQuery", "discover-features only valid once Completed")
	}
	thid := ""
	if q.Thread != nil {
		thid = q.Thread.ThID
	} else {
		thid = q.ID
	}
	return s, NewDiscoverDisclose(thid, supported), nil
}

// HandleProblemReport resets the session to Initial from any state (spec
// §4.2: "any state may transition to Initial on ProblemReport").
func (s InviterSession) HandleProblemReport(*model.ProblemReport) InviterSession {
	next := s
	next.State = StateInitial
	return next
}

func threadIDOf(t *model.Thread, fallbackID string) string {
	if t != nil && t.ThID != "" {
		return t.ThID
	}
	return fallbackID
}
