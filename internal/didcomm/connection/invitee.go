package connection

import (
	"github.com/google/uuid"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/crypto"
	"aries-agent-core/internal/didcomm/model"
)

// InviteeSession is the invitee-role connection session (spec §3, §4.2).
type InviteeSession struct {
	SourceID string
	ThreadID string
	State    State
	Autohop  bool

	invitationID string
	isOOB        bool

	MyPairwise  model.PairwiseInfo
	myKeyPair   *crypto.KeyPair
	TheirVerkey string
	TheirDIDDoc *model.DIDDoc

	pendingRequest *Request
}

// NewInviteeSession starts a fresh Initial-state session.
func NewInviteeSession(sourceID string) InviteeSession {
	return InviteeSession{SourceID: sourceID, State: StateInitial}
}

// HandleInvitation adopts inv's id as the session's thread-id (spec §4.2:
// Initial + HandleInvitation → Invited). isOOB marks an out-of-band
// invitation, which changes the thread-id derivation rule in SendRequest.
func (s InviteeSession) HandleInvitation(inv Invitation, isOOB bool) (InviteeSession, error) {
	if s.State != StateInitial {
		return s, agenterr.New(agenterr.InvalidState, "InviteeSession.HandleInvitation", "handle-invitation only valid from Initial")
	}
	if len(inv.RecipientKeys) == 0 && inv.PublicDID == "" {
		return s, agenterr.New(agenterr.InvalidInput, "InviteeSession.HandleInvitation", "invitation has neither recipient keys nor a public DID")
	}
	next := s
	next.ThreadID = inv.ID
	next.invitationID = inv.ID
	next.isOOB = isOOB
	if len(inv.RecipientKeys) > 0 {
		next.TheirVerkey = inv.RecipientKeys[0]
	}
	next.State = StateInvited
	return next, nil
}

// SendRequest builds the invitee's Request with its own fresh DIDDoc (spec
// §4.2: Invited + SendRequest → Requested). For a pairwise invitation the
// request's ~thread.thid is the invitation id; for an out-of-band
// invitation it is the request's own id with pthid set to the invitation
// id. In both cases the session's thread-id becomes the request id, which
// the inviter adopts and echoes on its response (spec §4.2 thread-id
// derivation rules).
func (s InviteeSession) SendRequest(cap crypto.Capability, label string, routingKeys []string, endpoint string) (InviteeSession, Request, error) {
	if s.State != StateInvited {
		return s, Request{}, agenterr.New(agenterr.InvalidState, "InviteeSession.SendRequest", "send-request only valid from Invited")
	}
	myPW, kp, err := cap.CreateDID()
	if err != nil {
		return s, Request{}, err
	}

	reqID := uuid.NewString()
	thread := &model.Thread{ThID: s.invitationID}
	if s.isOOB {
		thread = &model.Thread{ThID: reqID, PThID: s.invitationID}
	}

	req := Request{
		ID:    reqID,
		Type:  TypeRequest,
		Label: label,
		Connection: ConnectionData{
			DID: myPW.DID,
			DIDDoc: model.DIDDoc{
				ID:              myPW.DID,
				RecipientKeys:   []string{myPW.Verkey},
				RoutingKeys:     routingKeys,
				ServiceEndpoint: endpoint,
			},
		},
		Thread: thread,
	}

	next := s
	next.State = StateRequested
	next.ThreadID = reqID
	next.MyPairwise = myPW
	next.myKeyPair = kp
	next.pendingRequest = &req
	return next, req, nil
}

// HandleResponse verifies resp's signature against the invitation's
// bootstrap verkey and thread-id, adopting the inviter's new DIDDoc on
// success (spec §4.2: Requested + Response → Responded; §8 testable
// property 2: "the verifying key is exactly the invitation's first
// recipient key").
func (s InviteeSession) HandleResponse(cap crypto.Capability, resp SignedResponse) (InviteeSession, *model.ProblemReport, error) {
	if s.State != StateRequested {
		return s, nil, agenterr.New(agenterr.InvalidState, "InviteeSession.HandleResponse", "response only valid from Requested")
	}
	thid := threadIDOf(resp.Thread, "")
	if thid != s.ThreadID {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", "response thread-id does not match request")
		next := s
		next.State = StateInitial
		return next, pr, agenterr.New(agenterr.ThreadMismatch, "InviteeSession.HandleResponse", "thread-id mismatch")
	}

	var cd ConnectionData
	sp := signedPayload(resp.ConnectionSig)
	if err := cap.DecodeSignedPayload(sp, s.TheirVerkey, &cd); err != nil {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "response_processing_error", "signature verification failed")
		next := s
		next.State = StateInitial
		return next, pr, err
	}
	if err := cd.DIDDoc.Validate(); err != nil {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "response_processing_error", err.Error())
		next := s
		next.State = StateInitial
		return next, pr, agenterr.Wrap(agenterr.InvalidInput, "InviteeSession.HandleResponse", "invalid inviter diddoc", err)
	}

	next := s
	next.State = StateResponded
	next.TheirDIDDoc = &cd.DIDDoc
	return next, nil, nil
}

// SendAck completes the session (spec §4.2: Responded + SendAck →
// Completed). autohop-eligible: the orchestrator may call this immediately
// after HandleResponse with no new inbound message (spec §4.2 Autohop).
func (s InviteeSession) SendAck() (InviteeSession, *model.Ack, error) {
	if s.State != StateResponded {
		return s, nil, agenterr.New(agenterr.InvalidState, "InviteeSession.SendAck", "send-ack only valid from Responded")
	}
	next := s
	next.State = StateCompleted
	return next, model.NewAck(TypeAck, s.ThreadID), nil
}

// HandlePing answers a trust-ping while Completed.
func (s InviteeSession) HandlePing(ping *Ping) (InviteeSession, *PingResponse, error) {
	if s.State != StateCompleted {
		return s, nil, agenterr.New(agenterr.InvalidState, "InviteeSession.HandlePing", "ping only valid once Completed")
	}
	if ping.ResponseRequested {
		return s, NewPingResponse(s.ThreadID), nil
	}
	return s, nil, nil
}

// HandleHandshakeReuseAccepted confirms a previously-sent handshake-reuse;
// no state change beyond observing it (SPEC_FULL §4 supplement #1).
func (s InviteeSession) HandleHandshakeReuseAccepted(*HandshakeReuseAccepted) (InviteeSession, error) {
	if s.State != StateCompleted {
		return s, agenterr.New(agenterr.InvalidState, "InviteeSession.HandleHandshakeReuseAccepted", "only valid once Completed")
	}
	return s, nil
}

// HandleProblemReport resets the session to Initial from any state.
func (s InviteeSession) HandleProblemReport(*model.ProblemReport) InviteeSession {
	next := s
	next.State = StateInitial
	return next
}

func signedPayload(ref *SignedPayloadRef) *crypto.SignedPayload {
	if ref == nil {
		return &crypto.SignedPayload{}
	}
	return &crypto.SignedPayload{SigData: ref.SigData, Signature: ref.Signature, Signer: ref.Signer}
}
