package issuecredential

import (
	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/anoncreds"
	"aries-agent-core/internal/didcomm/model"
	"aries-agent-core/internal/wallet"
)

// IssuerSession is the issuer-role issuance session (spec §4.4).
type IssuerSession struct {
	SourceID string
	ThreadID string
	State    State
	Outcome  Outcome

	CredDefID string
	RevRegID  *string
	Values    map[string]string

	offer         *anoncreds.CredentialOffer
	request       *anoncreds.CredentialRequest
	ProblemReport *model.ProblemReport
}

// NewIssuerSession starts a fresh Initial-state session threaded to
// threadID (typically a proposal's or a freshly minted thread-id).
func NewIssuerSession(sourceID, threadID string) IssuerSession {
	return IssuerSession{SourceID: sourceID, ThreadID: threadID, State: StateInitial}
}

// SetOffer builds the anoncreds offer for credDefID and caches it alongside
// the attribute values to be issued and an optional revocation registry
// (spec §4.4: Initial → OfferSet).
func (s IssuerSession) SetOffer(w wallet.Wallet, credDefID string, values map[string]string, revRegID *string) (IssuerSession, error) {
	if s.State != StateInitial {
		return s, agenterr.New(agenterr.InvalidState, "IssuerSession.SetOffer", "set-offer only valid from Initial")
	}
	offer, err := anoncreds.IssuerCreateCredentialOffer(w, credDefID)
	if err != nil {
		return s, err
	}
	next := s
	next.State = StateOfferSet
	next.CredDefID = credDefID
	next.Values = values
	next.RevRegID = revRegID
	next.offer = &offer
	return next, nil
}

// SendOffer emits the cached offer (spec §4.4: OfferSet + SendOffer →
// OfferSent).
func (s IssuerSession) SendOffer() (IssuerSession, *OfferCredential, error) {
	if s.State != StateOfferSet {
		return s, nil, agenterr.New(agenterr.InvalidState, "IssuerSession.SendOffer", "send-offer only valid from OfferSet")
	}
	msg := &OfferCredential{
		ID:          newID(),
		Type:        TypeOffer,
		Attachments: []model.Attachment{model.NewJSONAttachment(*s.offer)},
		Thread:      &model.Thread{ThID: s.ThreadID},
	}
	next := s
	next.State = StateOfferSent
	return next, msg, nil
}

// HandleRequest validates req's thread-id and stores the holder's
// credential request (spec §4.4: OfferSent + Request → RequestReceived).
func (s IssuerSession) HandleRequest(req RequestCredential) (IssuerSession, *model.ProblemReport, error) {
	if s.State != StateOfferSent {
		return s, nil, agenterr.New(agenterr.InvalidState, "IssuerSession.HandleRequest", "request only valid from OfferSent")
	}
	thid := threadIDOf(req.Thread, req.ID)
	if thid != s.ThreadID {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", "request thread-id does not match session")
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.ProblemReport = pr
		return next, pr, agenterr.New(agenterr.ThreadMismatch, "IssuerSession.HandleRequest", "thread-id mismatch")
	}
	var parsed anoncreds.CredentialRequest
	if err := decodeAttachment(req.Attachments, &parsed); err != nil {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", err.Error())
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.ProblemReport = pr
		return next, pr, err
	}
	next := s
	next.State = StateRequestReceived
	next.request = &parsed
	return next, nil, nil
}

// SendCredential issues the credential via the anoncreds engine and emits
// it (spec §4.4: RequestReceived + SendCredential → CredentialSent). An
// engine failure (e.g. RegistryFull) moves the session straight to
// Finished(Failed) with a problem report rather than retrying silently
// (spec §7: cryptographic/credential failures never terminate the process).
func (s IssuerSession) SendCredential(w wallet.Wallet) (IssuerSession, *IssueCredential, *model.ProblemReport, error) {
	if s.State != StateRequestReceived {
		return s, nil, nil, agenterr.New(agenterr.InvalidState, "IssuerSession.SendCredential", "send-credential only valid from RequestReceived")
	}
	cred, err := anoncreds.IssuerCreateCredential(w, *s.offer, *s.request, s.Values, s.RevRegID)
	if err != nil {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "issuance_error", err.Error())
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.ProblemReport = pr
		return next, nil, pr, err
	}
	msg := &IssueCredential{
		ID:          newID(),
		Type:        TypeIssue,
		Attachments: []model.Attachment{model.NewJSONAttachment(cred)},
		PleaseAck:   true,
		Thread:      &model.Thread{ThID: s.ThreadID},
	}
	next := s
	next.State = StateCredentialSent
	return next, msg, nil, nil
}

// HandleAck finishes the session successfully on a matching thread-id
// (spec §4.4: CredentialSent + Ack → Finished(Success)).
func (s IssuerSession) HandleAck(ack *model.Ack) (IssuerSession, *model.ProblemReport, error) {
	if s.State != StateCredentialSent {
		return s, nil, agenterr.New(agenterr.InvalidState, "IssuerSession.HandleAck", "ack only valid from CredentialSent")
	}
	thid := ""
	if ack.Thread != nil {
		thid = ack.Thread.ThID
	}
	if thid != s.ThreadID {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", "ack thread-id does not match session")
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.ProblemReport = pr
		return next, pr, agenterr.New(agenterr.ThreadMismatch, "IssuerSession.HandleAck", "thread-id mismatch")
	}
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeSuccess
	return next, nil, nil
}

// HandleProblemReport short-circuits to Finished(Failed) from any state
// (spec §4.4: "any state able to short-circuit to Finished(Failed) on
// ProblemReport").
func (s IssuerSession) HandleProblemReport(pr *model.ProblemReport) IssuerSession {
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeFailed
	next.ProblemReport = pr
	return next
}
