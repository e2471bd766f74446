package issuecredential

import (
	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/anoncreds"
	"aries-agent-core/internal/didcomm/model"
	"aries-agent-core/internal/wallet"
)

// HolderSession is the holder-role issuance session (spec §4.4, plus
// SPEC_FULL §4 supplement #3: a holder may optionally open with a proposal
// instead of waiting for an unsolicited offer).
type HolderSession struct {
	SourceID string
	ThreadID string
	State    State
	Outcome  Outcome

	offer         *anoncreds.CredentialOffer
	reqMeta       *anoncreds.CredentialRequestMetadata
	ProblemReport *model.ProblemReport
}

// NewHolderSession starts a fresh Initial-state session. threadID may be
// empty if the holder does not yet know it (it will be adopted from the
// first offer it receives).
func NewHolderSession(sourceID, threadID string) HolderSession {
	return HolderSession{SourceID: sourceID, ThreadID: threadID, State: StateInitial}
}

// SendProposal emits a credential proposal naming the cred-def the holder
// would like a credential under, with an optional comment; no attribute
// preview is attached (SPEC_FULL §4 supplement #3: Initial → ProposalSent).
func (s HolderSession) SendProposal(credDefID, comment string) (HolderSession, *ProposeCredential, error) {
	if s.State != StateInitial {
		return s, nil, agenterr.New(agenterr.InvalidState, "HolderSession.SendProposal", "send-proposal only valid from Initial")
	}
	msg := &ProposeCredential{ID: newID(), Type: TypeProposal, Comment: comment, CredDefID: credDefID}
	if s.ThreadID != "" {
		msg.Thread = &model.Thread{ThID: s.ThreadID}
	} else {
		msg.Thread = &model.Thread{ThID: msg.ID}
	}
	next := s
	next.State = StateProposalSent
	next.ThreadID = msg.Thread.ThID
	return next, msg, nil
}

// HandleOffer stores the issuer's offer, adopting its thread-id when the
// holder started from Initial with no proposal sent (spec §4.4: Initial or
// ProposalSent → OfferReceived).
func (s HolderSession) HandleOffer(offer OfferCredential) (HolderSession, *model.ProblemReport, error) {
	if s.State != StateInitial && s.State != StateProposalSent {
		return s, nil, agenterr.New(agenterr.InvalidState, "HolderSession.HandleOffer", "offer only valid from Initial or ProposalSent")
	}
	thid := threadIDOf(offer.Thread, offer.ID)
	if s.ThreadID != "" && thid != s.ThreadID {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", "offer thread-id does not match session")
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.ProblemReport = pr
		return next, pr, agenterr.New(agenterr.ThreadMismatch, "HolderSession.HandleOffer", "thread-id mismatch")
	}
	var parsed anoncreds.CredentialOffer
	if err := decodeAttachment(offer.Attachments, &parsed); err != nil {
		pr := model.NewProblemReport(TypeProblemReport, thid, "request_processing_error", err.Error())
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.ProblemReport = pr
		return next, pr, err
	}
	next := s
	next.State = StateOfferReceived
	next.ThreadID = thid
	next.offer = &parsed
	return next, nil, nil
}

// SendRequest builds the anoncreds credential request and emits it (spec
// §4.4: OfferReceived + SendRequest(my_pw_did) → RequestSent). An engine
// error (e.g. an unknown link-secret alias) moves the session straight to
// Finished(Failed) with a problem report.
func (s HolderSession) SendRequest(w wallet.Wallet, proverDID, linkSecretAlias string) (HolderSession, *RequestCredential, *model.ProblemReport, error) {
	if s.State != StateOfferReceived {
		return s, nil, nil, agenterr.New(agenterr.InvalidState, "HolderSession.SendRequest", "send-request only valid from OfferReceived")
	}
	req, meta, err := anoncreds.ProverCreateCredentialReq(w, proverDID, *s.offer, linkSecretAlias)
	if err != nil {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_error", err.Error())
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.ProblemReport = pr
		return next, nil, pr, err
	}
	msg := &RequestCredential{
		ID:          newID(),
		Type:        TypeRequest,
		Attachments: []model.Attachment{model.NewJSONAttachment(req)},
		Thread:      &model.Thread{ThID: s.ThreadID},
	}
	next := s
	next.State = StateRequestSent
	next.reqMeta = &meta
	return next, msg, nil, nil
}

// DeclineOffer rejects an offer (spec §4.4: OfferReceived + DeclineOffer →
// Finished(Failed); spec scenario S5).
func (s HolderSession) DeclineOffer(comment string) (HolderSession, *model.ProblemReport, error) {
	if s.State != StateOfferReceived {
		return s, nil, agenterr.New(agenterr.InvalidState, "HolderSession.DeclineOffer", "decline-offer only valid from OfferReceived")
	}
	pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "offer_declined", comment)
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeFailed
	next.ProblemReport = pr
	return next, pr, nil
}

// HandleCredential verifies and stores the issued credential via the
// anoncreds engine, replying with an Ack when the issuer asked for one
// (spec §4.4: RequestSent + Credential → Finished(Success)).
func (s HolderSession) HandleCredential(w wallet.Wallet, issued IssueCredential) (HolderSession, *model.Ack, error) {
	if s.State != StateRequestSent {
		return s, nil, agenterr.New(agenterr.InvalidState, "HolderSession.HandleCredential", "credential only valid from RequestSent")
	}
	thid := threadIDOf(issued.Thread, "")
	if thid != s.ThreadID {
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		return next, nil, agenterr.New(agenterr.ThreadMismatch, "HolderSession.HandleCredential", "credential thread-id does not match session")
	}
	var cred anoncreds.Credential
	if err := decodeAttachment(issued.Attachments, &cred); err != nil {
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		return next, nil, err
	}
	if _, err := anoncreds.ProverStoreCredential(w, cred, *s.reqMeta, ""); err != nil {
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		return next, nil, err
	}
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeSuccess
	var ack *model.Ack
	if issued.PleaseAck {
		ack = model.NewAck(TypeAck, s.ThreadID)
	}
	return next, ack, nil
}

// HandleProblemReport short-circuits to Finished(Failed) from any state.
func (s HolderSession) HandleProblemReport(pr *model.ProblemReport) HolderSession {
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeFailed
	next.ProblemReport = pr
	return next
}
