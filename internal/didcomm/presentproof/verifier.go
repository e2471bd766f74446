package presentproof

import (
	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/anoncreds"
	"aries-agent-core/internal/didcomm/model"
	"aries-agent-core/internal/wallet"
)

// VerifierSession is the verifier-role presentation session (spec §4.5).
type VerifierSession struct {
	SourceID string
	ThreadID string
	State    State
	Outcome  Outcome

	request       *anoncreds.PresentationRequest
	presentation  *anoncreds.Presentation
	Status        VerificationStatus
	ProblemReport *model.ProblemReport

	// LegacyFallback controls anoncreds.VerifierVerifyProof's opt-in
	// behavior when a credential proof carries no revocation state.
	LegacyFallback bool
}

// NewVerifierSession starts a fresh Initial-state session.
func NewVerifierSession(sourceID, threadID string) VerifierSession {
	return VerifierSession{SourceID: sourceID, ThreadID: threadID, State: StateInitial}
}

// SetRequest caches the presentation request to be sent (spec §4.5: Initial
// → PresentationRequestSet).
func (s VerifierSession) SetRequest(req anoncreds.PresentationRequest) (VerifierSession, error) {
	if s.State != StateInitial {
		return s, agenterr.New(agenterr.InvalidState, "VerifierSession.SetRequest", "set-request only valid from Initial")
	}
	next := s
	next.State = StatePresentationRequestSet
	next.request = &req
	return next, nil
}

// SendRequest emits the cached request (spec §4.5: PresentationRequestSet →
// PresentationRequestSent).
func (s VerifierSession) SendRequest() (VerifierSession, *RequestPresentation, error) {
	if s.State != StatePresentationRequestSet {
		return s, nil, agenterr.New(agenterr.InvalidState, "VerifierSession.SendRequest", "send-request only valid from PresentationRequestSet")
	}
	thid := s.ThreadID
	msg := &RequestPresentation{
		ID:          newID(),
		Type:        TypeRequestPresentation,
		Attachments: []model.Attachment{model.NewJSONAttachment(*s.request)},
	}
	if thid == "" {
		thid = msg.ID
	}
	msg.Thread = &model.Thread{ThID: thid}
	next := s
	next.State = StatePresentationRequestSent
	next.ThreadID = thid
	return next, msg, nil
}

// HandlePresentation stores the prover's presentation (spec §4.5:
// PresentationRequestSent → PresentationReceived).
func (s VerifierSession) HandlePresentation(pres Presentation) (VerifierSession, *model.ProblemReport, error) {
	if s.State != StatePresentationRequestSent {
		return s, nil, agenterr.New(agenterr.InvalidState, "VerifierSession.HandlePresentation", "presentation only valid from PresentationRequestSent")
	}
	thid := threadIDOf(pres.Thread, pres.ID)
	if thid != s.ThreadID {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", "presentation thread-id does not match session")
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.Status = VerificationFailed
		next.ProblemReport = pr
		return next, pr, agenterr.New(agenterr.ThreadMismatch, "VerifierSession.HandlePresentation", "thread-id mismatch")
	}
	var parsed anoncreds.Presentation
	if err := decodeAttachment(pres.Attachments, &parsed); err != nil {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", err.Error())
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.Status = VerificationFailed
		next.ProblemReport = pr
		return next, pr, err
	}
	next := s
	next.State = StatePresentationReceived
	next.presentation = &parsed
	return next, nil, nil
}

// VerifyPresentation calls the anoncreds engine and terminates the session
// (spec §4.5: PresentationReceived → Finished(Success|Failed); verification
// status derived solely from the terminal SM state).
func (s VerifierSession) VerifyPresentation(w wallet.Wallet) (VerifierSession, *model.Ack, *model.ProblemReport, error) {
	if s.State != StatePresentationReceived {
		return s, nil, nil, agenterr.New(agenterr.InvalidState, "VerifierSession.VerifyPresentation", "verify only valid from PresentationReceived")
	}
	ok, err := anoncreds.VerifierVerifyProof(w, *s.request, *s.presentation, s.LegacyFallback)
	if err != nil || !ok {
		msg := "presentation failed verification"
		if err != nil {
			msg = err.Error()
		}
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "presentation_verification_failed", msg)
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.Status = VerificationFailed
		next.ProblemReport = pr
		return next, nil, pr, nil
	}
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeSuccess
	next.Status = VerificationSuccess
	ack := model.NewAck(TypeAck, s.ThreadID)
	return next, ack, nil, nil
}

// HandleProblemReport short-circuits to Finished(Failed) from any state.
func (s VerifierSession) HandleProblemReport(pr *model.ProblemReport) VerifierSession {
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeFailed
	next.Status = VerificationFailed
	next.ProblemReport = pr
	return next
}
