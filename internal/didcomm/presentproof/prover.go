package presentproof

import (
	"github.com/spf13/afero"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/anoncreds"
	"aries-agent-core/internal/didcomm/model"
	"aries-agent-core/internal/wallet"
)

// ProverSession is the prover-role presentation session (spec §4.5).
type ProverSession struct {
	SourceID string
	ThreadID string
	State    State
	Outcome  Outcome

	request       *anoncreds.PresentationRequest
	presentation  *anoncreds.Presentation
	ProblemReport *model.ProblemReport
}

// NewProverSession starts a fresh Initial-state session. threadID may be
// empty if the prover does not yet know it (it is adopted from the first
// request it receives, or minted when sending a proposal first).
func NewProverSession(sourceID, threadID string) ProverSession {
	return ProverSession{SourceID: sourceID, ThreadID: threadID, State: StateInitial}
}

// SendProposal opens the exchange with a proposal before a request arrives
// (spec §4.5: Initial → PresentationProposalSent). The proposal carries only
// a comment; no presentation preview is attached.
func (s ProverSession) SendProposal(comment string) (ProverSession, *ProposePresentation, error) {
	if s.State != StateInitial {
		return s, nil, agenterr.New(agenterr.InvalidState, "ProverSession.SendProposal", "send-proposal only valid from Initial")
	}
	msg := &ProposePresentation{ID: newID(), Type: TypeProposePresentation, Comment: comment}
	if s.ThreadID != "" {
		msg.Thread = &model.Thread{ThID: s.ThreadID}
	} else {
		msg.Thread = &model.Thread{ThID: msg.ID}
	}
	next := s
	next.State = StatePresentationProposalSent
	next.ThreadID = msg.Thread.ThID
	return next, msg, nil
}

// HandleRequest stores the verifier's presentation request (spec §4.5:
// Initial or PresentationProposalSent → PresentationRequestReceived).
func (s ProverSession) HandleRequest(req RequestPresentation) (ProverSession, *model.ProblemReport, error) {
	if s.State != StateInitial && s.State != StatePresentationProposalSent {
		return s, nil, agenterr.New(agenterr.InvalidState, "ProverSession.HandleRequest", "request only valid from Initial or PresentationProposalSent")
	}
	thid := threadIDOf(req.Thread, req.ID)
	if s.ThreadID != "" && thid != s.ThreadID {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "request_processing_error", "request thread-id does not match session")
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.ProblemReport = pr
		return next, pr, agenterr.New(agenterr.ThreadMismatch, "ProverSession.HandleRequest", "thread-id mismatch")
	}
	var parsed anoncreds.PresentationRequest
	if err := decodeAttachment(req.Attachments, &parsed); err != nil {
		pr := model.NewProblemReport(TypeProblemReport, thid, "request_processing_error", err.Error())
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		next.ProblemReport = pr
		return next, pr, err
	}
	next := s
	next.State = StatePresentationRequestReceived
	next.ThreadID = thid
	next.request = &parsed
	return next, nil, nil
}

// PreparePresentation calls the anoncreds engine to build the proof (spec
// §4.5: PresentationRequestReceived + PreparePresentation →
// PresentationPrepared | PresentationPreparationFailed). Any engine error
// moves the prover to PresentationPreparationFailed carrying a problem
// report, which SendPresentation later emits.
func (s ProverSession) PreparePresentation(w wallet.Wallet, fs afero.Fs, sel anoncreds.SelectedCredentials) (ProverSession, error) {
	if s.State != StatePresentationRequestReceived {
		return s, agenterr.New(agenterr.InvalidState, "ProverSession.PreparePresentation", "prepare-presentation only valid from PresentationRequestReceived")
	}
	pres, err := anoncreds.ProverCreateProof(w, fs, *s.request, sel)
	if err != nil {
		pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "presentation_preparation_error", err.Error())
		next := s
		next.State = StatePresentationPreparationFailed
		next.ProblemReport = pr
		return next, err
	}
	next := s
	next.State = StatePresentationPrepared
	next.presentation = &pres
	return next, nil
}

// RejectPresentationRequest declines the request (spec §4.5: valid only in
// PresentationRequestReceived and PresentationPrepared; in PresentationSent
// it is ActionNotSupported since the prover must not send contradictory
// signals after presentation has left its side).
func (s ProverSession) RejectPresentationRequest(reason string) (ProverSession, *model.ProblemReport, error) {
	switch s.State {
	case StatePresentationRequestReceived, StatePresentationPrepared:
	case StatePresentationSent:
		return s, nil, agenterr.New(agenterr.ActionNotSupported, "ProverSession.RejectPresentationRequest", "cannot reject after presentation has been sent")
	default:
		return s, nil, agenterr.New(agenterr.InvalidState, "ProverSession.RejectPresentationRequest", "reject only valid from PresentationRequestReceived or PresentationPrepared")
	}
	pr := model.NewProblemReport(TypeProblemReport, s.ThreadID, "presentation_rejected", reason)
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeFailed
	next.ProblemReport = pr
	return next, pr, nil
}

// SendPresentation emits the prepared proof, or — if preparation failed —
// emits the cached problem report and terminates Finished(Failed) (spec
// §4.5: PresentationPrepared + SendPresentation → PresentationSent;
// PresentationPreparationFailed + SendPresentation → Finished(Failed)).
func (s ProverSession) SendPresentation() (ProverSession, *Presentation, *model.ProblemReport, error) {
	switch s.State {
	case StatePresentationPrepared:
		msg := &Presentation{
			ID:          newID(),
			Type:        TypePresentation,
			Attachments: []model.Attachment{model.NewJSONAttachment(*s.presentation)},
			PleaseAck:   true,
			Thread:      &model.Thread{ThID: s.ThreadID},
		}
		next := s
		next.State = StatePresentationSent
		return next, msg, nil, nil
	case StatePresentationPreparationFailed:
		pr := s.ProblemReport
		next := s
		next.State = StateFinished
		next.Outcome = OutcomeFailed
		return next, nil, pr, nil
	default:
		return s, nil, nil, agenterr.New(agenterr.InvalidState, "ProverSession.SendPresentation", "send-presentation only valid from PresentationPrepared or PresentationPreparationFailed")
	}
}

// HandleAck finishes the session successfully on a matching thread-id
// (spec §4.5: PresentationSent + Ack → Finished(Success)).
func (s ProverSession) HandleAck(ack *model.Ack) (ProverSession, *model.ProblemReport, error) {
	if s.State != StatePresentationSent {
		return s, nil, agenterr.New(agenterr.InvalidState, "ProverSession.HandleAck", "ack only valid from PresentationSent")
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
		return next, pr, agenterr.New(agenterr.ThreadMismatch, "ProverSession.HandleAck", "thread-id mismatch")
	}
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeSuccess
	return next, nil, nil
}

// HandleProblemReport short-circuits to Finished(Failed) from any state.
func (s ProverSession) HandleProblemReport(pr *model.ProblemReport) ProverSession {
	next := s
	next.State = StateFinished
	next.Outcome = OutcomeFailed
	next.ProblemReport = pr
	return next
}
