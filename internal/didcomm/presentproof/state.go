package presentproof

// State enumerates every state name used by either role's machine (spec
// §4.5); each role only ever occupies the subset relevant to it.
type State string

const (
	StateInitial                     State = "Initial"
	StatePresentationProposalSent    State = "PresentationProposalSent"
	StatePresentationRequestSet      State = "PresentationRequestSet"
	StatePresentationRequestSent     State = "PresentationRequestSent"
	StatePresentationRequestReceived State = "PresentationRequestReceived"
	StatePresentationPrepared        State = "PresentationPrepared"
	StatePresentationPreparationFailed State = "PresentationPreparationFailed"
	StatePresentationSent            State = "PresentationSent"
	StatePresentationReceived        State = "PresentationReceived"
	StateFinished                    State = "Finished"
)

// Outcome distinguishes a successful from a failed Finished state.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "Success"
	OutcomeFailed  Outcome = "Failed"
)

// VerificationStatus is the u32-style presentation status exposed to
// callers once a verifier session reaches Finished (spec §4.5: "distinguishes
// Undefined, Success, Failed(ProblemReport), derived solely from the
// terminal SM state").
type VerificationStatus int

const (
	VerificationUndefined VerificationStatus = iota
	VerificationSuccess
	VerificationFailed
)
