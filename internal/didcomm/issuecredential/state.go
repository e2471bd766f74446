package issuecredential

// State enumerates every state name used by either role's machine (spec
// §4.4); each role only ever occupies the subset relevant to it.
type State string

const (
	StateInitial         State = "Initial"
	StateProposalSent     State = "ProposalSent"
	StateOfferSet         State = "OfferSet"
	StateOfferSent        State = "OfferSent"
	StateOfferReceived     State = "OfferReceived"
	StateRequestReceived  State = "RequestReceived"
	StateRequestSent      State = "RequestSent"
	StateCredentialSent   State = "CredentialSent"
	StateFinished         State = "Finished"
)

// Outcome distinguishes a successful from a failed Finished state (spec
// §4.4: "Finished(Success|Failed)").
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "Success"
	OutcomeFailed  Outcome = "Failed"
)
