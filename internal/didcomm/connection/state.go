package connection

import "aries-agent-core/internal/didcomm/model"

// State is the shared transition vocabulary of spec §4.2: both inviter and
// invitee role machines move through the same five names, though each role
// defines which (state, message) pairs are legal (no inheritance between
// the two — spec §9 — just the same small string enum).
type State string

const (
	StateInitial   State = "Initial"
	StateInvited   State = "Invited"
	StateRequested State = "Requested"
	StateResponded State = "Responded"
	StateCompleted State = "Completed"
)

// Sent captures an outbound message produced by a transition, handed to the
// caller's send-capability closure (spec §9: "capability closures instead
// of globals"). The state machine itself never performs I/O.
type Sent struct {
	To      model.DIDDoc
	Payload interface{}
}
