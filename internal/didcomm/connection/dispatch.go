package connection

import "aries-agent-core/internal/didcomm/model"

// Role distinguishes which acceptance table applies (spec §4.2: "two role
// variants share the transition vocabulary; each has distinct accepted
// messages").
type Role string

const (
	RoleInviter Role = "inviter"
	RoleInvitee Role = "invitee"
)

// InboxMessage is one polled message, already classified by type with its
// thread-id extracted (thid, or id when thid is absent), matching spec
// §4.6's dispatch inputs generalised to this protocol's own message set.
type InboxMessage struct {
	UID      string
	Type     string
	ThreadID string
	Payload  interface{}
}

// acceptedTypes returns the message types legal for role in state (spec
// §4.2's two transition tables, inbound-message rows only — purely local
// actions like Connect/SendRequest/SendResponse/SendAck have no inbox
// counterpart).
func acceptedTypes(role Role, state State) []string {
	switch role {
	case RoleInviter:
		switch state {
		case StateInvited:
			return []string{TypeRequest, TypeProblemReport}
		case StateResponded:
			return []string{TypeAck, TypePing, TypeProblemReport}
		case StateCompleted:
			return []string{TypePing, TypeDiscoverQuery, TypeHandshakeReuse}
		}
	case RoleInvitee:
		switch state {
		case StateRequested:
			return []string{TypeResponse, TypeProblemReport}
		case StateCompleted:
			return []string{TypePing, TypeHandshakeReuseAccepted}
		}
	}
	return nil
}

// FindMessageToUpdateState scans inbox in order and returns the first
// message whose (state, type) pair is legal for role and whose thread-id
// correlates to threadID (problem reports are accepted without the
// thread-id check), or ok=false if none does (spec §4.2 "Dispatch
// policy" / §4.6, §8 property 8: dispatch determinism — the scan is
// strictly in insertion order so unrelated message reordering never changes
// the result).
func FindMessageToUpdateState(role Role, state State, threadID string, inbox []InboxMessage) (InboxMessage, bool) {
	accepted := acceptedTypes(role, state)
	for _, msg := range inbox {
		if !containsType(accepted, msg.Type) {
			continue
		}
		if msg.Type == TypeProblemReport {
			return msg, true
		}
		if msg.ThreadID == threadID {
			return msg, true
		}
	}
	return InboxMessage{}, false
}

// FindMessageToHandle is the Completed-state convenience of spec §4.2: it
// returns only trust-ping and out-of-band handshake-reuse (or
// handshake-reuse-accepted) messages, ignoring anything else regardless of
// state.
func FindMessageToHandle(inbox []InboxMessage) (InboxMessage, bool) {
	for _, msg := range inbox {
		switch msg.Type {
		case TypePing, TypeHandshakeReuse, TypeHandshakeReuseAccepted:
			return msg, true
		}
	}
	return InboxMessage{}, false
}

func containsType(types []string, t string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// ThreadIDOfAck/Ping helpers let callers build InboxMessage.ThreadID
// consistently with the session transition methods' own derivation.
func ThreadIDOfAck(a *model.Ack) string {
	if a.Thread != nil {
		return a.Thread.ThID
	}
	return ""
}

func ThreadIDOfPing(p *Ping) string {
	return threadIDOf(p.Thread, p.ID)
}
