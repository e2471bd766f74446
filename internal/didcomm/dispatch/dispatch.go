// Package dispatch implements the C8 generic message-selection helper
// shared by the connection, issue-credential and present-proof state
// machines (spec §4.6): given an inbox and the current session, pick the
// one message the session can legally handle right now. It is grounded on
// the mapstructure-based generic decode step the aries-framework-go
// reference fragments use before dispatching an inbound DIDComm envelope to
// its typed handler (pkg/didcomm/protocol/didexchange/states.go), adapted
// here into a small role-agnostic scan plus decode utility rather than that
// package's full service-registry machinery.
package dispatch

import (
	"github.com/mitchellh/mapstructure"

	"aries-agent-core/internal/agenterr"
)

// RawMessage is one polled inbox entry before it has been decoded into a
// protocol-specific Go type: its DIDComm @type, its correlator (thid, or id
// when thid is absent), and its raw body.
type RawMessage struct {
	UID      string
	Type     string
	ThreadID string
	Body     map[string]interface{}
}

// Decode unmarshals raw.Body into out using mapstructure, tolerating the
// loosely-typed JSON-as-map shape an inbox poller hands back.
func Decode(raw RawMessage, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "Decode", "build decoder", err)
	}
	if err := dec.Decode(raw.Body); err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "Decode", "decode message body", err)
	}
	return nil
}

// Find scans inbox in order and returns the first message whose type
// satisfies accepts, correlating on ThreadID unless skipThreadCheck reports
// true for that message's type (used for problem-reports and other
// messages this spec does not require thread-id correlation for). The scan
// order is the only thing that can affect the result, which is exactly what
// makes dispatch deterministic under message reordering that does not touch
// accepted types (spec §8 property 8).
func Find(inbox []RawMessage, accepts func(msgType string) bool, threadID string, skipThreadCheck func(msgType string) bool) (RawMessage, bool) {
	for _, msg := range inbox {
		if !accepts(msg.Type) {
			continue
		}
		if skipThreadCheck != nil && skipThreadCheck(msg.Type) {
			return msg, true
		}
		if msg.ThreadID == threadID {
			return msg, true
		}
	}
	return RawMessage{}, false
}
