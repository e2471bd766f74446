// Package model holds the Aries message envelope pieces shared by every
// protocol family: thread/timing decorators, attachments, DID documents and
// pairwise identity (spec §3, C3). It is grounded on the decorator and
// did-doc shapes used throughout the retrieved aries-framework-go
// didexchange state machine (pkg/didcomm/protocol/didexchange/states.go).
package model

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Thread correlates every message of one protocol instance (spec GLOSSARY:
// thread-id, parent-thread-id).
type Thread struct {
	ThID  string `json:"thid,omitempty"`
	PThID string `json:"pthid,omitempty"`
}

// Timing is the ~timing decorator. Only out_time is used by this core.
type Timing struct {
	OutTime *time.Time `json:"out_time,omitempty"`
}

// NowTiming returns a Timing decorator stamped with the current time.
func NowTiming() *Timing {
	t := time.Now().UTC()
	return &Timing{OutTime: &t}
}

// AttachmentData is the body of an ~attach entry: either inlined base64 or
// inlined JSON (links to external content are supported but never resolved
// by this core — ledger/mediator I/O is out of scope).
type AttachmentData struct {
	Base64 string      `json:"base64,omitempty"`
	JSON   interface{} `json:"json,omitempty"`
	Links  []string    `json:"links,omitempty"`
}

// Attachment is the Aries ~attach decorator entry (spec §3/SPEC_FULL §4.5:
// credential/presentation preview attachments).
type Attachment struct {
	ID       string         `json:"@id"`
	MimeType string         `json:"mime-type,omitempty"`
	Data     AttachmentData `json:"data"`
}

// NewJSONAttachment builds an attachment carrying an inlined JSON payload.
func NewJSONAttachment(payload interface{}) Attachment {
	return Attachment{
		ID:       uuid.NewString(),
		MimeType: "application/json",
		Data:     AttachmentData{JSON: payload},
	}
}

// PairwiseInfo uniquely addresses one side of one relationship (spec §3).
// Immutable once created for the lifetime of that connection.
type PairwiseInfo struct {
	DID    string `json:"did"`
	Verkey string `json:"verkey"`
}

// DIDDoc is the counterparty's routing document (spec §3).
type DIDDoc struct {
	ID              string   `json:"id"`
	RecipientKeys   []string `json:"recipientKeys"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
}

// Validate enforces the DIDDoc invariant from spec §3: a usable DIDDoc has
// at least one recipient key and a parseable endpoint URL.
func (d DIDDoc) Validate() error {
	if len(d.RecipientKeys) == 0 {
		return fmt.Errorf("diddoc %s: no recipient keys", d.ID)
	}
	if d.ServiceEndpoint == "" {
		return fmt.Errorf("diddoc %s: no service endpoint", d.ID)
	}
	if _, err := url.ParseRequestURI(d.ServiceEndpoint); err != nil {
		return fmt.Errorf("diddoc %s: service endpoint %q: %w", d.ID, d.ServiceEndpoint, err)
	}
	return nil
}

// NewID returns a fresh UUID suitable as a message or thread id.
func NewID() string { return uuid.NewString() }

// ProblemReport is the shared `problem-report` payload used across every
// protocol family (connections, issue-credential, present-proof).
type ProblemReport struct {
	ID          string  `json:"@id"`
	Type        string  `json:"@type"`
	Thread      *Thread `json:"~thread,omitempty"`
	Description struct {
		Code string `json:"code"`
		En   string `json:"en,omitempty"`
	} `json:"description"`
}

// NewProblemReport builds a problem-report of the given message type and
// code, threaded to thid.
func NewProblemReport(msgType, thid, code, comment string) *ProblemReport {
	pr := &ProblemReport{
		ID:     uuid.NewString(),
		Type:   msgType,
		Thread: &Thread{ThID: thid},
	}
	pr.Description.Code = code
	pr.Description.En = comment
	return pr
}

// Ack is the notification/1.0 ack message, reused by every protocol family
// that needs a terminal acknowledgement.
type Ack struct {
	ID     string  `json:"@id"`
	Type   string  `json:"@type"`
	Status string  `json:"status"`
	Thread *Thread `json:"~thread"`
}

// NewAck builds an Ack message threaded to thid with status "OK".
func NewAck(msgType, thid string) *Ack {
	return &Ack{ID: uuid.NewString(), Type: msgType, Status: "OK", Thread: &Thread{ThID: thid}}
}
