// Package presentproof implements the present-proof/1.0 protocol's prover
// and verifier state machines (spec §4.5), following the same pure
// value-receiver style as connection and issuecredential.
package presentproof

import (
	"aries-agent-core/internal/didcomm/model"
	"github.com/google/uuid"
)

const (
	TypeProposePresentation = "https://didcomm.org/present-proof/1.0/propose-presentation"
	TypeRequestPresentation = "https://didcomm.org/present-proof/1.0/request-presentation"
	TypePresentation        = "https://didcomm.org/present-proof/1.0/presentation"
	TypeAck                 = "https://didcomm.org/present-proof/1.0/ack"
	TypeProblemReport       = "https://didcomm.org/present-proof/1.0/problem-report"
)

// ProposePresentation previews attributes the prover offers to present,
// sent ahead of an explicit request.
type ProposePresentation struct {
	ID          string              `json:"@id"`
	Type        string              `json:"@type"`
	Comment     string              `json:"comment,omitempty"`
	Attachments []model.Attachment  `json:"presentations~attach,omitempty"`
	Thread      *model.Thread       `json:"~thread,omitempty"`
}

// RequestPresentation carries the verifier's PresentationRequest as an
// attachment.
type RequestPresentation struct {
	ID          string             `json:"@id"`
	Type        string             `json:"@type"`
	Comment     string             `json:"comment,omitempty"`
	Attachments []model.Attachment `json:"request_presentations~attach"`
	Thread      *model.Thread      `json:"~thread,omitempty"`
}

// Presentation carries the prover's built proof as an attachment.
type Presentation struct {
	ID          string             `json:"@id"`
	Type        string             `json:"@type"`
	Comment     string             `json:"comment,omitempty"`
	Attachments []model.Attachment `json:"presentations~attach"`
	PleaseAck   bool               `json:"~please_ack,omitempty"`
	Thread      *model.Thread      `json:"~thread,omitempty"`
}

func newID() string {
	return uuid.NewString()
}
