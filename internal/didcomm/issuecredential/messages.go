// Package issuecredential implements the C6 issuance state machines: issuer
// and holder role variants for the issue-credential/1.0 family (spec §4.4),
// grounded on the same pure transition-by-value style as
// internal/didcomm/connection, generalised from connection-establishment to
// credential issuance.
package issuecredential

import (
	"github.com/google/uuid"

	"aries-agent-core/internal/didcomm/model"
)

const (
	TypeProposal      = "https://didcomm.org/issue-credential/1.0/propose-credential"
	TypeOffer         = "https://didcomm.org/issue-credential/1.0/offer-credential"
	TypeRequest       = "https://didcomm.org/issue-credential/1.0/request-credential"
	TypeIssue         = "https://didcomm.org/issue-credential/1.0/issue-credential"
	TypeAck           = "https://didcomm.org/notification/1.0/ack"
	TypeProblemReport = "https://didcomm.org/issue-credential/1.0/problem-report"
)

// ProposeCredential is the holder's optional proposal, previewing the
// attributes it would like offered (SPEC_FULL §4 supplement #3: holder
// proposal from Initial).
type ProposeCredential struct {
	ID           string             `json:"@id"`
	Type         string             `json:"@type"`
	Comment      string             `json:"comment,omitempty"`
	CredDefID    string             `json:"cred_def_id,omitempty"`
	Attachments  []model.Attachment `json:"filters~attach,omitempty"`
	Thread       *model.Thread      `json:"~thread,omitempty"`
}

// OfferCredential is the issuer's offer, carrying the anoncreds
// CredentialOffer attached as JSON.
type OfferCredential struct {
	ID          string             `json:"@id"`
	Type        string             `json:"@type"`
	Comment     string             `json:"comment,omitempty"`
	Attachments []model.Attachment `json:"offers~attach"`
	Thread      *model.Thread      `json:"~thread,omitempty"`
}

// RequestCredential carries the holder's anoncreds CredentialRequest.
type RequestCredential struct {
	ID          string             `json:"@id"`
	Type        string             `json:"@type"`
	Comment     string             `json:"comment,omitempty"`
	Attachments []model.Attachment `json:"requests~attach"`
	Thread      *model.Thread      `json:"~thread"`
}

// IssueCredential carries the issued anoncreds Credential and whether the
// holder should reply with an Ack.
type IssueCredential struct {
	ID          string             `json:"@id"`
	Type        string             `json:"@type"`
	Comment     string             `json:"comment,omitempty"`
	Attachments []model.Attachment `json:"credentials~attach"`
	PleaseAck   bool               `json:"~please_ack,omitempty"`
	Thread      *model.Thread      `json:"~thread"`
}

func newID() string { return uuid.NewString() }
