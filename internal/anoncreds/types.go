// Package anoncreds implements the C4 anoncreds engine (spec §4.3): schema,
// cred-def and rev-reg creation; credential issuance with revocation
// bookkeeping; credential request/storage; proof generation/verification;
// local revocation and delta merging. It is stateless except via the
// wallet contract (internal/wallet), matching spec §4.3's "all operations
// take the wallet as a parameter".
//
// Credential/proof cryptography here deliberately does not reimplement
// Camenisch-Lysyanskaya signatures or the anoncreds zero-knowledge proof
// system — spec §1's Non-goals rule out "cryptographic primitive design"
// ("CL signatures are consumed, not re-invented"). Instead each credential
// is bound to the holder's link secret and signed by the cred-def's own
// ed25519 key (crypto/ed25519), which reproduces the engine's full
// artifact lifecycle, bookkeeping and WQL-tag storage faithfully while
// substituting a plain digital signature for the CL/zero-knowledge math;
// see DESIGN.md for the rationale and the exact substitution made at each
// step.
package anoncreds

import (
	"crypto/ed25519"
)

// Schema is the issuer's attribute-name declaration (spec §3).
type Schema struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	IssuerDID string   `json:"issuerDid"`
	AttrNames []string `json:"attrNames"`
}

// CredDefConfig configures issuer_create_and_store_credential_def.
type CredDefConfig struct {
	Tag               string
	SignatureType     string // "CL", kept for wire compatibility though unused by the simplified signer
	SupportRevocation bool
}

// CredentialDefinition is the issuer's public commitment to a schema (spec §3).
type CredentialDefinition struct {
	ID                string `json:"id"`
	SchemaID          string `json:"schemaId"`
	IssuerDID         string `json:"issuerDid"`
	Tag               string `json:"tag"`
	SignatureType     string `json:"signatureType"`
	SupportRevocation bool   `json:"supportRevocation"`
	PublicKey         string `json:"publicKey"` // base64 ed25519 public key dedicated to this cred-def
}

// credDefPrivate is the cred-def's private signing key, kept only in the
// wallet under CredDefPriv, never returned to callers.
type credDefPrivate struct {
	ID   string `json:"id"`
	Seed []byte `json:"seed"` // ed25519 seed
}

func (p credDefPrivate) privateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(p.Seed)
}

// CredentialKeyCorrectnessProof attests the cred-def's public key was
// correctly derived from its private key (simplified here as the issuer's
// self-signature over its own public key, in place of the real CL
// correctness proof — see package doc).
type CredentialKeyCorrectnessProof struct {
	ID        string `json:"id"`
	Signature string `json:"signature"` // base64 ed25519 sig of PublicKey over itself
}

// IssuanceType controls revocation registry bookkeeping semantics (spec §3/§4.3).
type IssuanceType string

const (
	IssuanceByDefault IssuanceType = "ISSUANCE_BY_DEFAULT"
	IssuanceOnDemand  IssuanceType = "ISSUANCE_ON_DEMAND"
)

// RevocationRegistryDefinition describes one accumulator (spec §3).
type RevocationRegistryDefinition struct {
	ID           string       `json:"id"`
	CredDefID    string       `json:"credDefId"`
	Tag          string       `json:"tag"`
	MaxCredNum   uint32       `json:"maxCredNum"`
	IssuanceType IssuanceType `json:"issuanceType"`
	TailsHash    string       `json:"tailsHash"`
	TailsDir     string       `json:"tailsDir"`
}

// revRegDefPrivate holds the accumulator's private trapdoor (simplified to
// random bytes; see package doc — this core never performs the real
// pairing-based accumulator math).
type revRegDefPrivate struct {
	ID   string `json:"id"`
	Seed []byte `json:"seed"`
}

// RevocationRegistry is the accumulator's current public value.
type RevocationRegistry struct {
	ID    string `json:"id"`
	Accum string `json:"accum"`
}

// RevocationRegistryInfo is the issuer-side bookkeeping record (spec §3):
// curr_id tracks allocation, used_ids the credentials actually issued.
type RevocationRegistryInfo struct {
	ID      string          `json:"id"`
	CurrID  uint32          `json:"currId"`
	UsedIDs map[uint32]bool `json:"usedIds"`
}

// RevocationRegistryDelta is the accumulated set of revocation events not
// yet published/cleared (spec §4.3).
type RevocationRegistryDelta struct {
	ID      string          `json:"id"`
	Issued  map[uint32]bool `json:"issued"`
	Revoked map[uint32]bool `json:"revoked"`
}

// CredentialOffer is issuer_create_credential_offer's result.
type CredentialOffer struct {
	SchemaID            string                        `json:"schemaId"`
	CredDefID           string                        `json:"credDefId"`
	KeyCorrectnessProof CredentialKeyCorrectnessProof `json:"keyCorrectnessProof"`
	Nonce               string                        `json:"nonce"`
}

// CredentialRequest is prover_create_credential_req's result, binding the
// request to the holder's link secret via a commitment (simplified
// Pedersen-style commitment: sha256(linkSecret || nonce), in place of the
// real blinded-master-secret construction — see package doc).
type CredentialRequest struct {
	ProverDID        string `json:"proverDid"`
	CredDefID        string `json:"credDefId"`
	LinkSecretAlias  string `json:"linkSecretAlias"`
	BlindedMSCommit  string `json:"blindedMsCommit"`
	Nonce            string `json:"nonce"`
}

// CredentialRequestMetadata is returned alongside CredentialRequest and fed
// back into prover_store_credential, mirroring the real API shape.
type CredentialRequestMetadata struct {
	LinkSecretAlias string `json:"linkSecretAlias"`
	Nonce           string `json:"nonce"`
}

// Credential is the issued artifact (spec §3): issuer-signed attribute
// values bound to the holder's link-secret commitment and, for revocable
// cred-defs, a registry index.
type Credential struct {
	SchemaID      string            `json:"schemaId"`
	CredDefID     string            `json:"credDefId"`
	IssuerDID     string            `json:"issuerDid"`
	Values        map[string]string `json:"values"`
	LinkSecretCommit string         `json:"linkSecretCommit"`
	RevRegID      *string           `json:"revRegId,omitempty"`
	CredRevID     *uint32           `json:"credRevId,omitempty"`
	Signature     string            `json:"signature"` // base64 ed25519 signature
}

// StoredCredential is the holder-side wallet record (spec §3), identified
// by a fresh UUID and tagged for WQL search.
type StoredCredential struct {
	ReferentID string     `json:"referentId"`
	Cred       Credential `json:"cred"`
}

// AttrInfo describes one requested attribute referent in a presentation
// request (spec §4.3, S4).
type AttrInfo struct {
	Name         string              `json:"name"`
	Restrictions []map[string]string `json:"restrictions,omitempty"`
}

// PredInfo describes one requested predicate referent (e.g. age >= 18).
type PredInfo struct {
	Name         string              `json:"name"`
	PType        string              `json:"p_type"`
	PValue       int                 `json:"p_value"`
	Restrictions []map[string]string `json:"restrictions,omitempty"`
}

// PresentationRequest is the verifier's request (spec §4.3, S4).
type PresentationRequest struct {
	Nonce                string              `json:"nonce"`
	RequestedAttributes  map[string]AttrInfo `json:"requestedAttributes"`
	RequestedPredicates  map[string]PredInfo `json:"requestedPredicates"`
	NonRevoked           *NonRevokedInterval `json:"nonRevoked,omitempty"`
}

// NonRevokedInterval restricts a presentation to a [From, To] validity window.
type NonRevokedInterval struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// RequestedCredential is one selection made by the prover when building a
// presentation: which stored credential satisfies which referent.
type RequestedCredential struct {
	Referent     string
	CredentialID string
	Revealed     bool
	Timestamp    *uint64
}

// SelectedCredentials groups attribute and predicate selections.
type SelectedCredentials struct {
	Attrs      map[string]RequestedCredential
	Predicates map[string]RequestedCredential
}

// RevocationState is the witness a prover attaches when proving
// non-revocation at a given accumulator timestamp (spec §4.3:
// create_revocation_state).
type RevocationState struct {
	RevRegID  string `json:"revRegId"`
	Timestamp uint64 `json:"timestamp"`
	CredRevID uint32 `json:"credRevId"`
	Witness   string `json:"witness"` // digest of the registry id, CredRevID and the registry's used-id set
}

// RevealedAttr is one disclosed attribute in a built presentation.
type RevealedAttr struct {
	Raw       string `json:"raw"`
	Encoded   string `json:"encoded"`
	CredRevID *uint32 `json:"credRevId,omitempty"`
}

// PresentationCredentialProof is the per-credential proof component: the
// original issuer signature plus which attributes/predicates it backs.
type PresentationCredentialProof struct {
	CredDefID      string                  `json:"credDefId"`
	SchemaID       string                  `json:"schemaId"`
	RevealedAttrs  map[string]RevealedAttr `json:"revealedAttrs"`
	UnrevealedAttrs []string               `json:"unrevealedAttrs,omitempty"`
	PredicateAttrs map[string]int          `json:"predicateAttrs,omitempty"`
	IssuerSignature string                 `json:"issuerSignature"`
	CredValues     map[string]string       `json:"credValues"`
	LinkSecretCommit string                `json:"linkSecretCommit"`
	RevRegID       *string                 `json:"revRegId,omitempty"`
	RevState       *RevocationState        `json:"revState,omitempty"`
}

// Presentation is prover_create_proof's result, consumed by
// verifier_verify_proof.
type Presentation struct {
	Nonce        string                                  `json:"nonce"`
	Proofs       map[string]PresentationCredentialProof   `json:"proofs"` // keyed by credential id
	AttrToProof  map[string]string                        `json:"attrToProof"`
	PredToProof  map[string]string                        `json:"predToProof"`
	SelfAttested map[string]string                        `json:"selfAttested,omitempty"`
}
