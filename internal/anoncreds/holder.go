package anoncreds

import (
	"crypto/sha256"
	crand "crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/wallet"
)

// ProverCreateLinkSecret generates and stores a fresh link secret under
// alias, failing Duplicate on reuse (spec §4.3, §8 property 5). Passing an
// empty alias stores the secret under the alias "default", mirroring
// libvcx's convention for the primary link secret.
func ProverCreateLinkSecret(w wallet.Wallet, alias string) (string, error) {
	if alias == "" {
		alias = "default"
	}
	secret := make([]byte, 32)
	if _, err := crand.Read(secret); err != nil {
		return "", agenterr.Wrap(agenterr.CryptoFailure, "ProverCreateLinkSecret", "generate link secret", err)
	}
	value := base64.StdEncoding.EncodeToString(secret)
	if err := storeJSON(w, wallet.CategoryLinkSecret, alias, value, nil); err != nil {
		return "", err
	}
	return alias, nil
}

func loadLinkSecret(w wallet.Wallet, alias string) (string, error) {
	var v string
	if err := loadJSON(w, wallet.CategoryLinkSecret, alias, &v); err != nil {
		return "", err
	}
	return v, nil
}

// linkSecretCommitment is the simplified stand-in for the real blinded
// master secret: sha256(linkSecret || nonce), binding the request to a
// secret the issuer never observes (see package doc in types.go).
func linkSecretCommitment(linkSecret, nonce string) string {
	h := sha256.Sum256([]byte(linkSecret + "|" + nonce))
	return base64.StdEncoding.EncodeToString(h[:])
}

// ProverCreateCredentialReq builds a request binding offer to the holder's
// link secret (spec §4.3: prover_create_credential_req).
func ProverCreateCredentialReq(w wallet.Wallet, proverDID string, offer CredentialOffer, linkSecretAlias string) (CredentialRequest, CredentialRequestMetadata, error) {
	linkSecret, err := loadLinkSecret(w, linkSecretAlias)
	if err != nil {
		return CredentialRequest{}, CredentialRequestMetadata{}, err
	}
	nonce := newNonce()
	req := CredentialRequest{
		ProverDID:       proverDID,
		CredDefID:       offer.CredDefID,
		LinkSecretAlias: linkSecretAlias,
		BlindedMSCommit: linkSecretCommitment(linkSecret, nonce),
		Nonce:           nonce,
	}
	meta := CredentialRequestMetadata{LinkSecretAlias: linkSecretAlias, Nonce: nonce}
	return req, meta, nil
}

// ProverStoreCredential verifies cred's issuer signature, re-derives and
// checks the link-secret commitment, then stores it tagged for WQL search
// (spec §4.3: prover_store_credential). Attribute names are normalized to
// lowercase with spaces stripped before tagging, matching the
// attr::<name>::marker convention used across the indy/anoncreds wallet tag
// scheme.
func ProverStoreCredential(w wallet.Wallet, cred Credential, meta CredentialRequestMetadata, referentID string) (string, error) {
	var cd CredentialDefinition
	if err := loadJSON(w, wallet.CategoryCredDef, cred.CredDefID, &cd); err != nil {
		return "", err
	}
	pub, err := decodeEd25519Pub(cd.PublicKey)
	if err != nil {
		return "", err
	}
	if !verifyCredentialSignature(pub, cred) {
		return "", agenterr.New(agenterr.CryptoFailure, "ProverStoreCredential", "issuer signature verification failed")
	}

	linkSecret, err := loadLinkSecret(w, meta.LinkSecretAlias)
	if err != nil {
		return "", err
	}
	expected := linkSecretCommitment(linkSecret, meta.Nonce)
	if expected != cred.LinkSecretCommit {
		return "", agenterr.New(agenterr.CryptoFailure, "ProverStoreCredential", "link secret commitment mismatch")
	}

	if referentID == "" {
		referentID = uuid.NewString()
	}
	stored := StoredCredential{ReferentID: referentID, Cred: cred}

	tags := map[string]string{
		"schema_id":   cred.SchemaID,
		"cred_def_id": cred.CredDefID,
		"issuer_did":  cred.IssuerDID,
	}
	var schema Schema
	if err := loadJSON(w, wallet.CategoryCredSchema, cred.SchemaID, &schema); err == nil {
		tags["schema_issuer_did"] = schema.IssuerDID
		tags["schema_name"] = schema.Name
		tags["schema_version"] = schema.Version
	}
	if cred.RevRegID != nil {
		tags["rev_reg_id"] = *cred.RevRegID
	}
	for name, value := range cred.Values {
		tags[attrTag(name)] = "1"
		tags[attrValueTag(name)] = value
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return "", agenterr.Wrap(agenterr.InvalidInput, "ProverStoreCredential", "marshal stored credential", err)
	}
	if err := w.Add(wallet.CategoryCred, referentID, string(raw), tags); err != nil {
		return "", err
	}
	return referentID, nil
}

// attrTag produces the attr::<name>::marker tag name used to select
// credentials by attribute presence, per the prover_get_credentials_for_proof_req
// query shape (spec §4.3, S4).
func attrTag(name string) string {
	return "attr::" + normalizeAttrName(name) + "::marker"
}

func attrValueTag(name string) string {
	return "attr::" + normalizeAttrName(name) + "::value"
}

func normalizeAttrName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

// ProverGetCredentialsForProofReq builds, for every requested attribute and
// predicate referent in req, the WQL query matching stored credentials that
// carry that attribute (and any restrictions), then runs it against the
// wallet (spec §4.3, S4).
func ProverGetCredentialsForProofReq(w wallet.Wallet, req PresentationRequest) (map[string][]wallet.Record, error) {
	out := map[string][]wallet.Record{}
	for referent, attr := range req.RequestedAttributes {
		recs, err := searchForName(w, attr.Name, attr.Restrictions)
		if err != nil {
			return nil, err
		}
		out[referent] = recs
	}
	for referent, pred := range req.RequestedPredicates {
		recs, err := searchForName(w, pred.Name, pred.Restrictions)
		if err != nil {
			return nil, err
		}
		out[referent] = recs
	}
	return out, nil
}

func searchForName(w wallet.Wallet, name string, restrictions []map[string]string) ([]wallet.Record, error) {
	clauses := []map[string]interface{}{
		{attrTag(name): "1"},
	}
	if len(restrictions) > 0 {
		orClauses := make([]map[string]interface{}, 0, len(restrictions))
		for _, r := range restrictions {
			sub := map[string]interface{}{}
			for k, v := range r {
				sub[k] = v
			}
			orClauses = append(orClauses, sub)
		}
		clauses = append(clauses, map[string]interface{}{"$or": orClauses})
	}
	query := map[string]interface{}{"$and": clauses}
	raw, err := json.Marshal(query)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.InvalidInput, "searchForName", "marshal wql query", err)
	}
	return w.Search(wallet.CategoryCred, raw)
}

// ProverCreateProof assembles a Presentation from sel, with one proof
// component per selected credential and, when req.NonRevoked is set, a
// freshly computed revocation state per revocable credential (spec §4.3:
// prover_create_proof). Every attribute of a selected credential is placed
// in RevealedAttrs and CredValues; RequestedCredential.Revealed is not
// consulted and UnrevealedAttrs is left empty.
func ProverCreateProof(w wallet.Wallet, fs afero.Fs, req PresentationRequest, sel SelectedCredentials) (Presentation, error) {
	pres := Presentation{
		Nonce:       req.Nonce,
		Proofs:      map[string]PresentationCredentialProof{},
		AttrToProof: map[string]string{},
		PredToProof: map[string]string{},
	}

	addCred := func(referent string, rc RequestedCredential) error {
		if _, already := pres.Proofs[rc.CredentialID]; already {
			return nil
		}
		var stored StoredCredential
		if err := loadJSON(w, wallet.CategoryCred, rc.CredentialID, &stored); err != nil {
			return err
		}
		proof := PresentationCredentialProof{
			CredDefID:        stored.Cred.CredDefID,
			SchemaID:         stored.Cred.SchemaID,
			RevealedAttrs:    map[string]RevealedAttr{},
			IssuerSignature:  stored.Cred.Signature,
			CredValues:       cloneValues(stored.Cred.Values),
			LinkSecretCommit: stored.Cred.LinkSecretCommit,
			RevRegID:         stored.Cred.RevRegID,
		}
		for name, value := range stored.Cred.Values {
			proof.RevealedAttrs[name] = RevealedAttr{Raw: value, Encoded: encodeAttr(value), CredRevID: stored.Cred.CredRevID}
		}
		if req.NonRevoked != nil && stored.Cred.RevRegID != nil && stored.Cred.CredRevID != nil {
			state, err := CreateRevocationState(w, fs, *stored.Cred.RevRegID, *stored.Cred.CredRevID, req.NonRevoked.To)
			if err != nil {
				return err
			}
			proof.RevState = &state
		}
		pres.Proofs[rc.CredentialID] = proof
		return nil
	}

	for referent, rc := range sel.Attrs {
		if err := addCred(referent, rc); err != nil {
			return Presentation{}, err
		}
		pres.AttrToProof[referent] = rc.CredentialID
	}
	for referent, rc := range sel.Predicates {
		if err := addCred(referent, rc); err != nil {
			return Presentation{}, err
		}
		pres.PredToProof[referent] = rc.CredentialID
		if proof, ok := pres.Proofs[rc.CredentialID]; ok {
			if pred, ok2 := req.RequestedPredicates[referent]; ok2 {
				if proof.PredicateAttrs == nil {
					proof.PredicateAttrs = map[string]int{}
				}
				proof.PredicateAttrs[pred.Name] = pred.PValue
				pres.Proofs[rc.CredentialID] = proof
			}
		}
	}
	return pres, nil
}

func encodeAttr(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}

func decodeEd25519Pub(b64 string) ([]byte, error) {
	pub, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CryptoFailure, "decodeEd25519Pub", "decode cred-def public key", err)
	}
	return pub, nil
}

// CreateRevocationState computes the witness a prover attaches to prove
// non-revocation of credRevID in revRegID at timestamp (spec §4.3:
// create_revocation_state). It reads the registry's tails file via fs to
// ground the witness in the same storage the issuer wrote
// (internal/anoncreds/issuer.go's writeTailsFile), though the witness value
// itself is a simplified digest rather than a real accumulator witness (see
// package doc).
func CreateRevocationState(w wallet.Wallet, fs afero.Fs, revRegID string, credRevID uint32, timestamp uint64) (RevocationState, error) {
	var def RevocationRegistryDefinition
	if err := loadJSON(w, wallet.CategoryRevRegDef, revRegID, &def); err != nil {
		return RevocationState{}, err
	}
	path := def.TailsDir + "/" + revRegID + ".tails"
	if _, err := afero.ReadFile(fs, path); err != nil {
		return RevocationState{}, agenterr.Wrap(agenterr.LedgerUnavailable, "CreateRevocationState", "read tails file", err)
	}
	var info RevocationRegistryInfo
	if err := loadJSON(w, wallet.CategoryRevRegInfo, revRegID, &info); err != nil {
		return RevocationState{}, err
	}
	return RevocationState{
		RevRegID:  revRegID,
		Timestamp: timestamp,
		CredRevID: credRevID,
		Witness:   tailsWitness(revRegID, credRevID, info.UsedIDs),
	}, nil
}
