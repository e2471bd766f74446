package anoncreds

import (
	"testing"

	"github.com/spf13/afero"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/wallet"
)

func setup(t *testing.T) (wallet.Wallet, afero.Fs) {
	t.Helper()
	return wallet.New(nil), afero.NewMemMapFs()
}

func issueDegree(t *testing.T, w wallet.Wallet, fs afero.Fs, revocable bool) (CredentialDefinition, *string) {
	t.Helper()
	schema, err := IssuerCreateSchema("did:example:issuer", "degree", "1.0", []string{"name", "age"})
	if err != nil {
		t.Fatalf("IssuerCreateSchema: %v", err)
	}
	cd, err := IssuerCreateAndStoreCredentialDef(w, "did:example:issuer", schema, CredDefConfig{Tag: "tag1", SupportRevocation: revocable})
	if err != nil {
		t.Fatalf("IssuerCreateAndStoreCredentialDef: %v", err)
	}
	var revRegID *string
	if revocable {
		def, err := IssuerCreateAndStoreRevocReg(w, fs, "/tails", cd.ID, 2, "tag1")
		if err != nil {
			t.Fatalf("IssuerCreateAndStoreRevocReg: %v", err)
		}
		revRegID = &def.ID
	}
	return cd, revRegID
}

// TestSchemaCredDefRecreateIsIdempotent covers spec §4.3's "if present in
// wallet, return it" for both schema-derived ids (property 3).
func TestSchemaCredDefRecreateIsIdempotent(t *testing.T) {
	w, fs := setup(t)
	cd1, _ := issueDegree(t, w, fs, false)
	cd2, _ := issueDegree(t, w, fs, false)
	if cd1.ID != cd2.ID {
		t.Fatalf("expected same cred-def id, got %q vs %q", cd1.ID, cd2.ID)
	}
}

// TestIssueStoreAndProveRoundTrip covers testable property 6 (proof
// round-trip verifies true) for a non-revocable credential.
func TestIssueStoreAndProveRoundTrip(t *testing.T) {
	w, fs := setup(t)
	cd, _ := issueDegree(t, w, fs, false)

	if _, err := ProverCreateLinkSecret(w, "default"); err != nil {
		t.Fatalf("ProverCreateLinkSecret: %v", err)
	}
	offer, err := IssuerCreateCredentialOffer(w, cd.ID)
	if err != nil {
		t.Fatalf("IssuerCreateCredentialOffer: %v", err)
	}
	req, meta, err := ProverCreateCredentialReq(w, "did:example:holder", offer, "default")
	if err != nil {
		t.Fatalf("ProverCreateCredentialReq: %v", err)
	}
	cred, err := IssuerCreateCredential(w, offer, req, map[string]string{"name": "Alice", "age": "30"}, nil)
	if err != nil {
		t.Fatalf("IssuerCreateCredential: %v", err)
	}
	referent, err := ProverStoreCredential(w, cred, meta, "")
	if err != nil {
		t.Fatalf("ProverStoreCredential: %v", err)
	}

	presReq := PresentationRequest{
		Nonce: "proof-nonce-1",
		RequestedAttributes: map[string]AttrInfo{
			"name_referent": {Name: "name", Restrictions: []map[string]string{{"cred_def_id": cd.ID}}},
		},
		RequestedPredicates: map[string]PredInfo{
			"age_referent": {Name: "age", PType: ">=", PValue: 18},
		},
	}
	found, err := ProverGetCredentialsForProofReq(w, presReq)
	if err != nil {
		t.Fatalf("ProverGetCredentialsForProofReq: %v", err)
	}
	if len(found["name_referent"]) != 1 || found["name_referent"][0].Name != referent {
		t.Fatalf("expected to find the stored credential, got %+v", found["name_referent"])
	}

	sel := SelectedCredentials{
		Attrs:      map[string]RequestedCredential{"name_referent": {Referent: "name_referent", CredentialID: referent, Revealed: true}},
		Predicates: map[string]RequestedCredential{"age_referent": {Referent: "age_referent", CredentialID: referent}},
	}
	pres, err := ProverCreateProof(w, fs, presReq, sel)
	if err != nil {
		t.Fatalf("ProverCreateProof: %v", err)
	}

	ok, err := VerifierVerifyProof(w, presReq, pres, false)
	if err != nil {
		t.Fatalf("VerifierVerifyProof: %v", err)
	}
	if !ok {
		t.Fatal("expected proof to verify")
	}
}

// TestProveRevocableCredentialWithoutNonRevokedInterval covers scenario S4:
// a revocable credential presented against a request that does not set
// NonRevoked must still verify, since the signature check depends on the
// credential's rev_reg_id regardless of whether a non-revocation window was
// requested.
func TestProveRevocableCredentialWithoutNonRevokedInterval(t *testing.T) {
	w, fs := setup(t)
	cd, revRegID := issueDegree(t, w, fs, true)

	if _, err := ProverCreateLinkSecret(w, "default"); err != nil {
		t.Fatalf("ProverCreateLinkSecret: %v", err)
	}
	offer, err := IssuerCreateCredentialOffer(w, cd.ID)
	if err != nil {
		t.Fatalf("IssuerCreateCredentialOffer: %v", err)
	}
	req, meta, err := ProverCreateCredentialReq(w, "did:example:holder", offer, "default")
	if err != nil {
		t.Fatalf("ProverCreateCredentialReq: %v", err)
	}
	cred, err := IssuerCreateCredential(w, offer, req, map[string]string{"name": "Alice", "age": "30"}, revRegID)
	if err != nil {
		t.Fatalf("IssuerCreateCredential: %v", err)
	}
	referent, err := ProverStoreCredential(w, cred, meta, "")
	if err != nil {
		t.Fatalf("ProverStoreCredential: %v", err)
	}

	presReq := PresentationRequest{
		Nonce: "proof-nonce-s4",
		RequestedAttributes: map[string]AttrInfo{
			"name_referent": {Name: "name", Restrictions: []map[string]string{{"cred_def_id": cd.ID}}},
		},
	}
	sel := SelectedCredentials{
		Attrs: map[string]RequestedCredential{"name_referent": {Referent: "name_referent", CredentialID: referent, Revealed: true}},
	}
	pres, err := ProverCreateProof(w, fs, presReq, sel)
	if err != nil {
		t.Fatalf("ProverCreateProof: %v", err)
	}

	ok, err := VerifierVerifyProof(w, presReq, pres, false)
	if err != nil {
		t.Fatalf("VerifierVerifyProof: %v", err)
	}
	if !ok {
		t.Fatal("expected revocable credential's proof to verify when request carries no NonRevoked interval")
	}
}

// TestVerifyFailsOnPredicateViolation covers testable property 7: a prover
// who does not actually satisfy a predicate cannot produce a passing proof.
func TestVerifyFailsOnPredicateViolation(t *testing.T) {
	w, fs := setup(t)
	cd, _ := issueDegree(t, w, fs, false)
	if _, err := ProverCreateLinkSecret(w, "default"); err != nil {
		t.Fatalf("ProverCreateLinkSecret: %v", err)
	}
	offer, _ := IssuerCreateCredentialOffer(w, cd.ID)
	req, meta, _ := ProverCreateCredentialReq(w, "did:example:holder", offer, "default")
	cred, err := IssuerCreateCredential(w, offer, req, map[string]string{"name": "Bob", "age": "15"}, nil)
	if err != nil {
		t.Fatalf("IssuerCreateCredential: %v", err)
	}
	referent, err := ProverStoreCredential(w, cred, meta, "")
	if err != nil {
		t.Fatalf("ProverStoreCredential: %v", err)
	}

	presReq := PresentationRequest{
		Nonce: "proof-nonce-2",
		RequestedPredicates: map[string]PredInfo{
			"age_referent": {Name: "age", PType: ">=", PValue: 18},
		},
	}
	sel := SelectedCredentials{
		Predicates: map[string]RequestedCredential{"age_referent": {Referent: "age_referent", CredentialID: referent}},
	}
	pres, err := ProverCreateProof(w, fs, presReq, sel)
	if err != nil {
		t.Fatalf("ProverCreateProof: %v", err)
	}
	ok, err := VerifierVerifyProof(w, presReq, pres, false)
	if err != nil {
		t.Fatalf("VerifierVerifyProof: %v", err)
	}
	if ok {
		t.Fatal("expected verification to fail for unmet predicate")
	}
}

// TestRevocationRegistryFullness covers spec §4.3/§8 property 3-4: once
// max_cred_num credentials are issued, the next issuance fails RegistryFull.
func TestRevocationRegistryFullness(t *testing.T) {
	w, fs := setup(t)
	cd, revRegID := issueDegree(t, w, fs, true)
	if _, err := ProverCreateLinkSecret(w, "default"); err != nil {
		t.Fatalf("ProverCreateLinkSecret: %v", err)
	}

	issueOne := func(name string) (Credential, error) {
		offer, err := IssuerCreateCredentialOffer(w, cd.ID)
		if err != nil {
			return Credential{}, err
		}
		req, _, err := ProverCreateCredentialReq(w, "did:example:holder", offer, "default")
		if err != nil {
			return Credential{}, err
		}
		return IssuerCreateCredential(w, offer, req, map[string]string{"name": name}, revRegID)
	}

	if _, err := issueOne("one"); err != nil {
		t.Fatalf("first issuance: %v", err)
	}
	if _, err := issueOne("two"); err != nil {
		t.Fatalf("second issuance: %v", err)
	}
	if _, err := issueOne("three"); agenterr.Of(err) != agenterr.RegistryFull {
		t.Fatalf("expected RegistryFull, got %v", err)
	}
}

// TestRevokeCredentialLocalAndMergeDeltas covers scenario S6: local
// revocation updates bookkeeping and merging deltas keeps only the latest
// event per credential id.
func TestRevokeCredentialLocalAndMergeDeltas(t *testing.T) {
	w, fs := setup(t)
	cd, revRegID := issueDegree(t, w, fs, true)
	if _, err := ProverCreateLinkSecret(w, "default"); err != nil {
		t.Fatalf("ProverCreateLinkSecret: %v", err)
	}
	offer, _ := IssuerCreateCredentialOffer(w, cd.ID)
	req, _, _ := ProverCreateCredentialReq(w, "did:example:holder", offer, "default")
	cred, err := IssuerCreateCredential(w, offer, req, map[string]string{"name": "one"}, revRegID)
	if err != nil {
		t.Fatalf("IssuerCreateCredential: %v", err)
	}

	if err := RevokeCredentialLocal(w, *revRegID, *cred.CredRevID); err != nil {
		t.Fatalf("RevokeCredentialLocal: %v", err)
	}
	delta, err := GetRevRegDelta(w, *revRegID)
	if err != nil {
		t.Fatalf("GetRevRegDelta: %v", err)
	}
	if !delta.Revoked[*cred.CredRevID] {
		t.Fatalf("expected credential %d revoked in delta, got %+v", *cred.CredRevID, delta)
	}

	merged := MergeRevocationRegistryDeltas(
		RevocationRegistryDelta{ID: *revRegID, Issued: map[uint32]bool{1: true}, Revoked: map[uint32]bool{}},
		RevocationRegistryDelta{ID: *revRegID, Issued: map[uint32]bool{}, Revoked: map[uint32]bool{1: true}},
	)
	if merged.Issued[1] || !merged.Revoked[1] {
		t.Fatalf("expected newer revocation to win over older issuance, got %+v", merged)
	}

	if err := ClearRevRegDelta(w, *revRegID); err != nil {
		t.Fatalf("ClearRevRegDelta: %v", err)
	}
	if _, err := GetRevRegDelta(w, *revRegID); agenterr.Of(err) != agenterr.NotFound {
		t.Fatalf("expected NotFound after clear, got %v", err)
	}
}

// TestStoreCredentialRejectsWrongLinkSecret covers testable property 2's
// sibling guarantee for anoncreds: a credential re-bound to the wrong
// request metadata must not be accepted into the wallet.
func TestStoreCredentialRejectsWrongLinkSecret(t *testing.T) {
	w, fs := setup(t)
	cd, _ := issueDegree(t, w, fs, false)
	if _, err := ProverCreateLinkSecret(w, "default"); err != nil {
		t.Fatalf("ProverCreateLinkSecret: %v", err)
	}
	if _, err := ProverCreateLinkSecret(w, "other"); err != nil {
		t.Fatalf("ProverCreateLinkSecret: %v", err)
	}
	offer, _ := IssuerCreateCredentialOffer(w, cd.ID)
	req, _, err := ProverCreateCredentialReq(w, "did:example:holder", offer, "default")
	if err != nil {
		t.Fatalf("ProverCreateCredentialReq: %v", err)
	}
	cred, err := IssuerCreateCredential(w, offer, req, map[string]string{"name": "Alice"}, nil)
	if err != nil {
		t.Fatalf("IssuerCreateCredential: %v", err)
	}
	wrongMeta := CredentialRequestMetadata{LinkSecretAlias: "other", Nonce: req.Nonce}
	if _, err := ProverStoreCredential(w, cred, wrongMeta, ""); agenterr.Of(err) != agenterr.CryptoFailure {
		t.Fatalf("expected CryptoFailure for mismatched link secret, got %v", err)
	}
}

func TestLinkSecretAliasDuplicateRejected(t *testing.T) {
	w, _ := setup(t)
	if _, err := ProverCreateLinkSecret(w, "dup"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := ProverCreateLinkSecret(w, "dup"); agenterr.Of(err) != agenterr.Duplicate {
		t.Fatalf("expected Duplicate, got %v", err)
	}
}
