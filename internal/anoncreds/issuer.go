package anoncreds

import (
	"crypto/ed25519"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/wallet"
)

// IssuerCreateSchema assembles a schema with a deterministic id (spec §4.3).
func IssuerCreateSchema(did, name, version string, attrNames []string) (Schema, error) {
	if len(attrNames) == 0 {
		return Schema{}, agenterr.New(agenterr.InvalidInput, "IssuerCreateSchema", "at least one attribute name is required")
	}
	seen := map[string]bool{}
	for _, a := range attrNames {
		if a == "" {
			return Schema{}, agenterr.New(agenterr.InvalidInput, "IssuerCreateSchema", "attribute name must not be empty")
		}
		if seen[a] {
			return Schema{}, agenterr.New(agenterr.InvalidInput, "IssuerCreateSchema", fmt.Sprintf("duplicate attribute name %q", a))
		}
		seen[a] = true
	}
	return Schema{
		ID:        schemaID(did, name, version),
		Name:      name,
		Version:   version,
		IssuerDID: did,
		AttrNames: attrNames,
	}, nil
}

// IssuerCreateAndStoreCredentialDef persists a cred-def and its private key
// material (spec §4.3). Calling it again with the same (did, schema, tag)
// is benign: the existing cred-def is returned rather than erroring.
func IssuerCreateAndStoreCredentialDef(w wallet.Wallet, did string, schema Schema, cfg CredDefConfig) (CredentialDefinition, error) {
	if cfg.SignatureType == "" {
		cfg.SignatureType = "CL"
	}
	id := credDefID(did, schema.ID, cfg.SignatureType, cfg.Tag)

	if rec, err := w.Get(wallet.CategoryCredDef, id); err == nil {
		var existing CredentialDefinition
		if jsonErr := json.Unmarshal([]byte(rec.Value), &existing); jsonErr == nil {
			return existing, nil
		}
	}

	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		return CredentialDefinition{}, agenterr.Wrap(agenterr.CryptoFailure, "IssuerCreateAndStoreCredentialDef", "generate signing key", err)
	}

	cd := CredentialDefinition{
		ID:                id,
		SchemaID:          schema.ID,
		IssuerDID:         did,
		Tag:               cfg.Tag,
		SignatureType:     cfg.SignatureType,
		SupportRevocation: cfg.SupportRevocation,
		PublicKey:         base64.StdEncoding.EncodeToString(pub),
	}
	priv25519 := credDefPrivate{ID: id, Seed: priv.Seed()}
	correctness := CredentialKeyCorrectnessProof{
		ID:        id,
		Signature: base64.StdEncoding.EncodeToString(ed25519.Sign(priv, pub)),
	}

	if err := storeJSON(w, wallet.CategoryCredDef, id, cd, nil); err != nil {
		return CredentialDefinition{}, err
	}
	if err := storeJSON(w, wallet.CategoryCredDefPriv, id, priv25519, nil); err != nil {
		return CredentialDefinition{}, err
	}
	if err := storeJSON(w, wallet.CategoryCredKeyCorrectnessProof, id, correctness, nil); err != nil {
		return CredentialDefinition{}, err
	}
	// Best-effort schema copy + cred-def -> schema-id mapping (spec §3/§4.3).
	_ = storeJSON(w, wallet.CategoryCredSchema, schema.ID, schema, nil)
	_ = storeJSON(w, wallet.CategoryCredMapSchemaID, id, schema.ID, nil)

	return cd, nil
}

// IssuerCreateAndStoreRevocReg provisions a revocation registry for an
// existing (revocation-capable) cred-def (spec §4.3). Re-creating with the
// same (credDefID, tag) returns the existing registry.
func IssuerCreateAndStoreRevocReg(w wallet.Wallet, fs afero.Fs, tailsDir, credDefID string, maxCredNum uint32, tag string) (RevocationRegistryDefinition, error) {
	id := revRegID(credDefID, tag)

	if rec, err := w.Get(wallet.CategoryRevRegDef, id); err == nil {
		var existing RevocationRegistryDefinition
		if jsonErr := json.Unmarshal([]byte(rec.Value), &existing); jsonErr == nil {
			return existing, nil
		}
	}

	tailsHash, err := writeTailsFile(fs, tailsDir, id, maxCredNum)
	if err != nil {
		return RevocationRegistryDefinition{}, err
	}

	seed := make([]byte, 32)
	if _, err := crand.Read(seed); err != nil {
		return RevocationRegistryDefinition{}, agenterr.Wrap(agenterr.CryptoFailure, "IssuerCreateAndStoreRevocReg", "generate trapdoor", err)
	}

	def := RevocationRegistryDefinition{
		ID:           id,
		CredDefID:    credDefID,
		Tag:          tag,
		MaxCredNum:   maxCredNum,
		IssuanceType: IssuanceByDefault,
		TailsHash:    tailsHash,
		TailsDir:     tailsDir,
	}
	priv := revRegDefPrivate{ID: id, Seed: seed}
	reg := RevocationRegistry{ID: id, Accum: accumulatorDigest(nil)}
	info := RevocationRegistryInfo{ID: id, CurrID: 0, UsedIDs: map[uint32]bool{}}

	if err := storeJSON(w, wallet.CategoryRevRegDef, id, def, nil); err != nil {
		return RevocationRegistryDefinition{}, err
	}
	if err := storeJSON(w, wallet.CategoryRevRegDefPriv, id, priv, nil); err != nil {
		return RevocationRegistryDefinition{}, err
	}
	if err := storeJSON(w, wallet.CategoryRevReg, id, reg, nil); err != nil {
		return RevocationRegistryDefinition{}, err
	}
	if err := storeJSON(w, wallet.CategoryRevRegInfo, id, info, nil); err != nil {
		return RevocationRegistryDefinition{}, err
	}
	return def, nil
}

// IssuerCreateCredentialOffer loads the cred-def, its correctness proof and
// its schema mapping to build an offer (spec §4.3).
func IssuerCreateCredentialOffer(w wallet.Wallet, credDefID string) (CredentialOffer, error) {
	var cd CredentialDefinition
	if err := loadJSON(w, wallet.CategoryCredDef, credDefID, &cd); err != nil {
		return CredentialOffer{}, err
	}
	var ckcp CredentialKeyCorrectnessProof
	if err := loadJSON(w, wallet.CategoryCredKeyCorrectnessProof, credDefID, &ckcp); err != nil {
		return CredentialOffer{}, err
	}
	var schemaID string
	if err := loadJSON(w, wallet.CategoryCredMapSchemaID, credDefID, &schemaID); err != nil {
		return CredentialOffer{}, err
	}
	return CredentialOffer{
		SchemaID:            schemaID,
		CredDefID:           credDefID,
		KeyCorrectnessProof: ckcp,
		Nonce:               newNonce(),
	}, nil
}

// IssuerCreateCredential issues a credential against req, incrementing and
// persisting revocation bookkeeping when the cred-def supports revocation
// (spec §4.3, invariants 3 & 4, S3).
func IssuerCreateCredential(w wallet.Wallet, offer CredentialOffer, req CredentialRequest, values map[string]string, revRegID *string) (Credential, error) {
	var cd CredentialDefinition
	if err := loadJSON(w, wallet.CategoryCredDef, offer.CredDefID, &cd); err != nil {
		return Credential{}, err
	}
	var priv credDefPrivate
	if err := loadJSON(w, wallet.CategoryCredDefPriv, offer.CredDefID, &priv); err != nil {
		return Credential{}, err
	}

	cred := Credential{
		SchemaID:         offer.SchemaID,
		CredDefID:        offer.CredDefID,
		IssuerDID:        cd.IssuerDID,
		Values:           cloneValues(values),
		LinkSecretCommit: req.BlindedMSCommit,
	}

	if cd.SupportRevocation {
		if revRegID == nil {
			return Credential{}, agenterr.New(agenterr.InvalidInput, "IssuerCreateCredential", "revocation-capable cred-def requires a rev_reg_id")
		}
		var def RevocationRegistryDefinition
		if err := loadJSON(w, wallet.CategoryRevRegDef, *revRegID, &def); err != nil {
			return Credential{}, err
		}
		var info RevocationRegistryInfo
		if err := loadJSON(w, wallet.CategoryRevRegInfo, *revRegID, &info); err != nil {
			return Credential{}, err
		}
		var reg RevocationRegistry
		if err := loadJSON(w, wallet.CategoryRevReg, *revRegID, &reg); err != nil {
			return Credential{}, err
		}

		nextID := info.CurrID + 1
		if nextID > def.MaxCredNum {
			return Credential{}, agenterr.New(agenterr.RegistryFull, "IssuerCreateCredential", fmt.Sprintf("registry %s is full (max %d)", *revRegID, def.MaxCredNum))
		}
		info.CurrID = nextID
		if info.UsedIDs == nil {
			info.UsedIDs = map[uint32]bool{}
		}
		info.UsedIDs[nextID] = true
		reg.Accum = accumulatorDigest(info.UsedIDs)

		cred.RevRegID = revRegID
		cred.CredRevID = &nextID

		if err := storeOverwrite(w, wallet.CategoryRevRegInfo, *revRegID, info); err != nil {
			return Credential{}, err
		}
		if err := storeOverwrite(w, wallet.CategoryRevReg, *revRegID, reg); err != nil {
			return Credential{}, err
		}
	}

	sig, err := signCredential(priv.privateKey(), cred)
	if err != nil {
		return Credential{}, err
	}
	cred.Signature = sig
	return cred, nil
}

// RevokeCredentialLocal flips a credential's revocation status in the
// registry's local bookkeeping and merges the resulting delta (spec §4.3,
// S6). Semantics depend on the registry's issuance type: under
// ISSUANCE_BY_DEFAULT the id must currently be used (it is being revoked);
// under ISSUANCE_ON_DEMAND the id must currently be unused (it is being
// issued into the accumulator).
func RevokeCredentialLocal(w wallet.Wallet, revRegID string, credRevID uint32) error {
	var def RevocationRegistryDefinition
	if err := loadJSON(w, wallet.CategoryRevRegDef, revRegID, &def); err != nil {
		return err
	}
	var info RevocationRegistryInfo
	if err := loadJSON(w, wallet.CategoryRevRegInfo, revRegID, &info); err != nil {
		return err
	}
	var reg RevocationRegistry
	if err := loadJSON(w, wallet.CategoryRevReg, revRegID, &reg); err != nil {
		return err
	}

	delta := RevocationRegistryDelta{ID: revRegID, Issued: map[uint32]bool{}, Revoked: map[uint32]bool{}}

	switch def.IssuanceType {
	case IssuanceOnDemand:
		if info.UsedIDs[credRevID] {
			return agenterr.New(agenterr.InvalidInput, "RevokeCredentialLocal", fmt.Sprintf("credential %d already issued into %s", credRevID, revRegID))
		}
		info.UsedIDs[credRevID] = true
		delta.Issued[credRevID] = true
	default: // IssuanceByDefault
		if !info.UsedIDs[credRevID] {
			return agenterr.New(agenterr.NotFound, "RevokeCredentialLocal", fmt.Sprintf("credential %d not in registry %s", credRevID, revRegID))
		}
		delete(info.UsedIDs, credRevID)
		delta.Revoked[credRevID] = true
	}

	reg.Accum = accumulatorDigest(info.UsedIDs)

	if err := storeOverwrite(w, wallet.CategoryRevRegInfo, revRegID, info); err != nil {
		return err
	}
	if err := storeOverwrite(w, wallet.CategoryRevReg, revRegID, reg); err != nil {
		return err
	}

	existing, err := loadDelta(w, revRegID)
	if err != nil && agenterr.Of(err) != agenterr.NotFound {
		return err
	}
	var merged RevocationRegistryDelta
	if err == nil {
		merged = MergeRevocationRegistryDeltas(existing, delta)
	} else {
		merged = delta
	}
	return storeOverwrite(w, wallet.CategoryRevRegDelta, revRegID, merged)
}

// GetRevRegDelta returns the current accumulated delta for revRegID, or
// NotFound if none has been recorded (spec §4.3).
func GetRevRegDelta(w wallet.Wallet, revRegID string) (RevocationRegistryDelta, error) {
	return loadDelta(w, revRegID)
}

// ClearRevRegDelta removes the accumulated delta after the caller has
// published it to the ledger (spec §4.3; ledger publication itself is out
// of core scope).
func ClearRevRegDelta(w wallet.Wallet, revRegID string) error {
	if err := w.Delete(wallet.CategoryRevRegDelta, revRegID); err != nil && agenterr.Of(err) != agenterr.NotFound {
		return err
	}
	return nil
}

func loadDelta(w wallet.Wallet, revRegID string) (RevocationRegistryDelta, error) {
	var d RevocationRegistryDelta
	if err := loadJSON(w, wallet.CategoryRevRegDelta, revRegID, &d); err != nil {
		return RevocationRegistryDelta{}, err
	}
	return d, nil
}

// MergeRevocationRegistryDeltas combines two deltas: newer revocations win
// over older issuances of the same id and vice versa, matching the
// accumulator semantics where the most recent event for an id determines
// its membership (spec §4.3: "merges old ⊕ new").
func MergeRevocationRegistryDeltas(oldDelta, newDelta RevocationRegistryDelta) RevocationRegistryDelta {
	out := RevocationRegistryDelta{ID: newDelta.ID, Issued: map[uint32]bool{}, Revoked: map[uint32]bool{}}
	for id := range oldDelta.Issued {
		out.Issued[id] = true
	}
	for id := range oldDelta.Revoked {
		out.Revoked[id] = true
	}
	for id := range newDelta.Issued {
		out.Issued[id] = true
		delete(out.Revoked, id)
	}
	for id := range newDelta.Revoked {
		out.Revoked[id] = true
		delete(out.Issued, id)
	}
	if out.ID == "" {
		out.ID = oldDelta.ID
	}
	return out
}

func cloneValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// accumulatorDigest is a simplified stand-in for the real pairing-based
// accumulator value: a deterministic digest of the used-id set. It changes
// whenever membership changes and is never used for anything beyond a
// diagnostic "has the registry state moved" signal — witnesses in this
// core are computed directly from used-id membership (see tailsWitness in
// helpers.go).
func accumulatorDigest(usedIDs map[uint32]bool) string {
	h := sha256.New()
	ids := sortedKeys(usedIDs)
	for _, id := range ids {
		_, _ = h.Write([]byte(fmt.Sprintf("%d,", id)))
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func newNonce() string {
	b := make([]byte, 16)
	_, _ = crand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}
