package anoncreds

import (
	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/wallet"
)

// VerifierVerifyProof checks that pres actually satisfies req: every
// requested attribute/predicate referent resolves to a proof component with
// a matching issuer signature, the disclosed values satisfy any predicate,
// and (when req.NonRevoked is set) a revocation state at a timestamp inside
// the window is attached (spec §4.3: verifier_verify_proof, §8 property 6-7).
//
// legacyFallback, when true, additionally accepts proofs built before
// PresentationCredentialProof carried a RevState by treating a missing
// RevState as satisfying a non-revocation requirement (spec §1 Open
// Questions: whether to support a legacy-proof verification fallback). It
// defaults to false; callers that need interop with older stored
// presentations opt in explicitly.
func VerifierVerifyProof(w wallet.Wallet, req PresentationRequest, pres Presentation, legacyFallback bool) (bool, error) {
	if pres.Nonce != req.Nonce {
		return false, agenterr.New(agenterr.InvalidInput, "VerifierVerifyProof", "presentation nonce does not match request nonce")
	}

	for referent, attr := range req.RequestedAttributes {
		credID, ok := pres.AttrToProof[referent]
		if !ok {
			if _, selfAttested := pres.SelfAttested[referent]; selfAttested {
				continue
			}
			return false, nil
		}
		proof, ok := pres.Proofs[credID]
		if !ok {
			return false, nil
		}
		if _, revealed := proof.RevealedAttrs[attr.Name]; !revealed {
			return false, nil
		}
		if !restrictionsSatisfied(proof, attr.Restrictions) {
			return false, nil
		}
		ok, err := verifyCredSignatureFromProof(w, proof)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if req.NonRevoked != nil {
			if !nonRevokedSatisfied(proof, *req.NonRevoked, legacyFallback) {
				return false, nil
			}
		}
	}

	for referent, pred := range req.RequestedPredicates {
		credID, ok := pres.PredToProof[referent]
		if !ok {
			return false, nil
		}
		proof, ok := pres.Proofs[credID]
		if !ok {
			return false, nil
		}
		value, ok := proof.CredValues[pred.Name]
		if !ok {
			return false, nil
		}
		if !evaluatePredicate(value, pred) {
			return false, nil
		}
		if !restrictionsSatisfied(proof, pred.Restrictions) {
			return false, nil
		}
		okSig, err := verifyCredSignatureFromProof(w, proof)
		if err != nil {
			return false, err
		}
		if !okSig {
			return false, nil
		}
		if req.NonRevoked != nil {
			if !nonRevokedSatisfied(proof, *req.NonRevoked, legacyFallback) {
				return false, nil
			}
		}
	}

	return true, nil
}

func verifyCredSignatureFromProof(w wallet.Wallet, proof PresentationCredentialProof) (bool, error) {
	var cd CredentialDefinition
	if err := loadJSON(w, wallet.CategoryCredDef, proof.CredDefID, &cd); err != nil {
		return false, err
	}
	pub, err := decodeEd25519Pub(cd.PublicKey)
	if err != nil {
		return false, err
	}
	var credRevID *uint32
	for _, rv := range proof.RevealedAttrs {
		credRevID = rv.CredRevID
		break
	}
	cred := Credential{
		SchemaID:         proof.SchemaID,
		CredDefID:        proof.CredDefID,
		IssuerDID:        cd.IssuerDID,
		Values:           proof.CredValues,
		LinkSecretCommit: proof.LinkSecretCommit,
		RevRegID:         proof.RevRegID,
		CredRevID:        credRevID,
		Signature:        proof.IssuerSignature,
	}
	return verifyCredentialSignature(pub, cred), nil
}

func restrictionsSatisfied(proof PresentationCredentialProof, restrictions []map[string]string) bool {
	if len(restrictions) == 0 {
		return true
	}
	for _, r := range restrictions {
		match := true
		for k, v := range r {
			switch k {
			case "cred_def_id":
				if proof.CredDefID != v {
					match = false
				}
			case "schema_id":
				if proof.SchemaID != v {
					match = false
				}
			default:
				if proof.CredValues[k] != v {
					match = false
				}
			}
			if !match {
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func evaluatePredicate(rawValue string, pred PredInfo) bool {
	n, ok := parseIntLoose(rawValue)
	if !ok {
		return false
	}
	switch pred.PType {
	case ">=":
		return n >= pred.PValue
	case ">":
		return n > pred.PValue
	case "<=":
		return n <= pred.PValue
	case "<":
		return n < pred.PValue
	default:
		return false
	}
}

func parseIntLoose(s string) (int, bool) {
	neg := false
	i := 0
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		i = 1
	}
	if i == len(s) {
		return 0, false
	}
	n := 0
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

func nonRevokedSatisfied(proof PresentationCredentialProof, window NonRevokedInterval, legacyFallback bool) bool {
	if proof.RevState == nil {
		return legacyFallback
	}
	return proof.RevState.Timestamp >= window.From && proof.RevState.Timestamp <= window.To
}
