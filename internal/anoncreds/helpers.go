package anoncreds

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/wallet"
)

// storeJSON marshals value and adds it as a new wallet record, failing
// Duplicate if name already exists in category.
func storeJSON(w wallet.Wallet, category wallet.Category, name string, value interface{}, tags map[string]string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "storeJSON", fmt.Sprintf("marshal %s/%s", category, name), err)
	}
	if err := w.Add(category, name, string(raw), tags); err != nil {
		return err
	}
	return nil
}

// storeOverwrite marshals value and replaces an existing record's value,
// creating it first if absent. Used for bookkeeping records (rev-reg
// info/accum, deltas) that are mutated in place rather than append-only.
func storeOverwrite(w wallet.Wallet, category wallet.Category, name string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "storeOverwrite", fmt.Sprintf("marshal %s/%s", category, name), err)
	}
	if err := w.UpdateValue(category, name, string(raw)); err != nil {
		if agenterr.Of(err) == agenterr.NotFound {
			return w.Add(category, name, string(raw), nil)
		}
		return err
	}
	return nil
}

// loadJSON fetches a wallet record and unmarshals its value into out.
func loadJSON(w wallet.Wallet, category wallet.Category, name string, out interface{}) error {
	rec, err := w.Get(category, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(rec.Value), out); err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "loadJSON", fmt.Sprintf("unmarshal %s/%s", category, name), err)
	}
	return nil
}

func sortedKeys(ids map[uint32]bool) []uint32 {
	out := make([]uint32, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// signableCredential is the subset of Credential fields the issuer signature
// actually covers: everything except the signature itself.
type signableCredential struct {
	SchemaID         string            `json:"schemaId"`
	CredDefID        string            `json:"credDefId"`
	IssuerDID        string            `json:"issuerDid"`
	Values           map[string]string `json:"values"`
	LinkSecretCommit string            `json:"linkSecretCommit"`
	RevRegID         *string           `json:"revRegId,omitempty"`
	CredRevID        *uint32           `json:"credRevId,omitempty"`
}

func signableBytes(c Credential) ([]byte, error) {
	s := signableCredential{
		SchemaID:         c.SchemaID,
		CredDefID:        c.CredDefID,
		IssuerDID:        c.IssuerDID,
		Values:           c.Values,
		LinkSecretCommit: c.LinkSecretCommit,
		RevRegID:         c.RevRegID,
		CredRevID:        c.CredRevID,
	}
	return json.Marshal(s)
}

func signCredential(priv ed25519.PrivateKey, c Credential) (string, error) {
	data, err := signableBytes(c)
	if err != nil {
		return "", agenterr.Wrap(agenterr.CryptoFailure, "signCredential", "marshal signable fields", err)
	}
	sig := ed25519.Sign(priv, data)
	return base64.StdEncoding.EncodeToString(sig), nil
}

func verifyCredentialSignature(pub ed25519.PublicKey, c Credential) bool {
	data, err := signableBytes(c)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(c.Signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, data, sig)
}

// writeTailsFile writes the registry's tails file to fs and returns a
// sha256 hash of its contents (spec §4.3: tails files back non-revocation
// witnesses; storage driver choice is left to the host, here afero per
// SPEC_FULL's domain-stack wiring). The simplified tails file here holds a
// single sha256 digest over maxCredNum placeholder slot labels; real
// anoncreds tails files hold pairing-group elements, which this core does
// not compute (see package doc).
func writeTailsFile(fs afero.Fs, tailsDir, regID string, maxCredNum uint32) (string, error) {
	if err := fs.MkdirAll(tailsDir, 0o755); err != nil {
		return "", agenterr.Wrap(agenterr.LedgerUnavailable, "writeTailsFile", "create tails dir", err)
	}
	path := filepath.Join(tailsDir, regID+".tails")
	h := sha256.New()
	for i := uint32(0); i < maxCredNum; i++ {
		fmt.Fprintf(h, "%s:%d;", regID, i)
	}
	content := h.Sum(nil)
	if err := afero.WriteFile(fs, path, content, 0o644); err != nil {
		return "", agenterr.Wrap(agenterr.LedgerUnavailable, "writeTailsFile", "write tails file", err)
	}
	sum := sha256.Sum256(content)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// tailsWitness derives a deterministic witness digest for credRevID at the
// registry's current used-id set, standing in for the real tails-based
// cryptographic witness computation (see package doc).
func tailsWitness(regID string, credRevID uint32, usedIDs map[uint32]bool) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%d|", regID, credRevID)
	for _, id := range sortedKeys(usedIDs) {
		fmt.Fprintf(h, "%d,", id)
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
