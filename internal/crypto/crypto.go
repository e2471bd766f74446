// Package crypto implements the C2 crypto capability (spec §1, §4.2): DID
// and verkey creation, sign/verify, and the pack/unpack envelope used for
// outbound sends. It is grounded on the teacher's HD-wallet key-material
// style (ed25519 keys, BIP-39 recovery phrases) generalised from signing
// blockchain transactions to signing and encrypting Aries DIDComm payloads,
// and on the "connection~sig" signed-response contract described in
// _examples/original_source/aries_vcx/src/protocols/connection/inviter/state_machine.rs
// (Response::encode against the bootstrap verkey).
package crypto

import (
	"crypto/ed25519"
	crand "crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"time"

	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/nacl/box"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/didcomm/model"
)

// KeyPair is one ed25519 signing key plus the X25519 pack/unpack key
// generated alongside it. Real Aries agents derive the pack key from the
// same ed25519 seed (crypto_sign_ed25519_pk_to_curve25519); this core keeps
// the two independent for simplicity.
type KeyPair struct {
	Verkey   string // base58 ed25519 public key
	signPriv ed25519.PrivateKey
	packPub  *[32]byte
	packPriv *[32]byte
}

// Capability is the C2 contract consumed by the connection, issuance and
// presentation state machines. Implementations must be safe for concurrent
// use by independent sessions (spec §5).
type Capability interface {
	// CreateDID mints a new pairwise DID+verkey and its key material.
	CreateDID() (model.PairwiseInfo, *KeyPair, error)
	// Sign produces a raw ed25519 signature over msg using kp.
	Sign(kp *KeyPair, msg []byte) ([]byte, error)
	// Verify checks sig over msg against a base58 verkey.
	Verify(verkey string, msg, sig []byte) bool
	// EncodeSignedPayload builds a connection~sig-style signed attachment,
	// signing payload with kp under the "bootstrap verkey" contract of
	// spec §4.2.
	EncodeSignedPayload(kp *KeyPair, payload interface{}) (*SignedPayload, error)
	// DecodeSignedPayload verifies sp against verkey and unmarshals its
	// payload into out. Returns CryptoFailure if the signature is invalid.
	DecodeSignedPayload(sp *SignedPayload, verkey string, out interface{}) error
	// Pack anon-encrypts payload to each of the given recipient X25519 pack
	// keys (anoncrypt: no sender authentication, matching the
	// invitation-stage handshake where the sender is not yet known to the
	// recipient), sealing a copy per recipient with SealAnonymous.
	Pack(payload []byte, recipientPackKeys []*[32]byte) ([]byte, error)
	// Unpack finds the envelope entry addressed to kp's pack key and opens
	// it with OpenAnonymous.
	Unpack(kp *KeyPair, packed []byte) ([]byte, error)
}

// SignedPayload mirrors the Aries "signature decorator" / connection~sig
// shape: sig_data is base64(big-endian 8-byte timestamp || payload JSON),
// signature is the ed25519 signature over sig_data, and signer is the
// base58 verkey that produced it (spec §4.2: "signed by the inviter's
// bootstrap verkey").
type SignedPayload struct {
	SigData   string `json:"sig_data"`
	Signature string `json:"signature"`
	Signer    string `json:"signer"`
}

type provider struct{}

// New returns the default Capability implementation.
func New() Capability { return provider{} }

func (provider) CreateDID() (model.PairwiseInfo, *KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		return model.PairwiseInfo{}, nil, agenterr.Wrap(agenterr.CryptoFailure, "CreateDID", "generate signing key", err)
	}
	packPub, packPriv, err := box.GenerateKey(crand.Reader)
	if err != nil {
		return model.PairwiseInfo{}, nil, agenterr.Wrap(agenterr.CryptoFailure, "CreateDID", "generate pack key", err)
	}
	verkey := Base58Encode(pub)
	did := Base58Encode(pub[:16])
	kp := &KeyPair{Verkey: verkey, signPriv: priv, packPub: packPub, packPriv: packPriv}
	return model.PairwiseInfo{DID: did, Verkey: verkey}, kp, nil
}

func (provider) Sign(kp *KeyPair, msg []byte) ([]byte, error) {
	if kp == nil {
		return nil, agenterr.New(agenterr.CryptoFailure, "Sign", "nil keypair")
	}
	return ed25519.Sign(kp.signPriv, msg), nil
}

func (provider) Verify(verkey string, msg, sig []byte) bool {
	pub, err := Base58Decode(verkey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

func (p provider) EncodeSignedPayload(kp *KeyPair, payload interface{}) (*SignedPayload, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.InvalidInput, "EncodeSignedPayload", "marshal payload", err)
	}
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(time.Now().Unix()))
	sigData := append(ts, body...)
	sig, err := p.Sign(kp, sigData)
	if err != nil {
		return nil, err
	}
	return &SignedPayload{
		SigData:   b64(sigData),
		Signature: b64(sig),
		Signer:    kp.Verkey,
	}, nil
}

func (p provider) DecodeSignedPayload(sp *SignedPayload, verkey string, out interface{}) error {
	sigData, err := unb64(sp.SigData)
	if err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "DecodeSignedPayload", "decode sig_data", err)
	}
	sig, err := unb64(sp.Signature)
	if err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "DecodeSignedPayload", "decode signature", err)
	}
	if !p.Verify(verkey, sigData, sig) {
		return agenterr.New(agenterr.CryptoFailure, "DecodeSignedPayload", "signature does not verify against supplied verkey")
	}
	if len(sigData) < 8 {
		return agenterr.New(agenterr.InvalidInput, "DecodeSignedPayload", "sig_data too short")
	}
	if err := json.Unmarshal(sigData[8:], out); err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "DecodeSignedPayload", "unmarshal payload", err)
	}
	return nil
}

func (provider) Pack(payload []byte, recipientPackKeys []*[32]byte) ([]byte, error) {
	if len(recipientPackKeys) == 0 {
		return nil, agenterr.New(agenterr.InvalidInput, "Pack", "no recipients")
	}
	recipients := make([]packRecipient, 0, len(recipientPackKeys))
	for _, pub := range recipientPackKeys {
		sealed, err := SealAnonymous(payload, pub)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, packRecipient{Kid: Base58Encode(pub[:]), Ciphertext: b64(sealed)})
	}
	env := packEnvelope{Recipients: recipients}
	return json.Marshal(env)
}

func (provider) Unpack(kp *KeyPair, packed []byte) ([]byte, error) {
	var env packEnvelope
	if err := json.Unmarshal(packed, &env); err != nil {
		return nil, agenterr.Wrap(agenterr.InvalidInput, "Unpack", "decode envelope", err)
	}
	kid := Base58Encode(kp.packPub[:])
	for _, r := range env.Recipients {
		if r.Kid != kid {
			continue
		}
		sealed, err := unb64(r.Ciphertext)
		if err != nil {
			return nil, agenterr.Wrap(agenterr.InvalidInput, "Unpack", "decode ciphertext", err)
		}
		return OpenAnonymous(sealed, kp.packPub, kp.packPriv)
	}
	return nil, agenterr.New(agenterr.CryptoFailure, "Unpack", "envelope not addressed to this key")
}

// packEnvelope is a multi-recipient anoncrypt envelope: payload is sealed
// once per recipient pack key with SealAnonymous, keyed by the recipient's
// base58-encoded pack public key (spec §4.2: pack/unpack).
type packEnvelope struct {
	Recipients []packRecipient `json:"recipients"`
}

type packRecipient struct {
	Kid        string `json:"kid"`
	Ciphertext string `json:"ciphertext"`
}

// SealAnonymous performs a real libsodium-style anonymous seal to a single
// recipient's X25519 public key. Pack uses it once per recipient; it is
// also exported for callers that want a single sealed box without the
// envelope.
func SealAnonymous(payload []byte, recipientPub *[32]byte) ([]byte, error) {
	out, err := box.SealAnonymous(nil, payload, recipientPub, crand.Reader)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CryptoFailure, "SealAnonymous", "seal", err)
	}
	return out, nil
}

// OpenAnonymous inverts SealAnonymous using the recipient's key pair.
func OpenAnonymous(sealed []byte, pub, priv *[32]byte) ([]byte, error) {
	out, ok := box.OpenAnonymous(nil, sealed, pub, priv)
	if !ok {
		return nil, agenterr.New(agenterr.CryptoFailure, "OpenAnonymous", "open failed")
	}
	return out, nil
}

// PackPublicKey exposes kp's X25519 pack key, for callers exercising
// SealAnonymous/OpenAnonymous directly.
func (kp *KeyPair) PackPublicKey() *[32]byte  { return kp.packPub }
func (kp *KeyPair) PackPrivateKey() *[32]byte { return kp.packPriv }

// ExportRecoveryPhrase derives a BIP-39 mnemonic from kp's signing seed,
// the same recovery-phrase affordance the teacher's wallet.go exposes for
// blockchain keys, generalised here to back up pairwise key material
// (SPEC_FULL §3 domain-stack item; grounded further by
// libvcx/src/api_lib/api_c/wallet.rs's wallet backup/export entry points).
func (kp *KeyPair) ExportRecoveryPhrase() (string, error) {
	seed := kp.signPriv.Seed()
	entropy := seed[:16]
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", agenterr.Wrap(agenterr.CryptoFailure, "ExportRecoveryPhrase", "derive mnemonic", err)
	}
	return mnemonic, nil
}

func b64(b []byte) string            { return base64.StdEncoding.EncodeToString(b) }
func unb64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }
