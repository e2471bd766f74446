package crypto

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	cap := New()
	_, kp, err := cap.CreateDID()
	if err != nil {
		t.Fatalf("CreateDID: %v", err)
	}
	msg := []byte("hello aries")
	sig, err := cap.Sign(kp, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !cap.Verify(kp.Verkey, msg, sig) {
		t.Fatal("expected signature to verify")
	}
	if cap.Verify(kp.Verkey, []byte("tampered"), sig) {
		t.Fatal("expected tampered message to fail verification")
	}
}

func TestSignedPayloadRoundTrip(t *testing.T) {
	cap := New()
	_, bootstrapKP, _ := cap.CreateDID()

	type connData struct {
		DID string `json:"did"`
	}
	payload := connData{DID: "Bd2"}

	sp, err := cap.EncodeSignedPayload(bootstrapKP, payload)
	if err != nil {
		t.Fatalf("EncodeSignedPayload: %v", err)
	}

	var out connData
	if err := cap.DecodeSignedPayload(sp, bootstrapKP.Verkey, &out); err != nil {
		t.Fatalf("DecodeSignedPayload: %v", err)
	}
	if out.DID != "Bd2" {
		t.Fatalf("expected round-tripped DID, got %q", out.DID)
	}

	// Invariant 2 (spec §8): verifying against the wrong verkey must fail.
	_, otherKP, _ := cap.CreateDID()
	var tampered connData
	if err := cap.DecodeSignedPayload(sp, otherKP.Verkey, &tampered); err == nil {
		t.Fatal("expected decode against wrong verkey to fail")
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	cap := New()
	_, kp, _ := cap.CreateDID()
	plaintext := []byte(`{"hello":"world"}`)

	packed, err := cap.Pack(plaintext, []*[32]byte{kp.PackPublicKey()})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	got, err := cap.Unpack(kp, packed)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("expected round-tripped plaintext, got %q", got)
	}

	_, other, _ := cap.CreateDID()
	if _, err := cap.Unpack(other, packed); err == nil {
		t.Fatal("expected unpack by non-recipient to fail")
	}
}

func TestSealAnonymousRoundTrip(t *testing.T) {
	cap := New()
	_, kp, _ := cap.CreateDID()
	msg := []byte("sealed payload")

	sealed, err := SealAnonymous(msg, kp.PackPublicKey())
	if err != nil {
		t.Fatalf("SealAnonymous: %v", err)
	}
	out, err := OpenAnonymous(sealed, kp.PackPublicKey(), kp.PackPrivateKey())
	if err != nil {
		t.Fatalf("OpenAnonymous: %v", err)
	}
	if string(out) != string(msg) {
		t.Fatalf("expected round-tripped message, got %q", out)
	}
}

func TestBase58RoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0},
		{0, 0, 1, 2, 3},
		[]byte("some arbitrary verkey bytes 0123456789"),
	}
	for _, c := range cases {
		enc := Base58Encode(c)
		dec, err := Base58Decode(enc)
		if err != nil {
			t.Fatalf("decode %q: %v", enc, err)
		}
		if string(dec) != string(c) {
			t.Fatalf("round trip mismatch: got %v want %v", dec, c)
		}
	}
}
