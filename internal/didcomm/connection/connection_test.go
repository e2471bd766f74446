package connection

import (
	"testing"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/crypto"
	"aries-agent-core/internal/didcomm/model"
)

// TestPairwiseConnectionHappyPath covers scenario S1: Alice (invitee) and
// Bob (inviter) both reach Completed with matching thread-ids.
func TestPairwiseConnectionHappyPath(t *testing.T) {
	cap := crypto.New()

	bob := NewInviterSession("bob")
	bob, inv, err := bob.Connect(cap, "bob", nil, "https://b/")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	alice := NewInviteeSession("alice")
	alice, err = alice.HandleInvitation(inv, false)
	if err != nil {
		t.Fatalf("HandleInvitation: %v", err)
	}
	alice, req, err := alice.SendRequest(cap, "alice", nil, "https://a/")
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if req.Thread.ThID != inv.ID {
		t.Fatalf("expected pairwise request thid = invitation id, got %q", req.Thread.ThID)
	}

	bob, resp, pr, err := bob.HandleRequest(cap, req)
	if err != nil || pr != nil {
		t.Fatalf("HandleRequest: err=%v pr=%+v", err, pr)
	}
	if bob.State != StateRequested {
		t.Fatalf("expected bob Requested, got %v", bob.State)
	}
	bob, resp2, err := bob.SendResponse()
	if err != nil {
		t.Fatalf("SendResponse: %v", err)
	}
	if resp2 != resp {
		t.Fatalf("expected SendResponse to re-send the cached response")
	}
	if bob.State != StateResponded {
		t.Fatalf("expected bob Responded, got %v", bob.State)
	}

	alice, pr, err = alice.HandleResponse(cap, *resp)
	if err != nil || pr != nil {
		t.Fatalf("HandleResponse: err=%v pr=%+v", err, pr)
	}
	if alice.State != StateResponded {
		t.Fatalf("expected alice Responded, got %v", alice.State)
	}
	if alice.TheirDIDDoc == nil || len(alice.TheirDIDDoc.RecipientKeys) == 0 {
		t.Fatal("expected alice to adopt bob's new DIDDoc")
	}

	alice, ack, err := alice.SendAck()
	if err != nil {
		t.Fatalf("SendAck: %v", err)
	}
	if alice.State != StateCompleted {
		t.Fatalf("expected alice Completed, got %v", alice.State)
	}

	bob, pr, err = bob.HandleAck(ack)
	if err != nil || pr != nil {
		t.Fatalf("HandleAck: err=%v pr=%+v", err, pr)
	}
	if bob.State != StateCompleted {
		t.Fatalf("expected bob Completed, got %v", bob.State)
	}
	if alice.ThreadID != bob.ThreadID {
		t.Fatalf("expected matching thread-ids, alice=%q bob=%q", alice.ThreadID, bob.ThreadID)
	}
}

// TestThreadIDRejection covers scenario S2: a response carrying the wrong
// thread-id sends the invitee back to Initial with a problem report while
// the inviter is left in Requested.
func TestThreadIDRejection(t *testing.T) {
	cap := crypto.New()

	bob := NewInviterSession("bob")
	bob, inv, _ := bob.Connect(cap, "bob", nil, "https://b/")

	alice := NewInviteeSession("alice")
	alice, _ = alice.HandleInvitation(inv, false)
	alice, req, _ := alice.SendRequest(cap, "alice", nil, "https://a/")

	bob, resp, _, err := bob.HandleRequest(cap, req)
	if err != nil {
		t.Fatalf("HandleRequest: %v", err)
	}

	tampered := *resp
	tampered.Thread = &model.Thread{ThID: "wrong"}

	alice, pr, err := alice.HandleResponse(cap, tampered)
	if agenterr.Of(err) != agenterr.ThreadMismatch {
		t.Fatalf("expected ThreadMismatch, got %v", err)
	}
	if pr == nil {
		t.Fatal("expected a problem report")
	}
	if alice.State != StateInitial {
		t.Fatalf("expected alice back to Initial, got %v", alice.State)
	}
	if bob.State != StateRequested {
		t.Fatalf("expected bob to remain Requested, got %v", bob.State)
	}
}

// TestSignedResponseAuthenticity covers testable property 2: the invitee
// must verify against exactly the invitation's first recipient key, and a
// response signed by any other key fails.
func TestSignedResponseAuthenticity(t *testing.T) {
	cap := crypto.New()

	bob := NewInviterSession("bob")
	bob, inv, _ := bob.Connect(cap, "bob", nil, "https://b/")

	alice := NewInviteeSession("alice")
	alice, _ = alice.HandleInvitation(inv, false)
	alice, req, _ := alice.SendRequest(cap, "alice", nil, "https://a/")

	bob, resp, _, err := bob.HandleRequest(cap, req)
	if err != nil {
		t.Fatalf("HandleRequest: %v", err)
	}

	// Forge a response with a correctly-matching thread-id but signed by an
	// unrelated key instead of the invitation's bootstrap verkey.
	_, forgedKP, _ := cap.CreateDID()
	forgedSig, err := cap.EncodeSignedPayload(forgedKP, ConnectionData{DID: "forged"})
	if err != nil {
		t.Fatalf("EncodeSignedPayload: %v", err)
	}
	forged := *resp
	forged.ConnectionSig = &SignedPayloadRef{SigData: forgedSig.SigData, Signature: forgedSig.Signature, Signer: forgedSig.Signer}

	_, pr, err := alice.HandleResponse(cap, forged)
	if agenterr.Of(err) != agenterr.CryptoFailure {
		t.Fatalf("expected CryptoFailure verifying against the wrong key, got %v", err)
	}
	if pr == nil {
		t.Fatal("expected a problem report on verification failure")
	}
}

// TestCompletedHandlesTrustPingAndHandshakeReuse exercises the Completed
// state's same-protocol-response rule (spec §4.2 last inviter row).
func TestCompletedHandlesTrustPingAndHandshakeReuse(t *testing.T) {
	cap := crypto.New()
	bob := completedInviterFixture(t, cap)

	_, pingResp, err := bob.HandlePing(&Ping{ID: "p1", Type: TypePing, ResponseRequested: true, Thread: &model.Thread{ThID: bob.ThreadID}})
	if err != nil {
		t.Fatalf("HandlePing: %v", err)
	}
	if pingResp == nil {
		t.Fatal("expected a ping response")
	}

	_, accepted, err := bob.HandleHandshakeReuse(&HandshakeReuse{ID: "r1", Type: TypeHandshakeReuse, Thread: &model.Thread{ThID: "oob-1"}})
	if err != nil {
		t.Fatalf("HandleHandshakeReuse: %v", err)
	}
	if accepted.Thread.ThID != "oob-1" {
		t.Fatalf("expected accepted to echo the reuse thread-id, got %q", accepted.Thread.ThID)
	}
}

func completedInviterFixture(t *testing.T, cap crypto.Capability) InviterSession {
	t.Helper()
	bob := NewInviterSession("bob")
	bob, inv, _ := bob.Connect(cap, "bob", nil, "https://b/")
	alice := NewInviteeSession("alice")
	alice, _ = alice.HandleInvitation(inv, false)
	alice, req, _ := alice.SendRequest(cap, "alice", nil, "https://a/")
	bob, resp, _, err := bob.HandleRequest(cap, req)
	if err != nil {
		t.Fatalf("HandleRequest: %v", err)
	}
	bob, _, _ = bob.SendResponse()
	alice, _, err = alice.HandleResponse(cap, *resp)
	if err != nil {
		t.Fatalf("HandleResponse: %v", err)
	}
	_, ack, _ := alice.SendAck()
	bob, _, err = bob.HandleAck(ack)
	if err != nil {
		t.Fatalf("HandleAck: %v", err)
	}
	return bob
}

func TestFindMessageToUpdateStateDispatchDeterminism(t *testing.T) {
	inbox1 := []InboxMessage{
		{Type: TypePing, ThreadID: "t1"},
		{Type: TypeAck, ThreadID: "t1"},
	}
	inbox2 := []InboxMessage{
		{Type: TypeAck, ThreadID: "t1"},
		{Type: TypePing, ThreadID: "t1"},
	}
	// Both inboxes contain the same set; insertion order differs but the
	// earliest-matching entry for Responded is whichever comes first in
	// each inbox — determinism means re-running the same inbox always
	// yields the same pick, which we check by repeating the scan.
	msg1a, ok1a := FindMessageToUpdateState(RoleInviter, StateResponded, "t1", inbox1)
	msg1b, ok1b := FindMessageToUpdateState(RoleInviter, StateResponded, "t1", inbox1)
	if !ok1a || !ok1b || msg1a.Type != msg1b.Type {
		t.Fatalf("expected repeated scans of the same inbox to agree, got %+v vs %+v", msg1a, msg1b)
	}
	msg2, ok2 := FindMessageToUpdateState(RoleInviter, StateResponded, "t1", inbox2)
	if !ok2 || msg2.Type != TypeAck {
		t.Fatalf("expected the first-in-order accepted message (Ack), got %+v", msg2)
	}
}
