package issuecredential

import (
	"testing"

	"github.com/spf13/afero"

	"aries-agent-core/internal/anoncreds"
	"aries-agent-core/internal/wallet"
)

func setupDegreeCredDef(t *testing.T) (wallet.Wallet, anoncreds.CredentialDefinition) {
	t.Helper()
	w := wallet.New(nil)
	fs := afero.NewMemMapFs()
	schema, err := anoncreds.IssuerCreateSchema("did:example:issuer", "degree", "1.0", []string{"name"})
	if err != nil {
		t.Fatalf("IssuerCreateSchema: %v", err)
	}
	cd, err := anoncreds.IssuerCreateAndStoreCredentialDef(w, "did:example:issuer", schema, anoncreds.CredDefConfig{Tag: "tag1"})
	if err != nil {
		t.Fatalf("IssuerCreateAndStoreCredentialDef: %v", err)
	}
	_ = fs
	if _, err := anoncreds.ProverCreateLinkSecret(w, "default"); err != nil {
		t.Fatalf("ProverCreateLinkSecret: %v", err)
	}
	return w, cd
}

func TestIssuanceHappyPath(t *testing.T) {
	w, cd := setupDegreeCredDef(t)

	issuer := NewIssuerSession("issuer", "thread-1")
	issuer, err := issuer.SetOffer(w, cd.ID, map[string]string{"name": "Alice"}, nil)
	if err != nil {
		t.Fatalf("SetOffer: %v", err)
	}
	issuer, offerMsg, err := issuer.SendOffer()
	if err != nil {
		t.Fatalf("SendOffer: %v", err)
	}

	holder := NewHolderSession("holder", "")
	holder, pr, err := holder.HandleOffer(*offerMsg)
	if err != nil || pr != nil {
		t.Fatalf("HandleOffer: err=%v pr=%+v", err, pr)
	}
	if holder.ThreadID != issuer.ThreadID {
		t.Fatalf("expected holder to adopt issuer's thread-id, got %q vs %q", holder.ThreadID, issuer.ThreadID)
	}

	holder, reqMsg, pr, err := holder.SendRequest(w, "did:example:holder", "default")
	if err != nil || pr != nil {
		t.Fatalf("SendRequest: err=%v pr=%+v", err, pr)
	}

	issuer, pr, err = issuer.HandleRequest(*reqMsg)
	if err != nil || pr != nil {
		t.Fatalf("HandleRequest: err=%v pr=%+v", err, pr)
	}

	issuer, credMsg, pr, err := issuer.SendCredential(w)
	if err != nil || pr != nil {
		t.Fatalf("SendCredential: err=%v pr=%+v", err, pr)
	}

	holder, ack, err := holder.HandleCredential(w, *credMsg)
	if err != nil {
		t.Fatalf("HandleCredential: %v", err)
	}
	if holder.State != StateFinished || holder.Outcome != OutcomeSuccess {
		t.Fatalf("expected holder Finished(Success), got %v/%v", holder.State, holder.Outcome)
	}
	if ack == nil {
		t.Fatal("expected an ack since PleaseAck was set")
	}

	issuer, pr, err = issuer.HandleAck(ack)
	if err != nil || pr != nil {
		t.Fatalf("HandleAck: err=%v pr=%+v", err, pr)
	}
	if issuer.State != StateFinished || issuer.Outcome != OutcomeSuccess {
		t.Fatalf("expected issuer Finished(Success), got %v/%v", issuer.State, issuer.Outcome)
	}
}

// TestDeclineOffer covers scenario S5: holder declines, no credential
// request is ever built and the holder terminates Finished(Failed).
func TestDeclineOffer(t *testing.T) {
	w, cd := setupDegreeCredDef(t)

	issuer := NewIssuerSession("issuer", "thread-2")
	issuer, err := issuer.SetOffer(w, cd.ID, map[string]string{"name": "Bob"}, nil)
	if err != nil {
		t.Fatalf("SetOffer: %v", err)
	}
	_, offerMsg, err := issuer.SendOffer()
	if err != nil {
		t.Fatalf("SendOffer: %v", err)
	}

	holder := NewHolderSession("holder", "")
	holder, _, err = holder.HandleOffer(*offerMsg)
	if err != nil {
		t.Fatalf("HandleOffer: %v", err)
	}

	holder, pr, err := holder.DeclineOffer("not wanted")
	if err != nil {
		t.Fatalf("DeclineOffer: %v", err)
	}
	if pr == nil {
		t.Fatal("expected a problem report")
	}
	if holder.State != StateFinished || holder.Outcome != OutcomeFailed {
		t.Fatalf("expected holder Finished(Failed), got %v/%v", holder.State, holder.Outcome)
	}
}

func TestProposalThenOffer(t *testing.T) {
	w, cd := setupDegreeCredDef(t)

	holder := NewHolderSession("holder", "")
	holder, proposal, err := holder.SendProposal(cd.ID, "please issue my degree")
	if err != nil {
		t.Fatalf("SendProposal: %v", err)
	}
	if holder.State != StateProposalSent {
		t.Fatalf("expected ProposalSent, got %v", holder.State)
	}

	issuer := NewIssuerSession("issuer", proposal.Thread.ThID)
	issuer, err = issuer.SetOffer(w, cd.ID, map[string]string{"name": "Carol"}, nil)
	if err != nil {
		t.Fatalf("SetOffer: %v", err)
	}
	_, offerMsg, err := issuer.SendOffer()
	if err != nil {
		t.Fatalf("SendOffer: %v", err)
	}

	holder, pr, err := holder.HandleOffer(*offerMsg)
	if err != nil || pr != nil {
		t.Fatalf("HandleOffer: err=%v pr=%+v", err, pr)
	}
	if holder.State != StateOfferReceived {
		t.Fatalf("expected OfferReceived, got %v", holder.State)
	}
}
