package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"aries-agent-core/internal/anoncreds"
	"aries-agent-core/internal/crypto"
	"aries-agent-core/internal/didcomm/connection"
	"aries-agent-core/internal/didcomm/issuecredential"
	"aries-agent-core/internal/didcomm/presentproof"
	"aries-agent-core/internal/wallet"
)

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "demo", Short: "run an in-process Alice/Bob walkthrough"}
	cmd.AddCommand(&cobra.Command{
		Use:   "full",
		Short: "connection handshake, credential issuance, and proof presentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFullDemo()
		},
	})
	return cmd
}

// runFullDemo wires a full happy path across C4/C5/C6/C7: Bob (inviter,
// later issuer and verifier) invites Alice (invitee, later holder and
// prover), they complete a connection, Bob issues a degree credential to
// Alice, then Bob requests and verifies a proof of it.
func runFullDemo() error {
	cap := crypto.New()
	issuerWallet := wallet.New(nil)
	holderWallet := wallet.New(nil)
	fs := afero.NewMemMapFs()

	bob := connection.NewInviterSession("bob")
	alice := connection.NewInviteeSession("alice")

	bob, inv, err := bob.Connect(cap, "bob", nil, "https://mediator.example/bob")
	if err != nil {
		return fmt.Errorf("bob.Connect: %w", err)
	}
	fmt.Printf("bob invites alice (thread %s)\n", bob.ThreadID)

	alice, err = alice.HandleInvitation(inv, false)
	if err != nil {
		return fmt.Errorf("alice.HandleInvitation: %w", err)
	}
	alice, req, err := alice.SendRequest(cap, "alice", nil, "https://mediator.example/alice")
	if err != nil {
		return fmt.Errorf("alice.SendRequest: %w", err)
	}

	bob, resp, pr, err := bob.HandleRequest(cap, req)
	if err != nil || pr != nil {
		return fmt.Errorf("bob.HandleRequest: err=%v pr=%+v", err, pr)
	}
	bob, resp, err = bob.SendResponse()
	if err != nil {
		return fmt.Errorf("bob.SendResponse: %w", err)
	}

	alice, pr, err = alice.HandleResponse(cap, *resp)
	if err != nil || pr != nil {
		return fmt.Errorf("alice.HandleResponse: err=%v pr=%+v", err, pr)
	}
	alice, ack, err := alice.SendAck()
	if err != nil {
		return fmt.Errorf("alice.SendAck: %w", err)
	}
	bob, pr, err = bob.HandleAck(ack)
	if err != nil || pr != nil {
		return fmt.Errorf("bob.HandleAck: err=%v pr=%+v", err, pr)
	}
	fmt.Printf("connection completed: bob=%s alice=%s\n", bob.State, alice.State)

	schema, err := anoncreds.IssuerCreateSchema(bob.MyPairwise.DID, "degree", "1.0", []string{"name", "age"})
	if err != nil {
		return fmt.Errorf("IssuerCreateSchema: %w", err)
	}
	credDef, err := anoncreds.IssuerCreateAndStoreCredentialDef(issuerWallet, bob.MyPairwise.DID, schema, anoncreds.CredDefConfig{Tag: "tag1"})
	if err != nil {
		return fmt.Errorf("IssuerCreateAndStoreCredentialDef: %w", err)
	}
	if _, err := anoncreds.ProverCreateLinkSecret(holderWallet, "default"); err != nil {
		return fmt.Errorf("ProverCreateLinkSecret: %w", err)
	}
	// The holder looks the cred-def up in its own wallet when it stores the
	// credential, so copy Bob's public cred-def across, as a ledger read would.
	credDefJSON, err := json.Marshal(credDef)
	if err != nil {
		return fmt.Errorf("marshal cred-def: %w", err)
	}
	if err := holderWallet.Add(wallet.CategoryCredDef, credDef.ID, string(credDefJSON), nil); err != nil {
		return fmt.Errorf("copy cred-def to holder wallet: %w", err)
	}

	issuer := issuecredential.NewIssuerSession("bob", bob.ThreadID+"-issuance")
	issuer, err = issuer.SetOffer(issuerWallet, credDef.ID, map[string]string{"name": "Alice", "age": "30"}, nil)
	if err != nil {
		return fmt.Errorf("SetOffer: %w", err)
	}
	issuer, offerMsg, err := issuer.SendOffer()
	if err != nil {
		return fmt.Errorf("SendOffer: %w", err)
	}

	holder := issuecredential.NewHolderSession("alice", "")
	holder, icPR, err := holder.HandleOffer(*offerMsg)
	if err != nil || icPR != nil {
		return fmt.Errorf("HandleOffer: err=%v pr=%+v", err, icPR)
	}
	holder, reqMsg, icPR, err := holder.SendRequest(holderWallet, alice.MyPairwise.DID, "default")
	if err != nil || icPR != nil {
		return fmt.Errorf("SendRequest: err=%v pr=%+v", err, icPR)
	}
	issuer, icPR, err = issuer.HandleRequest(*reqMsg)
	if err != nil || icPR != nil {
		return fmt.Errorf("HandleRequest: err=%v pr=%+v", err, icPR)
	}
	issuer, credMsg, icPR, err := issuer.SendCredential(issuerWallet)
	if err != nil || icPR != nil {
		return fmt.Errorf("SendCredential: err=%v pr=%+v", err, icPR)
	}
	holder, credAck, err := holder.HandleCredential(holderWallet, *credMsg)
	if err != nil {
		return fmt.Errorf("HandleCredential: %w", err)
	}
	issuer, icPR, err = issuer.HandleAck(credAck)
	if err != nil || icPR != nil {
		return fmt.Errorf("issuer.HandleAck: err=%v pr=%+v", err, icPR)
	}
	fmt.Printf("credential issued: issuer=%s/%s holder=%s/%s\n", issuer.State, issuer.Outcome, holder.State, holder.Outcome)

	presReq := anoncreds.PresentationRequest{
		Nonce: "agentctl-demo-nonce",
		RequestedAttributes: map[string]anoncreds.AttrInfo{
			"name_referent": {Name: "name", Restrictions: []map[string]string{{"cred_def_id": credDef.ID}}},
		},
		RequestedPredicates: map[string]anoncreds.PredInfo{
			"age_referent": {Name: "age", PType: ">=", PValue: 18},
		},
	}
	verifier := presentproof.NewVerifierSession("bob", "")
	verifier, err = verifier.SetRequest(presReq)
	if err != nil {
		return fmt.Errorf("SetRequest: %w", err)
	}
	verifier, reqPresMsg, err := verifier.SendRequest()
	if err != nil {
		return fmt.Errorf("presentproof.SendRequest: %w", err)
	}

	prover := presentproof.NewProverSession("alice", "")
	prover, ppPR, err := prover.HandleRequest(*reqPresMsg)
	if err != nil || ppPR != nil {
		return fmt.Errorf("prover.HandleRequest: err=%v pr=%+v", err, ppPR)
	}

	found, err := anoncreds.ProverGetCredentialsForProofReq(holderWallet, presReq)
	if err != nil {
		return fmt.Errorf("ProverGetCredentialsForProofReq: %w", err)
	}
	nameMatches := found["name_referent"]
	if len(nameMatches) == 0 {
		return fmt.Errorf("no stored credential satisfies name_referent")
	}
	credentialID := nameMatches[0].Name
	sel := anoncreds.SelectedCredentials{
		Attrs:      map[string]anoncreds.RequestedCredential{"name_referent": {Referent: "name_referent", CredentialID: credentialID, Revealed: true}},
		Predicates: map[string]anoncreds.RequestedCredential{"age_referent": {Referent: "age_referent", CredentialID: credentialID}},
	}
	prover, err = prover.PreparePresentation(holderWallet, fs, sel)
	if err != nil {
		return fmt.Errorf("PreparePresentation: %w", err)
	}
	prover, presMsg, ppPR, err := prover.SendPresentation()
	if err != nil || ppPR != nil {
		return fmt.Errorf("SendPresentation: err=%v pr=%+v", err, ppPR)
	}

	verifier, ppPR, err = verifier.HandlePresentation(*presMsg)
	if err != nil || ppPR != nil {
		return fmt.Errorf("HandlePresentation: err=%v pr=%+v", err, ppPR)
	}
	verifier, vAck, ppPR, err := verifier.VerifyPresentation(issuerWallet)
	if err != nil || ppPR != nil {
		return fmt.Errorf("VerifyPresentation: err=%v pr=%+v", err, ppPR)
	}
	prover, ppPR, err = prover.HandleAck(vAck)
	if err != nil || ppPR != nil {
		return fmt.Errorf("prover.HandleAck: err=%v pr=%+v", err, ppPR)
	}

	fmt.Printf("presentation verified: status=%d verifier=%s/%s prover=%s/%s\n",
		verifier.Status, verifier.State, verifier.Outcome, prover.State, prover.Outcome)
	return nil
}
