package dispatch

import "testing"

type stubRequest struct {
	ID    string `json:"@id"`
	Label string `json:"label"`
}

func TestDecode(t *testing.T) {
	raw := RawMessage{UID: "1", Type: "request", Body: map[string]interface{}{"@id": "r1", "label": "alice"}}
	var out stubRequest
	if err := Decode(raw, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.ID != "r1" || out.Label != "alice" {
		t.Fatalf("unexpected decode result: %+v", out)
	}
}

// TestFindDeterminism covers spec §8 property 8: reordering messages the
// acceptance predicate rejects never changes which message is selected.
func TestFindDeterminism(t *testing.T) {
	accepts := func(t string) bool { return t == "request" || t == "response" }

	inboxA := []RawMessage{
		{Type: "ping", ThreadID: "t1"},
		{Type: "request", ThreadID: "t1"},
		{Type: "discover-query", ThreadID: "t1"},
	}
	inboxB := []RawMessage{
		{Type: "discover-query", ThreadID: "t1"},
		{Type: "request", ThreadID: "t1"},
		{Type: "ping", ThreadID: "t1"},
	}

	msgA, okA := Find(inboxA, accepts, "t1", nil)
	msgB, okB := Find(inboxB, accepts, "t1", nil)
	if !okA || !okB || msgA.Type != msgB.Type {
		t.Fatalf("expected the same accepted message regardless of non-accepted reordering, got %+v vs %+v", msgA, msgB)
	}
}

func TestFindSkipThreadCheck(t *testing.T) {
	accepts := func(t string) bool { return t == "problem_report" }
	skip := func(t string) bool { return t == "problem_report" }
	inbox := []RawMessage{{Type: "problem_report", ThreadID: "other"}}
	msg, ok := Find(inbox, accepts, "t1", skip)
	if !ok || msg.ThreadID != "other" {
		t.Fatalf("expected problem_report to match despite thread-id mismatch, got %+v ok=%v", msg, ok)
	}
}
