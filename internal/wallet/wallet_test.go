package wallet

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddGetDuplicateDelete(t *testing.T) {
	w := New(nil)
	if err := w.Add(CategoryLinkSecret, "alice", "12345", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	rec, err := w.Get(CategoryLinkSecret, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Value != "12345" {
		t.Fatalf("expected value 12345, got %q", rec.Value)
	}

	// spec §8 property 5: second add with same alias fails Duplicate.
	if err := w.Add(CategoryLinkSecret, "alice", "other", nil); err == nil {
		t.Fatal("expected duplicate error")
	}

	if err := w.Delete(CategoryLinkSecret, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := w.Get(CategoryLinkSecret, "alice"); err == nil {
		t.Fatal("expected NotFound after delete")
	}
}

func TestUnknownCategoryRejected(t *testing.T) {
	w := New(nil)
	if err := w.Add(Category("Bogus"), "x", "y", nil); err == nil {
		t.Fatal("expected unknown category to be rejected")
	}
}

func TestSearchWQLSubset(t *testing.T) {
	w := New(nil)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(w.Add(CategoryCred, "c1", "v1", map[string]string{
		"attr::name::marker": "1", "cred_def_id": "CD1", "schema_name": "degree",
	}))
	must(w.Add(CategoryCred, "c2", "v2", map[string]string{
		"attr::name::marker": "1", "cred_def_id": "CD2", "schema_name": "degree",
	}))
	must(w.Add(CategoryCred, "c3", "v3", map[string]string{
		"attr::age::marker": "1", "cred_def_id": "CD1", "schema_name": "degree",
	}))

	// Matches the §4.3 prover_get_credentials_for_proof_req query shape.
	q := []byte(`{"$and":[{"attr::name::marker":"1"},{"$or":[{"cred_def_id":"CD1"}]}]}`)
	recs, err := w.Search(CategoryCred, q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "c1" {
		t.Fatalf("expected exactly c1, got %+v", recs)
	}

	byRegex, err := w.Search(CategoryCred, []byte(`{"schema_name":{"$regex":"^deg"}}`))
	if err != nil {
		t.Fatalf("Search regex: %v", err)
	}
	if len(byRegex) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(byRegex))
	}
}

func TestSearchRejectsUnknownOperator(t *testing.T) {
	w := New(nil)
	if _, err := w.Search(CategoryCred, []byte(`{"$unknown":[]}`)); err == nil {
		t.Fatal("expected unknown operator to be rejected")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	w := New(nil)
	if err := w.Add(CategoryLinkSecret, "alice", "99999", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.dat")
	if err := w.Export(path, "backup-key"); err != nil {
		t.Fatalf("Export: %v", err)
	}

	w2 := New(nil)
	if err := w2.Import(path, "backup-key"); err != nil {
		t.Fatalf("Import: %v", err)
	}
	rec, err := w2.Get(CategoryLinkSecret, "alice")
	if err != nil {
		t.Fatalf("Get after import: %v", err)
	}
	if rec.Value != "99999" {
		t.Fatalf("expected 99999, got %q", rec.Value)
	}

	w3 := New(nil)
	if err := w3.Import(path, "wrong-key"); err == nil {
		t.Fatal("expected wrong backup key to fail")
	}

	_ = os.Remove(path)
}
