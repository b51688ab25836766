package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apimocker/apimocker/pkg/logging"
)

func newFileStore(t *testing.T, dir string) *FileStore {
	t.Helper()
	fs, err := NewFileStore(dir, logging.Nop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return fs
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	fs := newFileStore(t, dir)
	for i := 0; i < 3; i++ {
		if _, err := fs.Create("users", Record{"name": "user", "n": int64(i)}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	// A fresh store instance against the same directory sees the same data.
	reopened := newFileStore(t, dir)
	all := reopened.GetAll("users")
	if len(all) != 3 {
		t.Fatalf("expected 3 records after reopen, got %d", len(all))
	}
	for i, rec := range all {
		if got := rec["n"].(int64); got != int64(i) {
			t.Errorf("record %d: field n = %v", i, rec["n"])
		}
	}
}

func TestFileStore_CounterSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	fs := newFileStore(t, dir)
	fs.Create("users", Record{})
	fs.Create("users", Record{})

	reopened := newFileStore(t, dir)
	rec, err := reopened.Create("users", Record{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := Stringify(rec["id"]); got != "3" {
		t.Errorf("expected id 3 after reloading ids 1 and 2, got %s", got)
	}
}

func TestFileStore_MalformedFileTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "users.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := newFileStore(t, dir)
	if got := len(fs.GetAll("users")); got != 0 {
		t.Errorf("malformed file should start the collection empty, got %d records", got)
	}

	// The collection is still writable afterwards.
	if _, err := fs.Create("users", Record{"name": "x"}); err != nil {
		t.Fatalf("Create after malformed load failed: %v", err)
	}
}

func TestFileStore_DeletePersists(t *testing.T) {
	dir := t.TempDir()

	fs := newFileStore(t, dir)
	created, _ := fs.Create("users", Record{"name": "x"})
	if err := fs.Delete("users", Stringify(created["id"])); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	reopened := newFileStore(t, dir)
	if got := len(reopened.GetAll("users")); got != 0 {
		t.Errorf("deleted record came back after reopen: %d records", got)
	}
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.json")
	seed := `{
		"users": [{"id": 5, "name": "seeded"}],
		"products": [{"title": "widget"}]
	}`
	if err := os.WriteFile(seedPath, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewMemoryStore()
	if err := LoadSeedFile(s, seedPath); err != nil {
		t.Fatalf("LoadSeedFile failed: %v", err)
	}

	if _, ok := s.GetByID("users", "5"); !ok {
		t.Error("seeded user with explicit id not found")
	}
	if _, ok := s.GetByID("products", "1"); !ok {
		t.Error("seeded product did not get an auto id")
	}

	// Explicit id 5 advanced the users counter.
	rec, _ := s.Create("users", Record{})
	if got := Stringify(rec["id"]); got != "6" {
		t.Errorf("expected next users id 6, got %s", got)
	}
}

func TestLoadSeedFile_Missing(t *testing.T) {
	s := NewMemoryStore()
	if err := LoadSeedFile(s, filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing seed file")
	}
}

func TestFileStore_PersistedNumbersStayIntegers(t *testing.T) {
	dir := t.TempDir()

	fs := newFileStore(t, dir)
	fs.Create("items", Record{"count": int64(7), "price": 9.5})

	reopened := newFileStore(t, dir)
	rec := reopened.GetAll("items")[0]
	if _, ok := rec["count"].(int64); !ok {
		t.Errorf("integer field decoded as %T", rec["count"])
	}
	if _, ok := rec["price"].(float64); !ok {
		t.Errorf("float field decoded as %T", rec["price"])
	}
}
