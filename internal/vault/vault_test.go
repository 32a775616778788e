package vault

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/store"
)

func testVault(t *testing.T) (*Vault, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// Cheap KDF settings keep the tests fast.
	return New(db, WithKDF(1, 1024)), db
}

func TestUnlock_CreatesThenVerifies(t *testing.T) {
	v, db := testVault(t)
	ctx := context.Background()

	if v.Unlocked() {
		t.Fatal("new vault should start locked")
	}
	if err := v.Unlock(ctx, "hunter2"); err != nil {
		t.Fatalf("first Unlock: %v", err)
	}
	if !v.Unlocked() {
		t.Fatal("vault should be unlocked")
	}

	other := New(db, WithKDF(1, 1024))
	if err := other.Unlock(ctx, "wrong"); !errors.Is(err, apperr.ErrWrongPassword) {
		t.Errorf("wrong password err = %v", err)
	}
	if err := other.Unlock(ctx, "hunter2"); err != nil {
		t.Errorf("correct password: %v", err)
	}
}

func TestLockSaveOpen(t *testing.T) {
	v, db := testVault(t)
	ctx := context.Background()
	id, err := db.AddOrUpdate(ctx, models.NoteInput{
		Title:   "diary",
		Content: models.Content{Text: "dear diary", Delta: []byte(`{"ops":[{"insert":"dear diary"}]}`)},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Lock(ctx, id); !errors.Is(err, apperr.ErrVaultLocked) {
		t.Fatalf("Lock while vault locked: %v", err)
	}
	if err := v.Unlock(ctx, "pw"); err != nil {
		t.Fatal(err)
	}
	if err := v.Lock(ctx, id); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	stored, _ := db.NoteByID(ctx, id)
	if !stored.Locked || stored.Content.Text != "" {
		t.Fatalf("plaintext left in store: %+v", stored)
	}

	opened, err := v.Open(ctx, id)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Content.Text != "dear diary" || opened.Content.Delta == nil || !opened.Locked {
		t.Errorf("opened = %+v", opened)
	}

	if err := v.Save(ctx, models.NoteInput{ID: id, Title: "T", Content: models.Content{Text: "C"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	opened, _ = v.Open(ctx, id)
	if opened.Title != "T" || opened.Content.Text != "C" {
		t.Errorf("after save = %+v", opened)
	}

	v.Forget()
	if _, err := v.Open(ctx, id); !errors.Is(err, apperr.ErrVaultLocked) {
		t.Errorf("Open after Forget err = %v", err)
	}
}

func TestSave_RefusesPlainNote(t *testing.T) {
	v, db := testVault(t)
	ctx := context.Background()
	id, _ := db.AddOrUpdate(ctx, models.NoteInput{Title: "plain"})
	_ = v.Unlock(ctx, "pw")

	err := v.Save(ctx, models.NoteInput{ID: id, Title: "x"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Save on unlocked note err = %v, want not found", err)
	}
}
