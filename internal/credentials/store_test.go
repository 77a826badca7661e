package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore_Basics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, "tok-1"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	token, ok, err := store.Load(ctx)
	if err != nil || !ok || token != "tok-1" {
		t.Fatalf("expected tok-1, got %q,%v,%v", token, ok, err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected token cleared")
	}
}

func TestFileStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")
	store := NewFileStore(dir, "")

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("missing file should be absent, got ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, "tok-1"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if filepath.Base(store.Path()) != DefaultKey {
		t.Fatalf("expected file named after default key, got %s", store.Path())
	}
	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
	}

	token, ok, err := store.Load(ctx)
	if err != nil || !ok || token != "tok-1" {
		t.Fatalf("expected tok-1, got %q,%v,%v", token, ok, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear should be a no-op, got %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected token cleared")
	}
}

func TestFileStore_SurvivesNewInstance(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	if err := NewFileStore(dir, "session").Save(ctx, "persisted"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	token, ok, err := NewFileStore(dir, "session").Load(ctx)
	if err != nil || !ok || token != "persisted" {
		t.Fatalf("expected persisted token across instances, got %q,%v,%v", token, ok, err)
	}
}

func TestFileStore_EmptyTokenClears(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), "")
	if err := store.Save(ctx, "tok"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, ""); err != nil {
		t.Fatalf("save empty failed: %v", err)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, got %v", err)
	}
}

func TestFileStore_EmptyFileIsAbsent(t *testing.T) {
	store := NewFileStore(t.TempDir(), "")
	if err := os.WriteFile(store.Path(), nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok, err := store.Load(context.Background()); err != nil || ok {
		t.Fatalf("empty file should be absent, got ok=%v err=%v", ok, err)
	}
}

func TestStores_KeepTokenBytes(t *testing.T) {
	ctx := context.Background()
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(t.TempDir(), ""),
	}
	for name, store := range stores {
		for _, tok := range []string{" abc.def ", "\ttok\n", "\n"} {
			if err := store.Save(ctx, tok); err != nil {
				t.Fatalf("%s: save %q: %v", name, tok, err)
			}
			got, ok, err := store.Load(ctx)
			if err != nil || !ok || got != tok {
				t.Fatalf("%s: expected %q back, got %q,%v,%v", name, tok, got, ok, err)
			}
		}
	}
}
