package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestOverlayBuffersWrites(t *testing.T) {
	backend := NewMemDB()
	if err := backend.Put([]byte("a"), []byte("base")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	overlay := NewOverlay(backend)

	if err := overlay.Put([]byte("a"), []byte("buffered")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := overlay.Get([]byte("a"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("buffered")) {
		t.Fatalf("overlay read = %q, want buffered value", got)
	}
	base, err := backend.Get([]byte("a"))
	if err != nil {
		t.Fatalf("backend get: %v", err)
	}
	if !bytes.Equal(base, []byte("base")) {
		t.Fatalf("backend must be untouched before commit, got %q", base)
	}
}

func TestOverlayReadsFallThrough(t *testing.T) {
	backend := NewMemDB()
	if err := backend.Put([]byte("a"), []byte("base")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	overlay := NewOverlay(backend)

	got, err := overlay.Get([]byte("a"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("base")) {
		t.Fatalf("fall-through read = %q", got)
	}
	if _, err := overlay.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want %v", err, ErrNotFound)
	}
}

func TestOverlayDeleteMasksBackend(t *testing.T) {
	backend := NewMemDB()
	if err := backend.Put([]byte("a"), []byte("base")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	overlay := NewOverlay(backend)

	if err := overlay.Delete([]byte("a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := overlay.Get([]byte("a")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want %v", err, ErrNotFound)
	}
	if ok, _ := overlay.Has([]byte("a")); ok {
		t.Fatalf("deleted key must not report present")
	}
	if ok, _ := backend.Has([]byte("a")); !ok {
		t.Fatalf("backend must keep the key until commit")
	}

	// A put after a delete revives the key.
	if err := overlay.Put([]byte("a"), []byte("again")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, _ := overlay.Has([]byte("a")); !ok {
		t.Fatalf("expected the key back after put")
	}
}

func TestOverlayCommitFlushes(t *testing.T) {
	backend := NewMemDB()
	if err := backend.Put([]byte("old"), []byte("1")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	overlay := NewOverlay(backend)
	if err := overlay.Put([]byte("new"), []byte("2")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := overlay.Delete([]byte("old")); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := overlay.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := backend.Get([]byte("old")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old key deleted, got %v", err)
	}
	got, err := backend.Get([]byte("new"))
	if err != nil {
		t.Fatalf("backend get: %v", err)
	}
	if !bytes.Equal(got, []byte("2")) {
		t.Fatalf("committed value = %q", got)
	}
}

func TestOverlayDiscardDropsEverything(t *testing.T) {
	backend := NewMemDB()
	overlay := NewOverlay(backend)
	if err := overlay.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	overlay.Discard()
	if _, err := overlay.Get([]byte("a")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want %v", err, ErrNotFound)
	}
	if ok, _ := backend.Has([]byte("a")); ok {
		t.Fatalf("backend must never see discarded writes")
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("mutable")
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'X'

	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("mutable")) {
		t.Fatalf("stored value aliased the caller's slice: %q", got)
	}
}
