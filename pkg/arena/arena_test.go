package arena

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestReserveBumpsAndFailsCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img")
	a, err := Open(path, 0x1000000000, 4096, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	before := a.NextFree()
	if _, err := a.Reserve(5000); err != ErrExhausted {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if a.NextFree() != before {
		t.Fatalf("NextFree mutated on failed reserve: before=%d after=%d", before, a.NextFree())
	}

	off, err := a.Reserve(16)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if off != before {
		t.Fatalf("expected offset %d, got %d", before, off)
	}
	if a.NextFree() != before+16 {
		t.Fatalf("expected NextFree %d, got %d", before+16, a.NextFree())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img")
	a, err := Open(path, 0x1000000000, 4096, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	payload := []byte("deterministic exchange state")
	if err := a.CommitSnapshot(payload); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := Open(path, 0x1000000000, 4096, false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()

	got := b.LoadSnapshot()
	if !bytes.Equal(got, payload) {
		t.Fatalf("snapshot mismatch: got %q want %q", got, payload)
	}
}

func TestRestartWithNoNewInputsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img")
	a, err := Open(path, 0x1000000000, 4096, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	payload := []byte("state-v0")
	if err := a.CommitSnapshot(payload); err != nil {
		t.Fatalf("commit: %v", err)
	}
	a.Close()

	b, err := Open(path, 0x1000000000, 4096, false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got1 := b.LoadSnapshot()
	b.Close()

	c, err := Open(path, 0x1000000000, 4096, false)
	if err != nil {
		t.Fatalf("reopen again: %v", err)
	}
	defer c.Close()
	got2 := c.LoadSnapshot()

	if !bytes.Equal(got1, got2) {
		t.Fatalf("snapshot changed across no-op restart: %q vs %q", got1, got2)
	}
}

func TestIdentityMismatchRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img")
	a, err := Open(path, 0x1000000000, 4096, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a.Close()

	if _, err := Open(path, 0x2000000000, 4096, false); err != ErrIdentityMismatch {
		t.Fatalf("expected ErrIdentityMismatch, got %v", err)
	}
}
