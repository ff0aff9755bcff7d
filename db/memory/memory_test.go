package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ktaudit/ktaudit/db"
)

func TestRepositoryGetBeforePutReturnsNotFound(t *testing.T) {
	r := New()
	if _, err := r.Get(context.Background()); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryPutThenGetRoundTrips(t *testing.T) {
	r := New()
	ctx := context.Background()
	if err := r.Put(ctx, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := r.Put(ctx, []byte("second")); err != nil {
		t.Fatal(err)
	}

	got, err := r.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Fatalf("expected last-writer-wins value %q, got %q", "second", got)
	}
}

func TestRepositoryGetReturnsACopy(t *testing.T) {
	r := New()
	ctx := context.Background()
	original := []byte("value")
	if err := r.Put(ctx, original); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got[0] = 'X'

	got2, err := r.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got2, []byte("value")) {
		t.Fatal("mutating a returned slice must not affect the repository's stored value")
	}
}
