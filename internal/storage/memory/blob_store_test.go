package memory

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "runs/out.csv", "text/csv", strings.NewReader("a,b\n"))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://runs/out.csv" {
		t.Fatalf("unexpected uri %s", uri)
	}

	got, contentType, ok := store.Object("runs/out.csv")
	if !ok || string(got) != "a,b\n" || contentType != "text/csv" {
		t.Fatalf("unexpected object %q %q %v", got, contentType, ok)
	}
	got[0] = 'X'
	again, _, _ := store.Object("runs/out.csv")
	if string(again) != "a,b\n" {
		t.Fatalf("expected stored copy to be immutable, got %q", again)
	}
}

func TestBlobStoreOverwrites(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	for _, body := range []string{"first", "second"} {
		if _, err := store.PutObject(ctx, "out.csv", "text/csv", bytes.NewBufferString(body)); err != nil {
			t.Fatalf("PutObject() error = %v", err)
		}
	}
	got, _, _ := store.Object("out.csv")
	if string(got) != "second" || store.Len() != 1 {
		t.Fatalf("expected single overwritten object, got %q (%d objects)", got, store.Len())
	}
}

func TestBlobStoreRejectsEmptyPathAndCanceledContext(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	if _, err := store.PutObject(context.Background(), "", "text/csv", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for empty path")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.PutObject(ctx, "out.csv", "text/csv", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if _, _, ok := store.Object("missing"); ok {
		t.Fatal("expected missing object")
	}
}
