package cas

import (
	"context"
	"testing"
)

func TestStoreQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryClient()
	if err != nil {
		t.Fatalf("NewMemoryClient: %v", err)
	}

	key, err := c.Store(ctx, []byte("hello world"))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	comp := &Compilation{Key: key, Outputs: map[string][]byte{"main.o": []byte("object")}}
	if err := c.Upload(ctx, comp); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	got, ok, err := c.Query(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Query: got=%v ok=%v err=%v", got, ok, err)
	}
	if string(got.Outputs["main.o"]) != "object" {
		t.Fatalf("unexpected output content: %v", got.Outputs)
	}
}

func TestQueryMissIsNotError(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryClient()
	if err != nil {
		t.Fatalf("NewMemoryClient: %v", err)
	}
	_, ok, err := c.Query(ctx, Key("nonexistent"))
	if err != nil {
		t.Fatalf("expected no error on cache miss, got %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestPruneRespectsSizeLimit(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryClient()
	if err != nil {
		t.Fatalf("NewMemoryClient: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := c.Store(ctx, make([]byte, 1024)); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	c.SetSizeLimit(1)
	if err := c.Prune(ctx); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	size, ok, err := c.Size(ctx)
	if err != nil || !ok {
		t.Fatalf("Size: %v %v %v", size, ok, err)
	}
	if size > 4096 {
		t.Fatalf("expected pruning to shrink store, got size=%d", size)
	}
}

func TestReplayDetectsStableDigest(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryClient()
	if err != nil {
		t.Fatalf("NewMemoryClient: %v", err)
	}
	comp := &Compilation{Outputs: map[string][]byte{"a.o": []byte("x")}}
	if err := c.Replay(ctx, comp, []string{"swiftc"}); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if string(comp.Outputs["a.o"]) != "x" {
		t.Fatalf("Replay should round-trip output bytes unchanged, got %q", comp.Outputs["a.o"])
	}
}

func TestReplayRejectsNilCompilation(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryClient()
	if err != nil {
		t.Fatalf("NewMemoryClient: %v", err)
	}
	if err := c.Replay(ctx, nil, []string{"swiftc"}); err == nil {
		t.Fatal("expected error replaying nil compilation")
	}
}
