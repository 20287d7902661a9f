package player

import (
	"testing"
)

func TestPrefetchTakeTransfersOwnership(t *testing.T) {
	c := NewPrefetchCache(3)
	h := &fakeHandle{url: "a"}
	c.Put("a", h)

	if !c.Has("a") {
		t.Fatal("expected cache to hold a")
	}
	if got := c.Take("a"); got != h {
		t.Fatalf("Take returned %v, want the stored handle", got)
	}
	if c.Has("a") || c.Len() != 0 {
		t.Error("entry should be gone after Take")
	}
	if h.isUnloaded() {
		t.Error("taken handle must not be released")
	}
}

func TestPrefetchTakeMissReturnsNil(t *testing.T) {
	c := NewPrefetchCache(3)
	if got := c.Take("missing"); got != nil {
		t.Errorf("Take on empty cache = %v, want nil", got)
	}
}

func TestPrefetchEvictsOldestAndReleases(t *testing.T) {
	c := NewPrefetchCache(2)
	h1 := &fakeHandle{url: "a"}
	h2 := &fakeHandle{url: "b"}
	h3 := &fakeHandle{url: "c"}

	c.Put("a", h1)
	c.Put("b", h2)
	c.Put("c", h3)

	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	if c.Has("a") {
		t.Error("oldest entry should have been evicted")
	}
	if !h1.isUnloaded() {
		t.Error("evicted handle must be released")
	}
	if h2.isUnloaded() || h3.isUnloaded() {
		t.Error("surviving handles must stay loaded")
	}
}

func TestPrefetchDuplicatePutKeepsOriginal(t *testing.T) {
	c := NewPrefetchCache(3)
	h1 := &fakeHandle{url: "a"}
	h2 := &fakeHandle{url: "a"}

	c.Put("a", h1)
	c.Put("a", h2)

	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
	if !h2.isUnloaded() {
		t.Error("duplicate handle must be released")
	}
	if got := c.Take("a"); got != Handle(h1) {
		t.Error("original handle should survive a duplicate Put")
	}
}

func TestPrefetchReleaseAll(t *testing.T) {
	c := NewPrefetchCache(3)
	h1 := &fakeHandle{url: "a"}
	h2 := &fakeHandle{url: "b"}
	c.Put("a", h1)
	c.Put("b", h2)

	c.ReleaseAll()

	if c.Len() != 0 {
		t.Errorf("len = %d, want 0", c.Len())
	}
	if !h1.isUnloaded() || !h2.isUnloaded() {
		t.Error("all handles must be released")
	}
}

func TestPrefetchDefaultCapacity(t *testing.T) {
	c := NewPrefetchCache(0)
	for _, id := range []string{"a", "b", "c", "d"} {
		c.Put(id, &fakeHandle{url: id})
	}
	if c.Len() != 3 {
		t.Errorf("len = %d, want default capacity 3", c.Len())
	}
}
