package arena

import "testing"

func TestAllocAlignedBasic(t *testing.T) {
	a := New(64)
	b, err := a.AllocAligned(8, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	if a.Len() != 8 {
		t.Fatalf("offset = %d, want 8", a.Len())
	}
}

func TestAllocAlignedRespectsAlignment(t *testing.T) {
	a := New(64)
	if _, err := a.AllocAligned(3, 1); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if a.Len() != 3 {
		t.Fatalf("offset = %d, want 3", a.Len())
	}
	b, err := a.AllocAligned(8, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if a.Len()-len(b) != 8 {
		t.Fatalf("second allocation not 8-aligned: offset=%d", a.Len())
	}
}

func TestOutOfArena(t *testing.T) {
	a := New(16)
	if _, err := a.AllocAligned(16, 1); err != nil {
		t.Fatalf("alloc within capacity: %v", err)
	}
	if _, err := a.AllocAligned(1, 1); err != ErrOutOfArena {
		t.Fatalf("err = %v, want ErrOutOfArena", err)
	}
}

// TestScopeLIFO is the core spec's property 4: releasing a scope restores
// offset exactly, and allocations after release reuse the released bytes.
func TestScopeLIFO(t *testing.T) {
	a := New(64)
	s := a.Scope()

	if _, err := a.AllocAligned(32, 8); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	inner := a.Scope()
	if _, err := a.AllocAligned(16, 8); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	a.Release(inner)
	if a.Len() != 32 {
		t.Fatalf("offset after inner release = %d, want 32", a.Len())
	}

	a.Release(s)
	if a.Len() != 0 {
		t.Fatalf("offset after outer release = %d, want 0", a.Len())
	}

	b, err := a.AllocAligned(64, 8)
	if err != nil {
		t.Fatalf("realloc after release: %v", err)
	}
	if len(b) != 64 {
		t.Fatalf("len = %d, want 64", len(b))
	}
}

func TestReleaseNonLIFOPanics(t *testing.T) {
	a := New(64)
	outer := a.Scope()
	if _, err := a.AllocAligned(16, 8); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	s := a.Scope()
	if _, err := a.AllocAligned(8, 8); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	a.Release(outer)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic releasing an inner scope after its enclosing scope")
		}
	}()
	a.Release(s)
}

func TestReset(t *testing.T) {
	a := New(32)
	if _, err := a.AllocAligned(20, 4); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	a.Reset()
	if a.Len() != 0 {
		t.Fatalf("offset after reset = %d, want 0", a.Len())
	}
}
