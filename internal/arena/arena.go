// Package arena implements the fixed-capacity bump allocator that supplies
// all decode-time scratch memory. Allocation is O(1), never touches the Go
// heap after construction, and never syscalls — the only data structure in
// this repository that is safe to use from the hot decode path.
package arena

import "github.com/pkg/errors"

// ErrOutOfArena is returned by AllocAligned when the requested allocation
// would exceed the arena's fixed capacity. It is the core spec's
// OutOfArena: fatal to the current shot, never retried, propagated to the
// caller so the arena can be reset for the next one.
var ErrOutOfArena = errors.New("arena: out of capacity")

// errNotLIFO is the InvariantViolation raised when Release is handed a
// scope that lies beyond the current offset, i.e. an inner scope released
// after its enclosing one. Scopes are strictly LIFO within a worker by
// construction (§4.A); seeing this means calling code holds two
// overlapping scopes, which is a programming error, not an
// operator-recoverable condition.
var errNotLIFO = "arena: scope released out of LIFO order"

// Scope is an opaque saved offset. Release restores the arena to this
// point, invalidating every allocation made since the scope was opened.
type Scope int

// Arena hands out byte ranges from a single fixed-size backing buffer.
// One Arena is owned exclusively by one worker; Arenas are never shared
// across goroutines, so the bump offset needs no atomic or mutex — see
// DESIGN.md for why that is safe here and would not be elsewhere.
type Arena struct {
	buf    []byte
	offset int
}

// New allocates the backing buffer once, at boot, with the given capacity
// in bytes. The returned Arena never grows.
func New(capacity int) *Arena {
	return &Arena{buf: make([]byte, capacity)}
}

// Cap returns the arena's total capacity in bytes.
func (a *Arena) Cap() int { return len(a.buf) }

// Len returns the number of bytes currently reserved.
func (a *Arena) Len() int { return a.offset }

// Scope captures the current offset. Releasing the returned handle resets
// the arena to exactly this point.
func (a *Arena) Scope() Scope { return Scope(a.offset) }

// Release resets the bump offset to a previously captured Scope. Scopes
// must be released in strict LIFO order. Release panics with an
// InvariantViolation when s lies beyond the current offset, which is what
// releasing an inner scope after its enclosing scope looks like; releasing
// an enclosing scope before an inner one, or the same scope twice, is not
// detected.
func (a *Arena) Release(s Scope) {
	if int(s) > a.offset {
		panic(errNotLIFO)
	}
	a.offset = int(s)
}

// Reset performs a full reset, dropping all outstanding allocations. Only
// valid between shots — never call this while a scope from a different
// in-flight shot could still be holding references into buf.
func (a *Arena) Reset() {
	a.offset = 0
}

// AllocAligned bumps the offset up to the next multiple of align, reserves
// size bytes there, and returns a slice over them. align must be a power
// of two; an align of 0 or 1 applies no alignment, and a size of 0
// returns a zero-length slice at the aligned offset.
func (a *Arena) AllocAligned(size, align int) ([]byte, error) {
	aligned := alignUp(a.offset, align)
	end := aligned + size
	if end > len(a.buf) || end < 0 {
		return nil, ErrOutOfArena
	}
	a.offset = end
	return a.buf[aligned:end], nil
}

func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
