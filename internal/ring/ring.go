// Package ring implements the lock-free SPMC (single-producer,
// multi-consumer) ring buffer that fans SyndromePacket values from the
// one producer hart to N worker harts (core spec §4.D). No locks, no
// syscalls; Push/Pop are the only operations in this repository allowed
// to spin-wait (core spec §5).
package ring

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrFull is returned by Push when the ring has Q in-flight packets.
// Backpressure: the caller decides whether to drop the shot or spin.
var ErrFull = errors.New("ring: full")

// ErrEmpty is returned by Pop when no packet is currently claimable.
var ErrEmpty = errors.New("ring: empty")

type slot struct {
	seq atomic.Uint32
	pkt SyndromePacket
}

// Ring is a fixed-capacity Q = 2^k slot SPMC queue. The zero value is not
// usable; construct with New.
type Ring struct {
	mask  uint64
	slots []slot

	head atomic.Uint64 // producer-owned; atomic so readers (stats, Occupancy) can observe it
	tail atomic.Uint64 // contended among consumers via CAS-based reservation
}

// New creates a Ring of capacity q, which must be a power of two (core
// spec §4.D / §9: "Q must be a power of two").
func New(q int) *Ring {
	if q <= 0 || q&(q-1) != 0 {
		panic("ring: capacity must be a power of two")
	}
	r := &Ring{
		mask:  uint64(q - 1),
		slots: make([]slot, q),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint32(i))
		r.slots[i].pkt.Bits = nil
	}
	return r
}

// Cap returns the ring's fixed slot count.
func (r *Ring) Cap() int { return len(r.slots) }

// Occupancy reports the current ring depth (core spec §6's "Q" console
// field). It is a racy snapshot by construction — head and tail are read
// independently — acceptable for monitoring only.
func (r *Ring) Occupancy() int {
	h := r.head.Load()
	t := r.tail.Load()
	if h < t {
		return 0
	}
	return int(h - t)
}

// Push copies pkt into the next slot. Returns ErrFull under backpressure;
// the producer is the sole caller and owns head exclusively, so there is
// never more than one goroutine executing Push concurrently.
func (r *Ring) Push(pkt *SyndromePacket) error {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= uint64(len(r.slots)) {
		return ErrFull
	}

	s := &r.slots[head&r.mask]
	for s.seq.Load() != uint32(head) {
		// Brief spin: head-tail < Q means a consumer has claimed this
		// slot's previous generation, but that consumer republishes
		// seq only after copying the packet out, so the producer can
		// arrive here first and must wait for it.
	}

	s.pkt.CloneInto(pkt)
	s.seq.Store(uint32(head) + 1) // release: packet now visible
	r.head.Store(head + 1)
	return nil
}

// Pop claims the oldest unclaimed packet and copies it into out. Exactly
// one consumer ever succeeds for a given slot generation (core spec §8
// property 3).
func (r *Ring) Pop(out *SyndromePacket) error {
	for {
		tail := r.tail.Load()
		s := &r.slots[tail&r.mask]
		seq := s.seq.Load()

		switch {
		case seq == uint32(tail)+1:
			if r.tail.CompareAndSwap(tail, tail+1) {
				out.CloneInto(&s.pkt)
				s.seq.Store(uint32(tail) + uint32(len(r.slots)))
				return nil
			}
			// another consumer won the CAS; retry.
		case seq == uint32(tail):
			// slot not yet published for this generation.
			return ErrEmpty
		default:
			// producer has already wrapped past this slot, or
			// another consumer raced ahead; re-read tail and retry.
		}
	}
}
