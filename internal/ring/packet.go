package ring

// SentinelShotID marks the shutdown broadcast: the producer enqueues one
// sentinel packet per worker so each worker's pop loop sees exactly one
// and can exit cleanly (core spec §4.D "Cancellation / shutdown").
const SentinelShotID uint32 = 0xFFFFFFFF

// SyndromePacket is a fixed-size per-shot record (core spec §3). Bits is
// fixed-length for a given build (ceil(NumDetectors/64) words); detector
// d is set iff bit d&63 of Bits[d>>6] is 1.
type SyndromePacket struct {
	ShotID uint32
	Bits   []uint64
}

// IsSet reports whether detector d fired in this shot.
func (p *SyndromePacket) IsSet(d uint32) bool {
	return p.Bits[d>>6]&(uint64(1)<<(d&63)) != 0
}

// Set flips detector d on, used by test fixtures and the shot loader.
func (p *SyndromePacket) Set(d uint32) {
	p.Bits[d>>6] |= uint64(1) << (d & 63)
}

// CloneInto copies src into dst, growing dst.Bits if necessary. Used when
// a slot is popped: the caller gets its own copy, decoupled from the
// ring's backing storage (core spec §3: "workers read a local copy").
func (dst *SyndromePacket) CloneInto(src *SyndromePacket) {
	dst.ShotID = src.ShotID
	if cap(dst.Bits) < len(src.Bits) {
		dst.Bits = make([]uint64, len(src.Bits))
	}
	dst.Bits = dst.Bits[:len(src.Bits)]
	copy(dst.Bits, src.Bits)
}
