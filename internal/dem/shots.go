package dem

import (
	"encoding/binary"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"

	"github.com/qec-rv/qecfw/internal/ring"
)

// ErrMalformedShotArchive is the core spec's MalformedShotArchive: a
// shots.b8 blob whose RS trailer, header, or shot table doesn't parse, or
// whose parity shards can't recover a corrupted data shard.
var ErrMalformedShotArchive = errors.New("dem: malformed shots.b8")

// rsTrailer is the domain-stack envelope wrapped around the inner
// num_shots/bytes_per_shot payload of core spec §6: the payload is split
// into equal-size data shards, protected by parityShards Reed-Solomon
// parity shards, so a single corrupted shard can be repaired at load
// time rather than aborting the boot (mirrors the teacher's own
// -datashard/-parityshard FEC sizing, github.com/klauspost/reedsolomon).
type rsTrailer struct {
	DataShards   uint32
	ParityShards uint32
	ShardSize    uint32
	PayloadLen   uint32
}

// Archive is the decoded shots.b8 payload: a flat table of fixed-width
// shot records, each a packed detector bit vector (core spec §6).
type Archive struct {
	NumShots     uint32
	BytesPerShot uint32
	Data         []byte
}

// Packet materializes shot i as a ring.SyndromePacket, unpacking its
// little-endian byte record into 64-bit words the same way the producer
// loop would when feeding live shots into the ring.
func (a *Archive) Packet(i int) ring.SyndromePacket {
	start := uint32(i) * a.BytesPerShot
	raw := a.Data[start : start+a.BytesPerShot]

	nwords := (len(raw) + 7) / 8
	bits := make([]uint64, nwords)
	for j, b := range raw {
		bits[j/8] |= uint64(b) << (8 * (j % 8))
	}
	return ring.SyndromePacket{ShotID: uint32(i), Bits: bits}
}

// LoadShots parses a shots.b8 blob from r: unwraps the snappy envelope,
// reconstructs the RS-protected shard set, then parses the recovered
// num_shots/bytes_per_shot payload exactly per core spec §6.
func LoadShots(r io.Reader) (*Archive, error) {
	sr := snappy.NewReader(r)

	var trailer rsTrailer
	if err := binary.Read(sr, binary.LittleEndian, &trailer); err != nil {
		return nil, errors.Wrap(ErrMalformedShotArchive, err.Error())
	}
	if trailer.DataShards == 0 || trailer.ShardSize == 0 {
		return nil, errors.Wrap(ErrMalformedShotArchive, "zero data shards or shard size")
	}

	total := int(trailer.DataShards + trailer.ParityShards)
	shards := make([][]byte, total)
	for i := range shards {
		shards[i] = make([]byte, trailer.ShardSize)
		if _, err := io.ReadFull(sr, shards[i]); err != nil {
			return nil, errors.Wrapf(ErrMalformedShotArchive, "shard %d: %v", i, err)
		}
	}

	if trailer.ParityShards > 0 {
		enc, err := reedsolomon.New(int(trailer.DataShards), int(trailer.ParityShards))
		if err != nil {
			return nil, errors.Wrap(ErrMalformedShotArchive, err.Error())
		}
		ok, err := enc.Verify(shards)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedShotArchive, err.Error())
		}
		if !ok {
			// Locate a single corrupted shard by erasing each shard in
			// turn, reconstructing it from the rest and re-verifying; this
			// needs at least two parity shards to tell the bad shard apart.
			for i := 0; !ok && i < total; i++ {
				saved := shards[i]
				shards[i] = nil
				if enc.Reconstruct(shards) == nil {
					ok, _ = enc.Verify(shards)
				}
				if !ok {
					shards[i] = saved
				}
			}
			if !ok {
				return nil, errors.Wrap(ErrMalformedShotArchive, "parity shards could not recover payload")
			}
		}
	}

	payload := make([]byte, 0, trailer.PayloadLen)
	for i := 0; i < int(trailer.DataShards) && uint32(len(payload)) < trailer.PayloadLen; i++ {
		payload = append(payload, shards[i]...)
	}
	if uint32(len(payload)) < trailer.PayloadLen {
		return nil, errors.Wrap(ErrMalformedShotArchive, "recovered payload shorter than recorded length")
	}
	payload = payload[:trailer.PayloadLen]

	if len(payload) < 8 {
		return nil, errors.Wrap(ErrMalformedShotArchive, "payload too short for header")
	}
	numShots := binary.LittleEndian.Uint32(payload[0:4])
	bytesPerShot := binary.LittleEndian.Uint32(payload[4:8])
	body := payload[8:]

	want := int(numShots) * int(bytesPerShot)
	if len(body) < want {
		return nil, errors.Wrapf(ErrMalformedShotArchive, "shot table truncated: have %d bytes, want %d", len(body), want)
	}

	return &Archive{
		NumShots:     numShots,
		BytesPerShot: bytesPerShot,
		Data:         body[:want],
	}, nil
}
