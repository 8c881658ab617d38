package hwuf

import "github.com/pkg/errors"

// ErrTimeout is HwFindTimeout (core spec §7): the accelerator walk did not
// terminate within MAX_DEPTH cycles. Recovered internally by falling back
// to software find; logged but nonfatal.
var ErrTimeout = errors.New("hwuf: find exceeded MAX_DEPTH, falling back to software")

// Stepper is the cycle-accurate ABI a Driver talks to: either Sim (the
// behavioral model) or, on real hardware, a thin wrapper over the MMIO
// register file of core spec §6. Keeping the Driver generic over this
// interface means the same firmware code path exercises both.
type Stepper interface {
	SetInput(start bool, node uint32)
	Step()
	Root() uint32
	Done() bool
}

// Driver is the firmware-side contract of core spec §4.E: hw_find(node)
// -> root, serviced by stepping a Stepper's clock until DONE or
// MAX_DEPTH steps elapse.
type Driver struct {
	// Compress resolves SPEC_FULL.md's open question on HW find
	// write-back: when true, a successful HwFind writes the returned
	// root back into parent[node] for software-side path compression.
	// Default false, matching "source has both behaviors disabled".
	Compress bool

	// MaxDepth bounds the walk in Step() calls (clock cycles), not parent
	// hops; each hop costs three steps. It is set by the caller (qecd's
	// --hw-max-depth, qecsim's --max-depth) and is not derived from the
	// graph's detector count.
	MaxDepth int
}

// HwFind drives stepper through a single find(node) request and returns
// its root. Parity is never tracked here — hardware only walks parent
// pointers (core spec §4.E); callers needing parity must restrict
// hardware find to root-equality checks or re-walk in software.
func (d *Driver) HwFind(stepper Stepper, parent []uint32, node uint32) (uint32, error) {
	stepper.SetInput(true, node)
	for steps := 0; steps < d.MaxDepth; steps++ {
		stepper.Step()
		if stepper.Done() {
			root := stepper.Root()
			if d.Compress && parent != nil {
				parent[node] = root
			}
			return root, nil
		}
	}
	return 0, ErrTimeout
}
