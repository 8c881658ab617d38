// Package hwuf implements the hardware offload contract for the UF
// decoder's find operation (core spec §4.E): a cycle-accurate behavioral
// model of the union_find.sv 5-state machine standing in for the
// Verilator co-simulation wrapper (there is no SystemVerilog/Verilator
// toolchain in this repository — see DESIGN.md), plus the host-side
// Driver that talks to it or to real MMIO registers through the same
// Stepper interface.
package hwuf

// state is one of the RTL's five states (core spec §4.E).
type state int

const (
	stateIdle state = iota
	stateReadReq
	stateReadWait
	stateCheck
	stateDone
)

// memRequest models the one-cycle-latency memory interface: a read
// issued on cycle N is answered on cycle N+1.
type memRequest struct {
	pending bool
	addr    uint32
}

// Sim is the cycle-accurate co-simulation ABI of §4.E: Init, Shutdown,
// Step, SetInput, Root, Done. It walks parent pointers read from the
// caller's parent RAM; it never writes to that RAM — path compression,
// if any, is strictly a driver-side decision (Supplemented Feature 1 in
// SPEC_FULL.md).
type Sim struct {
	parent []uint32

	st       state
	currNode uint32
	rdataReg uint32
	root     uint32
	done     bool
	busy     bool

	startLatched bool
	nodeLatched  uint32

	req memRequest
}

// NewSim constructs a Sim with no parent RAM loaded; call Init before use.
func NewSim() *Sim { return &Sim{} }

// Init resets the state machine and loads the parent RAM the simulated
// memory interface will service reads from.
func (s *Sim) Init(parentRAM []uint32) {
	*s = Sim{parent: parentRAM}
}

// Shutdown releases the parent RAM reference.
func (s *Sim) Shutdown() { s.parent = nil }

// SetInput drives start/node_in exactly as firmware would write UF_CTRL
// and UF_NODE (core spec §6 register map).
func (s *Sim) SetInput(start bool, node uint32) {
	if start {
		s.startLatched = true
		s.nodeLatched = node
	}
}

// Root reads root_out (UF_ROOT).
func (s *Sim) Root() uint32 { return s.root }

// Done reads UF_STATUS bit 0.
func (s *Sim) Done() bool { return s.done }

// Busy reads UF_STATUS bit 1.
func (s *Sim) Busy() bool { return s.busy }

// Step advances the clock by one edge, implementing the FSM transitions
// of core spec §4.E verbatim.
func (s *Sim) Step() {
	// Memory interface: a response asserted this cycle corresponds to
	// the request asserted last cycle.
	var memReady bool
	var memRdata uint32
	if s.req.pending {
		memReady = true
		memRdata = s.parent[s.req.addr]
		s.req.pending = false
	}

	switch s.st {
	case stateIdle:
		s.busy = false
		s.done = false
		if s.startLatched {
			s.currNode = s.nodeLatched
			s.startLatched = false
			s.busy = true
			s.st = stateReadReq
		}
	case stateReadReq:
		s.req.pending = true
		s.req.addr = s.currNode
		s.st = stateReadWait
	case stateReadWait:
		if memReady {
			s.rdataReg = memRdata
			s.st = stateCheck
		}
		// else: wait, re-issue nothing (request already pending)
	case stateCheck:
		if s.rdataReg == s.currNode {
			s.st = stateDone
		} else {
			s.currNode = s.rdataReg
			s.st = stateReadReq
		}
	case stateDone:
		s.done = true
		s.busy = false
		s.root = s.currNode
		if s.startLatched {
			s.currNode = s.nodeLatched
			s.startLatched = false
			s.busy = true
			s.st = stateReadReq
		} else {
			s.st = stateIdle
		}
	}
}
