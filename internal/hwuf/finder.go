package hwuf

// DSUFinder adapts a Driver/Stepper pair walking a raw parent array into
// the uf.Finder interface (satisfied structurally — this package does
// not import internal/uf to avoid a cycle), letting the UF decoder
// offload its non-parity root-equality checks to hardware while parity-
// critical calls stay on the DSU's own software Find (core spec §4.E:
// "hardware tracks no parity").
type DSUFinder struct {
	Driver  *Driver
	Stepper Stepper
	Parent  []uint32
}

// Find walks Stepper to resolve x's root, returning ErrTimeout (which
// the uf.Decoder treats as "fall back to software") if the walk exceeds
// Driver.MaxDepth.
func (f *DSUFinder) Find(x uint32) (uint32, error) {
	return f.Driver.HwFind(f.Stepper, f.Parent, x)
}
