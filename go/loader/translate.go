package loader

// Translator maps kernel virtual addresses onto the physical window:
// phys = virt - VirtBase + PhysBase. Arithmetic wraps, so ToVirt(ToPhys(v)) == v
// for every v. Nothing here checks that v belongs to the image.
type Translator struct {
	VirtBase uint64
	PhysBase uint64
}

func NewTranslator(virtBase, physBase uint64) Translator {
	return Translator{VirtBase: virtBase, PhysBase: physBase}
}

func (t Translator) ToPhys(virt uint64) uint64 {
	return virt - t.VirtBase + t.PhysBase
}

func (t Translator) ToVirt(phys uint64) uint64 {
	return phys - t.PhysBase + t.VirtBase
}
