package regmap

// Layout places application sub-blocks above a vendor core block. The
// core occupies [0, CoreStride); sub-block k starts at Slot(k).
type Layout struct {
	CoreStride uint64
	AppStride  uint64
}

// Slot returns the base offset of application sub-block k.
func (l Layout) Slot(k int) uint64 {
	return l.CoreStride + l.AppStride*uint64(k)
}

// ReserveCore reserves the core block in root. Nothing is reserved when
// the layout has no core stride.
func (l Layout) ReserveCore(root *Group, name string) error {
	if l.CoreStride == 0 {
		return nil
	}
	return root.Reserve(name, 0, l.CoreStride)
}

// DefineSlot defines sub-block k of root and sizes it to the app stride.
func (l Layout) DefineSlot(root *Group, name string, k int) (*Group, error) {
	g, err := root.Define(name, l.Slot(k))
	if err != nil {
		return nil, err
	}
	return g.SetSize(l.AppStride), nil
}
