package fpga

import (
	"fmt"

	"github.com/rwirdemann/regmap"
)

// RelayCount is the number of relay control registers.
const RelayCount = 12

// RelayName returns the register name of relay n, counting from 1.
func RelayName(n int) string {
	return fmt.Sprintf("Relay_%d", n)
}

func addRelayBlock(root *regmap.Group, layout regmap.Layout, slot int) error {
	g, err := layout.DefineSlot(root, RelayBlock, slot)
	if err != nil {
		return err
	}
	g.SetDescription("Container for CtrlReg")
	for n := 1; n <= RelayCount; n++ {
		err := g.Add(regmap.Register{
			Name:        RelayName(n),
			Offset:      uint64(n-1) * 4,
			Mode:        regmap.ReadWrite,
			Description: fmt.Sprintf("relay %d control", n),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
