// Regmap inspects the register maps of the relay controller FPGA and
// reads or writes registers over modbus.
package main

import "github.com/rwirdemann/regmap/cmd/regmap/cmd"

func main() {
	cmd.Execute()
}
