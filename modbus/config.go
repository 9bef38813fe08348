package modbus

import (
	"time"

	"github.com/rwirdemann/regmap"
	"github.com/simonvetter/modbus"
)

// defaultTimeout applies when the serial config leaves the timeout unset.
const defaultTimeout = time.Second

func clientConfiguration(serial regmap.Serial) *modbus.ClientConfiguration {
	timeout := time.Duration(serial.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &modbus.ClientConfiguration{
		URL:      serial.Url,
		Speed:    uint(serial.Speed),
		DataBits: uint(serial.DataBits),
		Parity:   uint(serial.Parity),
		StopBits: uint(serial.StopBits),
		Timeout:  timeout,
	}
}

// slaves returns the slaves of serial, numbering the top-level groups of m
// when none are configured.
func slaves(serial regmap.Serial, m *regmap.Map) []regmap.Slave {
	if len(serial.Slaves) > 0 {
		return serial.Slaves
	}
	return regmap.DefaultSlaves(m)
}
