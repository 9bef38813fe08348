package fpga

import "github.com/rwirdemann/regmap"

// modbusRegisters is the Modbus master block. 0x28 to 0x68 is reserved by
// the firmware and stays unmapped.
var modbusRegisters = []regmap.Register{
	{Name: "ModbusTxHi", Offset: 0x00, Mode: regmap.ReadWrite, Description: "transmit frame, high word"},
	{Name: "ModbusTxLo", Offset: 0x04, Mode: regmap.ReadWrite, Description: "transmit frame, low word"},
	{Name: "ModbusRxStatus", Offset: 0x08, Mode: regmap.ReadOnly, Description: "receiver status"},
	{Name: "ModbusEchoHi", Offset: 0x0C, Mode: regmap.ReadOnly, Description: "echoed frame, high word"},
	{Name: "ModbusEchoLo", Offset: 0x10, Mode: regmap.ReadOnly, Description: "echoed frame, low word"},
	{Name: "ModbusRxData0", Offset: 0x14, Mode: regmap.ReadOnly, Description: "receive data word 0"},
	{Name: "ModbusRxData1", Offset: 0x18, Mode: regmap.ReadOnly, Description: "receive data word 1"},
	{Name: "ModbusRxData2", Offset: 0x1C, Mode: regmap.ReadOnly, Description: "receive data word 2"},
	{Name: "ModbusRxData3", Offset: 0x20, Mode: regmap.ReadOnly, Description: "receive data word 3"},
	{Name: "ModbusRxData4", Offset: 0x24, Mode: regmap.ReadOnly, Description: "receive data word 4"},
	{Name: "count", Offset: 0x6C, Mode: regmap.ReadOnly, Description: "received frame counter"},
	{Name: "Status", Offset: 0x70, Mode: regmap.ReadOnly, Description: "master status"},
}

// ModbusRegisters returns the registers of the Modbus block in declaration
// order, offsets relative to the block.
func ModbusRegisters() []regmap.Register {
	return append([]regmap.Register(nil), modbusRegisters...)
}

func addModbusBlock(root *regmap.Group, layout regmap.Layout, slot int) error {
	g, err := layout.DefineSlot(root, ModbusBlock, slot)
	if err != nil {
		return err
	}
	g.SetDescription("Modbus master status and data")
	for _, r := range modbusRegisters {
		if err := g.Add(r); err != nil {
			return err
		}
	}
	return nil
}
