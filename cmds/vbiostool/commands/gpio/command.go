// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpio

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/vbios/cmds/vbiostool/commands"
	"github.com/linuxboot/vbios/pkg/atom"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.ROMOptions
	Pins        []uint8 `short:"p" long:"pin" description:"GPIO id to look up in GPIO_Pin_LUT, may be repeated"`
	Thermal     []uint8 `short:"t" long:"thermal" description:"I2C id of a thermal controller, may be repeated"`
	VoltageType uint8   `long:"voltage-type" description:"voltage type of the regulator in a v3.1 voltage object table" default:"1"`
}

// ShortDescription implements commands.Command.
func (cmd *Command) ShortDescription() string {
	return "prints GPIO pins and the I2C lines of the voltage regulator and thermal controllers"
}

func (cmd *Command) LongDescription() string {
	return ""
}

// Execute implements flags.Commander.
func (cmd *Command) Execute(args []string) error {
	if err := commands.NoExtraArgs(args); err != nil {
		return err
	}
	v, err := cmd.Open()
	if err != nil {
		return err
	}
	p := v.Parser

	if len(cmd.Pins) != 0 {
		pins := commands.NewTable("GPIO pins", "GPIO ID", "Register", "Mask", "A", "Y", "EN")
		for _, id := range cmd.Pins {
			pin, err := p.GPIOPinInfo(id)
			if err != nil {
				pins.AppendRow(table.Row{id, commands.ErrorString(err)})
				continue
			}
			pins.AppendRow(table.Row{
				id,
				fmt.Sprintf("0x%04X", pin.Offset),
				fmt.Sprintf("0x%08X", pin.Mask),
				fmt.Sprintf("0x%04X/0x%08X", pin.OffsetMask, pin.MaskMask),
				fmt.Sprintf("0x%04X/0x%08X", pin.OffsetY, pin.MaskY),
				fmt.Sprintf("0x%04X/0x%08X", pin.OffsetEn, pin.MaskEn),
			})
		}
		pins.Render()
	}

	lines := commands.NewTable("I2C lines", "User", "Line", "Engine", "HW Assist", "Clock A", "Data A")
	voltage, err := p.VoltageDDCInfo(cmd.VoltageType)
	lines.AppendRow(lineRow("voltage regulator", voltage, err))
	for _, id := range cmd.Thermal {
		thermal, err := p.ThermalDDCInfo(atom.I2CConfig(id))
		lines.AppendRow(lineRow(fmt.Sprintf("thermal %s", atom.I2CConfig(id)), thermal, err))
	}
	lines.Render()
	return nil
}

func lineRow(user string, info atom.I2CInfo, err error) table.Row {
	if err != nil {
		return table.Row{user, commands.ErrorString(err)}
	}
	return table.Row{
		user,
		info.Line,
		info.EngineID,
		info.HWAssist,
		fmt.Sprintf("0x%04X<<%d", info.GPIO.ClkARegisterIndex, info.GPIO.ClkAShift),
		fmt.Sprintf("0x%04X<<%d", info.GPIO.DataARegisterIndex, info.GPIO.DataAShift),
	}
}
