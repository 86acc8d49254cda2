// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package integrated

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/vbios/cmds/vbiostool/commands"
	"github.com/linuxboot/vbios/pkg/atom"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.ROMOptions
}

// ShortDescription implements commands.Command.
func (cmd *Command) ShortDescription() string {
	return "prints the integrated system info of an APU video BIOS"
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
	info, err := v.Parser.IntegratedInfo()
	if err != nil {
		return fmt.Errorf("unable to decode %s: %w", atom.TableIntegratedSystemInfo, err)
	}

	t := commands.NewProperties(fmt.Sprintf("%s v%s", commands.Words(atom.TableIntegratedSystemInfo.String()), info.Revision))
	t.AppendRows([]table.Row{
		{"Boot Up Engine Clock", commands.Frequency(info.BootUpEngineClock)},
		{"Boot Up UMA Clock", commands.Frequency(info.BootUpUMAClock)},
		{"Dentist VCO", commands.Frequency(info.DentistVCOFreq)},
		{"Minimum NClk", commands.Frequency(info.MinimumNClk * 10)},
		{"Idle NClk", commands.Frequency(info.IdleNClk * 10)},
		{"Boot Up NB Voltage", fmt.Sprintf("0x%04X", info.BootUpNBVoltage)},
		{"System Config", fmt.Sprintf("0x%08X", info.SystemConfig)},
		{"GPU Capabilities", fmt.Sprintf("0x%08X", info.GPUCapInfo)},
		{"CPU Capabilities", fmt.Sprintf("0x%08X", info.CPUCapInfo)},
		{"Memory Type", info.MemoryType},
		{"UMA Channels", info.UMAChannelNumber},
		{"LVDS Misc", fmt.Sprintf("0x%02X", info.LVDSMisc)},
		{"Max Single Link LVDS Clock", commands.Frequency(uint32(info.MaxLVDSPclkFreqInSingleLink) * 10)},
	})
	t.Render()

	clocks := commands.NewTable("Display clock levels", "#", "Max Clock", "Voltage Index")
	for i, c := range info.DispClkVoltage {
		clocks.AppendRow(table.Row{i, commands.Frequency(c.MaxSupportedClock), c.VoltageIndex})
	}
	clocks.Render()

	sclk := commands.NewTable("System clock levels", "#", "Clock", "Voltage Index", "Voltage ID")
	for i, c := range info.AvailSClk {
		if c.SupportedSClk == 0 {
			continue
		}
		sclk.AppendRow(table.Row{i, commands.Frequency(c.SupportedSClk), c.VoltageIndex, c.VoltageID})
	}
	sclk.Render()

	conn := info.ExtDispConnInfo
	paths := commands.NewTable(fmt.Sprintf("External display paths (%s)", conn.GUID), "#", "Device", "Connector", "Encoder", "AUX/DDC", "HPD", "Channel Map")
	for i, path := range conn.Path {
		if path.DeviceConnectorID == (atom.ObjectID{}) {
			continue
		}
		paths.AppendRow(table.Row{
			i,
			path.DeviceTag,
			path.DeviceConnectorID,
			path.ExtEncoderObjID,
			path.ExtAUXDDCLUTIndex,
			path.ExtHPDPinLUTIndex,
			fmt.Sprintf("0x%02X", path.ChannelMapping),
		})
	}
	paths.Render()
	return nil
}
