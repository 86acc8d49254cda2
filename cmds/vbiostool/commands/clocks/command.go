// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clocks

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
	return "prints the firmware clock info and the spread spectrum settings of every signal"
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

	info, err := v.Parser.FirmwareInfo()
	if err != nil {
		return fmt.Errorf("unable to decode %s: %w", atom.TableFirmwareInfo, err)
	}
	printFirmwareInfo(info)
	printSpreadSpectrum(v.Parser)
	return nil
}

func printFirmwareInfo(info *atom.FirmwareInfo) {
	t := commands.NewProperties(fmt.Sprintf("Firmware info v%s", info.Revision))
	t.AppendRows([]table.Row{
		{"Crystal Frequency", commands.Frequency(info.PLL.CrystalFrequency)},
		{"Min Input Pixel Clock PLL", commands.Frequency(info.PLL.MinInputPxlClkPLLFrequency)},
		{"Max Input Pixel Clock PLL", commands.Frequency(info.PLL.MaxInputPxlClkPLLFrequency)},
		{"Min Output Pixel Clock PLL", commands.Frequency(info.PLL.MinOutputPxlClkPLLFrequency)},
		{"Max Output Pixel Clock PLL", commands.Frequency(info.PLL.MaxOutputPxlClkPLLFrequency)},
		{"Default Display Engine PLL", commands.Frequency(info.DefaultDisplayEnginePLLFrequency)},
		{"External DP Clock Source", commands.Frequency(info.ExternalClockSourceFrequencyForDP)},
		{"SMU GPU PLL Output", commands.Frequency(info.SMUGPUPLLOutputFreq)},
		{"Min Allowed Backlight Level", info.MinAllowedBLLevel},
		{"Remote Display Config", fmt.Sprintf("0x%02X", info.RemoteDisplayConfig)},
		{"Memory Clock Spread", commands.Percentage(info.Feature.MemoryClkSSPercentage, 100)},
		{"Engine Clock Spread", commands.Percentage(info.Feature.EngineClkSSPercentage, 100)},
	})
	t.Render()
}

func printSpreadSpectrum(p *atom.Parser) {
	t := commands.NewTable("Spread spectrum", "Signal", "#", "Target Clock", "Spread", "Rate", "Mode", "Step", "Delay", "Ref Div")
	for _, signal := range atom.Signals() {
		n := p.SSEntryNumber(signal)
		for i := uint32(0); i < n; i++ {
			ss, err := p.SpreadSpectrumInfo(signal, i)
			if err != nil {
				t.AppendRow(table.Row{commands.SignalName(signal), i, commands.ErrorString(err)})
				continue
			}
			row := table.Row{
				commands.SignalName(signal),
				i,
				commands.Frequency(ss.TargetClockRange),
				commands.Percentage(ss.Percentage, ss.Divider),
				fmt.Sprintf("%d Hz", ss.Range),
				mode(ss.Type),
			}
			if ss.Type.StepAndDelayInfo {
				row = append(row, ss.StepAndDelay.Step, ss.StepAndDelay.Delay, ss.StepAndDelay.RecommendedRefDiv)
			}
			t.AppendRow(row)
		}
	}
	t.Render()
}

func mode(t atom.SpreadSpectrumType) string {
	s := "down"
	if t.CenterMode {
		s = "center"
	}
	if t.External {
		s += ", external"
	}
	return s
}
