// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package panel

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
	return "prints the timing of the embedded panel"
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
	info, err := v.Parser.EmbeddedPanelInfo()
	if err != nil {
		return fmt.Errorf("unable to decode the embedded panel info: %w", err)
	}

	timing := info.Timing
	refresh := "-"
	if info.SupportedRefreshRate != 0 {
		refresh = fmt.Sprintf("%d Hz", info.SupportedRefreshRate)
	}
	t := commands.NewProperties(fmt.Sprintf("Embedded panel v%s", info.Revision))
	t.AppendRows([]table.Row{
		{"Pixel Clock", commands.Frequency(timing.PixelClock)},
		{"Resolution", fmt.Sprintf("%dx%d", timing.HorizontalAddressable, timing.VerticalAddressable)},
		{"Horizontal Blanking", timing.HorizontalBlankingTime},
		{"Horizontal Sync", fmt.Sprintf("offset %d width %d", timing.HorizontalSyncOffset, timing.HorizontalSyncWidth)},
		{"Vertical Blanking", timing.VerticalBlankingTime},
		{"Vertical Sync", fmt.Sprintf("offset %d width %d", timing.VerticalSyncOffset, timing.VerticalSyncWidth)},
		{"Border", fmt.Sprintf("%dx%d", timing.HorizontalBorder, timing.VerticalBorder)},
		{"Flags", misc(timing.Misc)},
		{"Spread Spectrum ID", info.SSID},
		{"Lowest Refresh Rate", refresh},
		{"DRR", info.DRREnabled},
	})
	t.Render()
	return nil
}

func misc(m atom.TimingMisc) string {
	flags := []struct {
		set  bool
		name string
	}{
		{m.HSyncPositive, "+hsync"},
		{m.VSyncPositive, "+vsync"},
		{m.Interlace, "interlace"},
		{m.DoubleClock, "dual-link"},
		{m.CompositeSync, "csync"},
		{m.HorizontalCutOff, "hcutoff"},
		{m.VerticalCutOff, "vcutoff"},
		{m.HReplicationBy2, "hrep2"},
		{m.VReplicationBy2, "vrep2"},
		{m.RGB888, "rgb888"},
		{m.Spatial, "spatial"},
		{m.Temporal, "temporal"},
		{m.APIEnabled, "api"},
	}
	s := fmt.Sprintf("grey %d", m.GreyLevel)
	for _, f := range flags {
		if f.set {
			s += " " + f.name
		}
	}
	return s
}
