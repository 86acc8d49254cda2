// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package info

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/vbios/cmds/vbiostool/commands"
	"github.com/linuxboot/vbios/pkg/atom"
	"github.com/linuxboot/vbios/pkg/rom"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.ROMOptions
	AllTables bool `short:"a" long:"all-tables" description:"list absent data tables too"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "prints the expansion ROM images, the ATOM headers and the data table directory"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return ""
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if err := commands.NoExtraArgs(args); err != nil {
		return err
	}
	v, err := cmd.Open()
	if err != nil {
		return err
	}

	printImages(v.ROM, v.Image)
	printHeaders(v)
	printDirectory(v.Parser, cmd.AllTables)
	return nil
}

func printImages(r *rom.ROM, video *rom.Image) {
	title := "Expansion ROM images"
	if r.Compression != "" {
		title += fmt.Sprintf(" (%s compressed)", r.Compression)
	}
	t := commands.NewTable(title, "#", "Offset", "Size", "Vendor", "Device", "Code Type", "Class", "Video")
	for idx, img := range r.Images {
		row := table.Row{idx, fmt.Sprintf("0x%X", img.Offset), commands.Size(uint64(len(img.Data)))}
		if img.PCIR != nil {
			row = append(row,
				fmt.Sprintf("0x%04X", img.PCIR.VendorID),
				fmt.Sprintf("0x%04X", img.PCIR.DeviceID),
				img.PCIR.CodeType,
				fmt.Sprintf("0x%02X", img.PCIR.BaseClass()),
			)
		} else {
			row = append(row, "-", "-", "-", "-")
		}
		row = append(row, img == video)
		t.AppendRow(row)
	}
	t.Render()
}

func printHeaders(v *commands.VBIOS) {
	p := v.Parser
	dir := p.Directory()

	message, err := rom.BootMessage(p.Image(), dir)
	if err != nil {
		message = commands.ErrorString(err)
	}

	t := commands.NewProperties("ATOM headers")
	t.AppendRows([]table.Row{
		{"Image Size", commands.Size(p.Image().Size())},
		{"ROM Header Offset", fmt.Sprintf("0x%04X", dir.ROMHeaderOffset)},
		{"ROM Header Revision", p.ROMHeaderRevision()},
		{"Subsystem", fmt.Sprintf("0x%04X:0x%04X", dir.ROMHeader.SubsystemVendorID, dir.ROMHeader.SubsystemID)},
		{"Master Data Table Revision", dir.MasterRevision},
		{"Object Header Revision", p.ObjectHeaderRevision()},
		{"Device Support", p.DeviceSupport()},
		{"Boot Message", message},
	})
	t.Render()
}

func printDirectory(p *atom.Parser, all bool) {
	img := p.Image()
	dir := p.Directory()

	tables := dir.Tables()
	if all {
		tables = atom.AllTables()
	}

	t := commands.NewTable("Data tables", "Slot", "Table", "Offset", "Revision", "Size")
	for _, tbl := range tables {
		offset := uint64(dir.Offset(tbl))
		if offset == 0 {
			t.AppendRow(table.Row{uint8(tbl), commands.Words(tbl.String()), "-", "-", "-"})
			continue
		}
		size := "-"
		if n, err := img.U16(offset); err == nil {
			size = commands.Size(uint64(n))
		}
		t.AppendRow(table.Row{uint8(tbl), commands.Words(tbl.String()), fmt.Sprintf("0x%04X", offset), img.RevisionAt(offset), size})
	}
	t.Render()
}
