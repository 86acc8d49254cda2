// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objects

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/vbios/cmds/vbiostool/commands"
	"github.com/linuxboot/vbios/pkg/atom"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.ROMOptions
	Compact bool `short:"c" long:"compact" description:"drop the empty connector rows before printing"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "prints the connector, encoder and generic objects of the display object graph"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return `Without --compact the object tables are printed as stored in the image,
MXM placeholder connectors included. Use "patch" to resolve the placeholders
through the output personality module.`
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
	p := v.Parser
	if cmd.Compact {
		p.PostInit()
	}

	if err := printConnectors(p); err != nil {
		return err
	}
	if err := printEncoders(p); err != nil {
		return err
	}
	return printGeneric(p)
}

func joinIDs(ids []atom.ObjectID, err error) string {
	if err != nil {
		return commands.ErrorString(err)
	}
	if len(ids) == 0 {
		return "-"
	}
	s := make([]string, 0, len(ids))
	for _, id := range ids {
		s = append(s, id.String())
	}
	return strings.Join(s, ", ")
}

func i2cString(p *atom.Parser, id atom.ObjectID) string {
	info, err := p.I2CInfo(id)
	if errors.Is(err, atom.ErrNoRecord) {
		return "-"
	}
	if err != nil {
		return commands.ErrorString(err)
	}
	return fmt.Sprintf("line %d addr 0x%02X engine %d hw %v", info.Line, info.SlaveAddress, info.EngineID, info.HWAssist)
}

func hpdString(p *atom.Parser, id atom.ObjectID) string {
	hpd, err := p.HPDInfo(id)
	if errors.Is(err, atom.ErrNoRecord) {
		return "-"
	}
	if err != nil {
		return commands.ErrorString(err)
	}
	return fmt.Sprintf("gpio %d active %d", hpd.GPIOID, hpd.Active)
}

func deviceTagsString(p *atom.Parser, id atom.ObjectID) string {
	var tags []string
	for i := uint8(0); ; i++ {
		tag, err := p.DeviceTag(id, i)
		if err != nil {
			break
		}
		tags = append(tags, fmt.Sprintf("%s (acpi 0x%X)", tag.Device, tag.ACPIDevice))
	}
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}

func printConnectors(p *atom.Parser) error {
	n, err := p.ConnectorCount()
	if err != nil {
		return fmt.Errorf("unable to count the connectors: %w", err)
	}
	t := commands.NewTable("Connectors", "#", "Object", "BIOS ID", "Sources", "I2C", "HPD", "Devices")
	for i := uint8(0); i < n; i++ {
		id, err := p.ConnectorID(i)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{
			i,
			id,
			fmt.Sprintf("0x%04X", id.BIOS()),
			joinIDs(p.SourceObjects(id)),
			i2cString(p, id),
			hpdString(p, id),
			deviceTagsString(p, id),
		})
	}
	t.Render()
	return nil
}

func printEncoders(p *atom.Parser) error {
	n, err := p.EncoderCount()
	if err != nil {
		return fmt.Errorf("unable to count the encoders: %w", err)
	}
	t := commands.NewTable("Encoders", "#", "Object", "BIOS ID", "Destinations", "Capabilities")
	for i := uint8(0); i < n; i++ {
		id, err := p.EncoderID(i)
		if err != nil {
			return err
		}
		caps := "-"
		if c, err := p.EncoderCapInfo(id); err == nil {
			caps = fmt.Sprintf("MST %v HBR2 %v HBR3 %v HDMI6G %v", c.MSTEnabled, c.DPHBR2Enabled, c.DPHBR3Enabled, c.HDMI6GEnabled)
		} else if !errors.Is(err, atom.ErrNoRecord) {
			caps = commands.ErrorString(err)
		}
		t.AppendRow(table.Row{i, id, fmt.Sprintf("0x%04X", id.BIOS()), joinIDs(p.DestinationObjects(id)), caps})
	}
	t.Render()
	return nil
}

func printGeneric(p *atom.Parser) error {
	ids, err := p.Objects(atom.ObjectTypeGeneric)
	if err != nil {
		return fmt.Errorf("unable to list the generic objects: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	t := commands.NewTable("Generic objects", "Object", "BIOS ID", "I2C")
	for _, id := range ids {
		t.AppendRow(table.Row{id, fmt.Sprintf("0x%04X", id.BIOS()), i2cString(p, id)})
	}
	t.Render()
	return nil
}
