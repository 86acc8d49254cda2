// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patch

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/vbios/cmds/vbiostool/commands"
	"github.com/linuxboot/vbios/pkg/atom"
	"github.com/linuxboot/vbios/pkg/i2c"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.ROMOptions
	EEPROMPath string `short:"e" long:"eeprom" description:"file holding a dump of the OPM EEPROM"`
	I2CDev     bool   `short:"d" long:"i2c-dev" description:"read the OPM EEPROM through /dev/i2c-N"`
	Adapter    *int   `long:"adapter" description:"i2c-dev adapter number, defaults to the I2C line of the OPM"`
	Remap      bool   `short:"r" long:"remap" description:"assign the first unused device of a group instead of the device named by the OPM"`
	OutputPath string `short:"o" long:"output" description:"write the patched video image to this file"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "resolves the MXM placeholder connectors through the output personality module"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return `The external display connection info is read from the OPM EEPROM, either
from a dump file (--eeprom) or from the I2C bus (--i2c-dev). Without either
the connector table is only compacted.

The image checksum is not updated.`
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if err := commands.NoExtraArgs(args); err != nil {
		return err
	}
	if cmd.EEPROMPath != "" && cmd.I2CDev {
		return commands.ErrArgs{Err: fmt.Errorf("--eeprom and --i2c-dev are mutually exclusive")}
	}
	if cmd.Adapter != nil && !cmd.I2CDev {
		return commands.ErrArgs{Err: fmt.Errorf("--adapter requires --i2c-dev")}
	}

	v, err := cmd.Open()
	if err != nil {
		return err
	}

	transport, err := cmd.transport(v.Parser)
	if err != nil {
		return err
	}
	opts := []atom.Option{atom.WithLogger(cmd.Logger()), atom.WithRemapDeviceTags(cmd.Remap)}
	if transport != nil {
		opts = append(opts, atom.WithTransport(transport))
	}
	p, err := v.Image.Parser(opts...)
	if err != nil {
		return fmt.Errorf("unable to parse the video image: %w", err)
	}
	p.PostInit()
	printReport(p.Report())

	if cmd.OutputPath != "" {
		if err := os.WriteFile(cmd.OutputPath, p.Image().Bytes(), 0o644); err != nil {
			return fmt.Errorf("unable to write the patched image to '%s': %w", cmd.OutputPath, err)
		}
	}
	return nil
}

// transport returns the transport selected by the options, nil if none is.
func (cmd *Command) transport(p *atom.Parser) (atom.Transport, error) {
	switch {
	case cmd.EEPROMPath != "":
		contents, err := os.ReadFile(cmd.EEPROMPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read the EEPROM file '%s': %w", cmd.EEPROMPath, err)
		}
		line, err := p.I2CInfo(atom.OPMObjectID)
		if err != nil {
			return nil, fmt.Errorf("unable to find the I2C line of %s: %w", atom.OPMObjectID, err)
		}
		bus := i2c.NewBus(cmd.Logger())
		bus.Attach(line.Line, line.SlaveAddress>>1, i2c.NewEEPROM(contents))
		return bus, nil
	case cmd.I2CDev:
		if cmd.Adapter == nil {
			return i2c.NewDevTransport(nil), nil
		}
		adapter := *cmd.Adapter
		return i2c.NewDevTransport(func(atom.I2CInfo) string {
			return fmt.Sprintf("/dev/i2c-%d", adapter)
		}), nil
	}
	return nil, nil
}

func printReport(report *atom.PatchReport) {
	transitions := make([]string, 0, len(report.Transitions))
	for _, s := range report.Transitions {
		transitions = append(transitions, s.String())
	}
	failure := "-"
	if report.Err != nil {
		failure = report.Err.Error()
	}
	modified := "-"
	if len(report.Modified) != 0 {
		modified = fmt.Sprintf("%s (%s)", report.Modified, commands.Size(report.Modified.Total()))
	}

	t := commands.NewProperties("Patch report")
	t.AppendRows([]table.Row{
		{"State", report.State},
		{"Transitions", strings.Join(transitions, " -> ")},
		{"MXM Connector Found", report.MXMConnectorFound},
		{"Null Entry Found", report.NullEntryFound},
		{"Connectors", fmt.Sprintf("%d -> %d", report.ConnectorsBefore, report.ConnectorsAfter)},
		{"Modified", modified},
		{"Failure", failure},
	})
	t.Render()

	if report.ConnectionInfo == nil {
		return
	}
	conn := report.ConnectionInfo.Decode()
	paths := commands.NewTable(fmt.Sprintf("OPM connection info (%s)", conn.GUID), "Path", "Device", "Connector", "Encoder", "AUX/DDC", "HPD")
	for i, path := range conn.Path {
		if path.DeviceConnectorID == (atom.ObjectID{}) {
			continue
		}
		paths.AppendRow(table.Row{i + 1, path.DeviceTag, path.DeviceConnectorID, path.ExtEncoderObjID, path.ExtAUXDDCLUTIndex, path.ExtHPDPinLUTIndex})
	}
	paths.Render()
}
