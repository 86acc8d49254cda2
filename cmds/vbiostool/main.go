// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// vbiostool inspects AMD ATOM video BIOS images and resolves the MXM
// connectors of an output personality module.
//
// The dump may be a raw expansion ROM or an LZ4, XZ, Zstandard or zlib
// compressed one.
//
// Synopsis:
//     vbiostool info -f ROM_FILE [-a]
//     vbiostool objects -f ROM_FILE [--compact]
//     vbiostool clocks -f ROM_FILE
//     vbiostool panel -f ROM_FILE
//     vbiostool integrated -f ROM_FILE
//     vbiostool gpio -f ROM_FILE [-p GPIO_ID]... [-t I2C_ID]...
//     vbiostool patch -f ROM_FILE [--eeprom EEPROM_FILE | --i2c-dev [--adapter N]] [--remap] [-o OUT_FILE]
//
// An example:
//     vbiostool info -f vbios.rom
//     vbiostool objects -f vbios.rom.zst
//     vbiostool patch -f vbios.rom --eeprom opm.bin -o patched.rom
//
// Description:
//     info:       Print the expansion ROM images, ATOM headers and data tables
//     objects:    Print the display object graph
//     clocks:     Print the firmware clock info and spread spectrum settings
//     panel:      Print the embedded panel timing
//     integrated: Print the integrated system info of an APU
//     gpio:       Print GPIO pins and I2C lines
//     patch:      Patch the connector table with the OPM connection info
package main

import (
	"github.com/jessevdk/go-flags"

	"github.com/linuxboot/vbios/cmds/vbiostool/commands"
	"github.com/linuxboot/vbios/cmds/vbiostool/commands/clocks"
	"github.com/linuxboot/vbios/cmds/vbiostool/commands/gpio"
	"github.com/linuxboot/vbios/cmds/vbiostool/commands/info"
	"github.com/linuxboot/vbios/cmds/vbiostool/commands/integrated"
	"github.com/linuxboot/vbios/cmds/vbiostool/commands/objects"
	"github.com/linuxboot/vbios/cmds/vbiostool/commands/panel"
	"github.com/linuxboot/vbios/cmds/vbiostool/commands/patch"
	"github.com/linuxboot/vbios/pkg/log"
)

var (
	knownCommands = map[string]commands.Command{
		"info":       &info.Command{},
		"objects":    &objects.Command{},
		"clocks":     &clocks.Command{},
		"panel":      &panel.Command{},
		"integrated": &integrated.Command{},
		"gpio":       &gpio.Command{},
		"patch":      &patch.Command{},
	}
)

func main() {
	flagsParser := flags.NewParser(nil, flags.Default)
	for commandName, command := range knownCommands {
		_, err := flagsParser.AddCommand(commandName, command.ShortDescription(), command.LongDescription(), command)
		if err != nil {
			panic(err)
		}
	}

	// parse arguments and execute the appropriate command
	if _, err := flagsParser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		log.Fatalf("%v", err)
	}
}
