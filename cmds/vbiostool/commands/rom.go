// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"os"

	"github.com/linuxboot/vbios/pkg/atom"
	"github.com/linuxboot/vbios/pkg/log"
	"github.com/linuxboot/vbios/pkg/rom"
)

// ROMOptions are the options shared by every verb which reads a dump.
type ROMOptions struct {
	ROMPath string `short:"f" long:"rom" description:"path to the video BIOS dump, optionally compressed" required:"true"`
	Verbose bool   `short:"v" long:"verbose" description:"print informational messages too, such as every I2C transfer"`
}

// VBIOS is a loaded dump together with the parser of its video image.
type VBIOS struct {
	ROM    *rom.ROM
	Image  *rom.Image
	Parser *atom.Parser
}

// Logger returns the logger selected by the options. Warnings are always
// printed.
func (opts *ROMOptions) Logger() log.Logger {
	if opts.Verbose {
		return log.NewLevel(os.Stderr, log.LevelInfo)
	}
	return log.NewLevel(os.Stderr, log.LevelWarn)
}

// Open reads the dump and parses its video image. parserOpts are applied
// after the logger option.
func (opts *ROMOptions) Open(parserOpts ...atom.Option) (*VBIOS, error) {
	data, err := os.ReadFile(opts.ROMPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read the ROM file '%s': %w", opts.ROMPath, err)
	}
	logger := opts.Logger()

	r, err := rom.Load(data, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to load the ROM file '%s': %w", opts.ROMPath, err)
	}
	img, err := r.VideoImage()
	if err != nil {
		return nil, err
	}
	p, err := img.Parser(append([]atom.Option{atom.WithLogger(logger)}, parserOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse the video image at 0x%X: %w", img.Offset, err)
	}
	return &VBIOS{ROM: r, Image: img, Parser: p}, nil
}
