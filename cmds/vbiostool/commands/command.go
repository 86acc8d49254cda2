// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package commands holds what the verbs of vbiostool share: the Command
// interface, the ROM loading options and the output helpers.
package commands

import (
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Command is a verb of vbiostool, e.g. "info" of "vbiostool info".
type Command interface {
	flags.Commander

	// ShortDescription is the one line summary shown in the command list.
	ShortDescription() string

	// LongDescription is the help text of the verb, may be empty.
	LongDescription() string
}

// ErrArgs means the command line of a verb is invalid.
type ErrArgs struct {
	Err error
}

func (err ErrArgs) Error() string {
	return fmt.Sprintf("invalid arguments: %v", err.Err)
}

func (err ErrArgs) Unwrap() error {
	return err.Err
}

// NoExtraArgs returns ErrArgs if a verb got positional arguments.
func NoExtraArgs(args []string) error {
	if len(args) != 0 {
		return ErrArgs{Err: fmt.Errorf("there are extra arguments: %q", args)}
	}
	return nil
}
