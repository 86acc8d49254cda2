// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/camelcase"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/linuxboot/vbios/pkg/atom"
)

var titleCaser = cases.Title(language.English)

// Words splits a table or field name like "VRAM_UsageByFirmware" into
// "VRAM Usage By Firmware". Parts holding digits are kept whole.
func Words(name string) string {
	var words []string
	for _, part := range strings.Split(name, "_") {
		switch {
		case part == "":
		case strings.ContainsAny(part, "0123456789"):
			words = append(words, part)
		default:
			words = append(words, camelcase.Split(part)...)
		}
	}
	return strings.Join(words, " ")
}

// SignalName returns the title-cased name of s.
func SignalName(s atom.Signal) string {
	return titleCaser.String(s.String())
}

// Frequency formats a frequency given in kHz.
func Frequency(kHz uint32) string {
	return humanize.SIWithDigits(float64(kHz)*1e3, 2, "Hz")
}

// Size formats a size in bytes.
func Size(n uint64) string {
	return humanize.IBytes(n)
}

// Percentage formats a spread spectrum percentage stored in 1/divider
// percent units.
func Percentage(value, divider uint32) string {
	if divider == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", float64(value)/float64(divider))
}

// NewTable returns a table writer printing to stdout.
func NewTable(title string, header ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	if len(header) != 0 {
		t.AppendHeader(table.Row(header))
	}
	return t
}

// NewProperties returns a two column table of named values.
func NewProperties(title string) table.Writer {
	return NewTable(title, "Property", "Value")
}

// ErrorString is printed in place of a value which could not be decoded.
func ErrorString(err error) string {
	return fmt.Sprintf("<%v>", err)
}
