// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// vbiosdump prints the ATOM data table directory of a video BIOS dump and
// optionally the raw bytes of some tables.
//
// Synopsis:
//
//	vbiosdump [-j] [-t TABLE]... ROM_FILE
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	flag "github.com/spf13/pflag"

	"github.com/linuxboot/vbios/pkg/atom"
	vbioslog "github.com/linuxboot/vbios/pkg/log"
	"github.com/linuxboot/vbios/pkg/rom"
)

var (
	jsonOutput = flag.BoolP("json", "j", false, "print the directory as JSON")
	tables     = flag.StringSliceP("table", "t", nil, "hex dump the named data table, may be repeated")
)

// entry is a present data table.
type entry struct {
	Slot     uint8
	Name     string
	Offset   uint16
	Revision atom.Revision
	Size     uint16
}

func directory(img *atom.Image, dir *atom.Directory) []entry {
	var entries []entry
	for _, t := range dir.Tables() {
		offset := dir.Offset(t)
		size, _ := img.U16(uint64(offset))
		entries = append(entries, entry{
			Slot:     uint8(t),
			Name:     t.String(),
			Offset:   offset,
			Revision: img.RevisionAt(uint64(offset)),
			Size:     size,
		})
	}
	return entries
}

func lookupTable(name string) (atom.Table, bool) {
	for _, t := range atom.AllTables() {
		if strings.EqualFold(t.String(), name) {
			return t, true
		}
	}
	return 0, false
}

func main() {
	flag.Parse()

	a := flag.Args()
	if len(a) != 1 {
		log.Fatal("Usage: vbiosdump [-j] [-t TABLE]... <rom-file>")
	}

	data, err := os.ReadFile(a[0])
	if err != nil {
		log.Fatal(err)
	}
	r, err := rom.Load(data, vbioslog.DefaultLogger)
	if err != nil {
		log.Fatal(err)
	}
	video, err := r.VideoImage()
	if err != nil {
		log.Fatal(err)
	}
	img, err := atom.NewImage(video.Data)
	if err != nil {
		log.Fatal(err)
	}
	dir, err := atom.ReadDirectory(img, vbioslog.DefaultLogger)
	if err != nil {
		log.Fatal(err)
	}

	entries := directory(img, dir)
	if *jsonOutput {
		j, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s\n", string(j))
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("ATOM data tables at image offset 0x%X", video.Offset)
		t.AppendHeader(table.Row{"Slot", "Table", "Offset", "Revision", "Size"})
		for _, e := range entries {
			t.AppendRow(table.Row{e.Slot, e.Name, fmt.Sprintf("0x%04X", e.Offset), e.Revision, e.Size})
		}
		t.Render()
	}

	for _, name := range *tables {
		tbl, ok := lookupTable(name)
		if !ok {
			log.Fatalf("unknown table %q", name)
		}
		offset := uint64(dir.Offset(tbl))
		if offset == 0 {
			log.Fatalf("table %s is absent", tbl)
		}
		size, err := img.U16(offset)
		if err != nil {
			log.Fatal(err)
		}
		b, err := img.Slice(offset, uint64(size))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s at 0x%04X:\n%s", tbl, offset, hex.Dump(b))
	}
}
