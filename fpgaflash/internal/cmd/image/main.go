// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/marcinbor85/gohex"

	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
	"github.com/embeddedgo/fpga/fpgaflash/internal/layout"
	"github.com/embeddedgo/fpga/fpgaflash/internal/util"
)

const Descr = "write the composed flash content to a binary or Intel HEX file"

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS] ARCHIVE OUT\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	var slot util.SlotFlag
	fs.Var(&slot, "slot", "target `SLOT` number or bootloader")
	hwRev := fs.Uint("hwrev", uint(layout.AnyHWRev), "hardware revision of the board (0 matches any)")
	config := fs.String("config", "", "read the flash memory map from the YAML `file`")
	eraseOpts := fs.Bool("erase-options", false, "erase the option storage regions")
	format := fs.String("format", "bin", "output `format`: bin or hex")
	fs.Parse(args)
	if fs.NArg() != 2 {
		fs.Usage()
		os.Exit(1)
	}
	if *format != "bin" && *format != "hex" {
		util.Fatal("unknown format: %s", *format)
	}
	g := util.Geometry(*config)
	b, err := util.ReadBundle(fs.Arg(0))
	util.FatalErr("", err)
	if !slot.IsSet {
		if hasXIP, _ := layout.CheckXIP(b.Manifest); !hasXIP {
			util.Fatal("the -slot option is required for bundles without XIP firmware")
		}
		slot.Slot, slot.IsSet = flashmap.Bootloader, true
	}
	c := &layout.Composer{Geometry: g, EraseOptionStorage: *eraseOpts}
	p, err := c.Compose(b.Manifest, b.Files, slot.Slot, uint32(*hwRev))
	util.FatalErr("compose", err)

	w, err := os.Create(fs.Arg(1))
	util.FatalErr("", err)
	defer w.Close()
	if *format == "hex" {
		err = WriteHex(w, p.Ops)
		util.FatalErr("dumpintelhex", err)
	} else {
		_, err = util.PlanSections(p.Ops).Flatten(w, g.EraseFill)
		util.FatalErr("flatten", err)
	}
	util.FatalErr("", w.Close())
}

// WriteHex writes the data of the operations in the Intel HEX format.
func WriteHex(w io.Writer, ops []layout.Op) error {
	ss := util.PlanSections(ops)
	ss.SortByAddr()
	mem := gohex.NewMemory()
	for _, s := range ss {
		if err := mem.AddBinary(uint32(s.Addr), s.Data); err != nil {
			return err
		}
	}
	return mem.DumpIntelHex(w, 16)
}
