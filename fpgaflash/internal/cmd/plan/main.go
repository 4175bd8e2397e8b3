// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plan

import (
	"flag"
	"fmt"
	"os"

	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
	"github.com/embeddedgo/fpga/fpgaflash/internal/layout"
	"github.com/embeddedgo/fpga/fpgaflash/internal/program"
	"github.com/embeddedgo/fpga/fpgaflash/internal/util"
)

const Descr = "print the flash layout and programmer commands for a bitstream archive"

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS] ARCHIVE\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	var slot util.SlotFlag
	fs.Var(&slot, "slot", "target `SLOT` number or bootloader")
	hwRev := fs.Uint("hwrev", uint(layout.AnyHWRev), "hardware revision of the board (0 matches any)")
	config := fs.String("config", "", "read the flash memory map from the YAML `file`")
	eraseOpts := fs.Bool("erase-options", false, "erase the option storage regions")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	g := util.Geometry(*config)
	b, err := util.ReadBundle(fs.Arg(0))
	util.FatalErr("", err)
	if !slot.IsSet {
		hasXIP, _ := layout.CheckXIP(b.Manifest)
		if !hasXIP {
			util.Fatal("the -slot option is required for bundles without XIP firmware")
		}
		slot.Slot, slot.IsSet = flashmap.Bootloader, true
	}
	c := &layout.Composer{Geometry: g, EraseOptionStorage: *eraseOpts}
	p, err := c.Compose(b.Manifest, b.Files, slot.Slot, uint32(*hwRev))
	util.FatalErr("compose", err)
	util.PrintPlan(os.Stdout, b, p, program.NewLoader(), true)
}
