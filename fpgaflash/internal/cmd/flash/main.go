// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/embeddedgo/fpga/fpgaflash/internal/cmd/scan"
	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
	"github.com/embeddedgo/fpga/fpgaflash/internal/layout"
	"github.com/embeddedgo/fpga/fpgaflash/internal/program"
	"github.com/embeddedgo/fpga/fpgaflash/internal/util"
)

const Descr = "flash a bitstream archive to a slot of the board"

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS] ARCHIVE\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	var slot util.SlotFlag
	fs.Var(&slot, "slot", "target `SLOT` number or bootloader (XIP bundles only)")
	hwRev := fs.Int("hwrev", -1, "hardware revision of the board, scan for it if negative")
	busAddr := fs.String("usb", "", "select the debugger by `BUS:ADDR`")
	config := fs.String("config", "", "read the flash memory map from the YAML `file`")
	eraseOpts := fs.Bool("erase-options", false, "erase the option storage regions")
	dumpManifest := fs.Bool("dump-manifest", false, "print the manifest before flashing it")
	noConfirm := fs.Bool("noconfirm", false, "do not ask for confirmation")
	force := fs.Bool("force", false, "allow XIP bundles in user slots and vice versa")
	quiet := fs.Bool("quiet", false, "do not print the programmer output")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := util.Geometry(*config)
	b, err := util.ReadBundle(fs.Arg(0))
	util.FatalErr("", err)
	hasXIP, xipAddr := layout.CheckXIP(b.Manifest)
	if !slot.IsSet {
		if !hasXIP {
			util.Fatal("the -slot option is required for bundles without XIP firmware")
		}
		slot.Slot, slot.IsSet = flashmap.Bootloader, true
	}
	if !*force {
		util.FatalErr("", layout.CheckSlotKind(hasXIP, slot.Slot))
	}
	if hasXIP && slot.Slot != flashmap.Bootloader {
		util.Warn("warning: XIP firmware at %#x is written outside of %s", xipAddr, slot.Slot)
	}

	l := program.NewLoader()
	if *quiet {
		l.Stdout = nil
	}
	rev := uint32(*hwRev)
	if *hwRev < 0 {
		rev = scan.HWRev(ctx, *busAddr, l)
	}
	c := &layout.Composer{Geometry: g, EraseOptionStorage: *eraseOpts}
	p, err := c.Compose(b.Manifest, b.Files, slot.Slot, rev)
	util.FatalErr("compose", err)
	util.PrintPlan(os.Stdout, b, p, l, *dumpManifest)
	if !*noConfirm && !util.Confirm(os.Stdin, "\nProceed with flashing?") {
		util.Fatal("aborted")
	}
	err = program.Execute(ctx, l, p.Ops,
		program.WithOutput(os.Stderr),
		program.WithProgress(func(pr program.Progress) {
			util.Progress("flash: ", pr.Done, pr.Total, 1, "operations")
		}),
	)
	util.FatalErr("flash", err)
	fmt.Printf("%s installed in %s\n", b.Manifest.Name, slot.Slot)
}
