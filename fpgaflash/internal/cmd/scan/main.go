// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scan

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/embeddedgo/fpga/fpgaflash/internal/probe"
	"github.com/embeddedgo/fpga/fpgaflash/internal/program"
	"github.com/embeddedgo/fpga/fpgaflash/internal/util"
)

const Descr = "find the debugger and print the hardware revision of the board"

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	busAddr := fs.String("usb", "", "select the USB device by `BUS:ADDR`")
	useLoader := fs.Bool(
		"openfpgaloader", false,
		"scan using openFPGALoader --scan-usb instead of libusb",
	)
	fs.Parse(args)
	if fs.NArg() != 0 {
		fs.Usage()
		os.Exit(1)
	}
	var (
		dev *probe.Device
		err error
	)
	if *useLoader {
		dev, err = Loader(context.Background(), program.NewLoader())
	} else {
		dev, err = probe.Find(*busAddr)
	}
	util.FatalErr("scan", err)
	fmt.Printf("Found debugger on bus %d, address %d\n", dev.Bus, dev.Addr)
	fmt.Printf("  product: %s\n", dev.Product)
	fmt.Printf("  serial:  %s\n", dev.Serial)
	fmt.Printf("  hw_rev:  %d\n", dev.HWRev)
}

// Loader finds the debugger by parsing the USB scan of openFPGALoader.
func Loader(ctx context.Context, l *program.Loader) (*probe.Device, error) {
	out, err := l.ScanUSB(ctx)
	if err != nil {
		return nil, err
	}
	return probe.ParseScan(out)
}

// HWRev returns the hardware revision of the connected board. It tries
// libusb first and falls back to openFPGALoader.
func HWRev(ctx context.Context, busAddr string, l *program.Loader) uint32 {
	dev, err := probe.Find(busAddr)
	if err != nil {
		util.Warn("scan: %v, trying %s", err, l.Path)
		dev, err = Loader(ctx, l)
		util.FatalErr("scan", err)
	}
	util.Warn("Found %s", dev)
	return dev.HWRev
}
