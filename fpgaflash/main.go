// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Fpgaflash lays out bitstream archives in the SPI flash of the board and
// programs them using openFPGALoader.
package main

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/embeddedgo/fpga/fpgaflash/internal/cmd/flash"
	"github.com/embeddedgo/fpga/fpgaflash/internal/cmd/image"
	"github.com/embeddedgo/fpga/fpgaflash/internal/cmd/plan"
	"github.com/embeddedgo/fpga/fpgaflash/internal/cmd/scan"
	"github.com/embeddedgo/fpga/fpgaflash/internal/cmd/status"
	"github.com/embeddedgo/fpga/fpgaflash/internal/program"
	"github.com/embeddedgo/fpga/fpgaflash/internal/util"
)

type tool struct {
	descr string
	main  func(cmd string, args []string)
}

var tools = map[string]tool{
	"flash":  {flash.Descr, flash.Main},
	"image":  {image.Descr, image.Main},
	"plan":   {plan.Descr, plan.Main},
	"scan":   {scan.Descr, scan.Main},
	"status": {status.Descr, status.Main},
}

func printToolList() {
	names := slices.Sorted(maps.Keys(tools))
	width := 0
	for _, k := range names {
		width = max(width, len(k))
	}
	uw := os.Stderr
	uw.WriteString("Usage:\n  fpgaflash COMMAND [ARGUMENTS]\n  fpgaflash help COMMAND\n\n")
	uw.WriteString("Available commands:\n")
	for _, name := range names {
		fmt.Fprintf(uw, "  %-*s  %s\n", width, name, tools[name].descr)
	}
	fmt.Fprintf(uw, "\nEnvironment:\n  %s  openFPGALoader executable\n", program.EnvLoader)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 || args[0] == "-h" || (args[0] == "help" && len(args) == 1) {
		printToolList()
		return
	}
	if args[0] == "help" {
		// Every command prints its usage for -h.
		args = []string{args[1], "-h"}
	}
	tool, ok := tools[args[0]]
	if !ok {
		util.Warn("unknown command: %s", args[0])
		printToolList()
		os.Exit(util.ExitInvalid)
	}
	tool.main(args[0], args[1:])
}
