// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package status

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/embeddedgo/fpga/fpgaflash/internal/manifest"
	"github.com/embeddedgo/fpga/fpgaflash/internal/program"
	"github.com/embeddedgo/fpga/fpgaflash/internal/util"
)

const Descr = "read the manifests of all slots back from the flash"

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	config := fs.String("config", "", "read the flash memory map from the YAML `file`")
	verbose := fs.Bool("v", false, "print the programmer output")
	fs.Parse(args)
	if fs.NArg() != 0 {
		fs.Usage()
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := util.Geometry(*config)
	l := program.NewLoader()
	if !*verbose {
		l.Stdout, l.Stderr = nil, nil
	}
	infos, err := program.ReadManifests(ctx, l, g,
		program.WithProgress(func(pr program.Progress) {
			util.Progress("read: ", pr.Done, pr.Total, 1, "manifests")
		}),
	)
	if infos == nil {
		util.FatalErr("status", err)
	}
	for _, info := range infos {
		Print(os.Stdout, info)
	}
	util.FatalErr("status", err)
}

// Print prints a one line description of the slot state.
func Print(w io.Writer, info *manifest.Info) {
	fmt.Fprintf(w, "%-10s  %#08x  ", info.Slot, info.Addr)
	switch {
	case info.IsEmpty():
		fmt.Fprintln(w, "empty")
	case info.IsValid():
		m := info.Manifest
		fmt.Fprintf(w, "%s (hw_rev=%d)", m.Name, m.HWRev)
		if m.Tag != "" {
			fmt.Fprintf(w, " [%s]", m.Tag)
		}
		if s := m.Brief(); s != "" {
			fmt.Fprintf(w, ": %s", s)
		}
		fmt.Fprintln(w)
	default:
		raw := info.Raw
		if len(raw) > 32 {
			raw = raw[:32]
		}
		fmt.Fprintf(w, "invalid: %v\n", info.Err)
		if len(raw) != 0 {
			fmt.Fprintf(w, "%12s% x\n", "", raw)
		}
	}
}
