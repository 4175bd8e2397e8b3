// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/embeddedgo/fpga/fpgaflash/internal/archive"
	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
	"github.com/embeddedgo/fpga/fpgaflash/internal/layout"
	"github.com/embeddedgo/fpga/fpgaflash/internal/manifest"
	"github.com/embeddedgo/fpga/fpgaflash/internal/program"
)

// Bundle is a bitstream archive with its decoded manifest.
type Bundle struct {
	Path     string
	Manifest *manifest.Manifest
	Files    map[string][]byte
}

// ReadBundle reads the archive (plain or gzipped) and decodes its manifest.
func ReadBundle(path string) (*Bundle, error) {
	a, err := archive.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := a.Manifest()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Decode(text)
	if err != nil {
		return nil, err
	}
	return &Bundle{path, m, a.Files()}, nil
}

// Geometry loads the memory map from the YAML file or returns the default
// one if path is empty. It exits the program on error.
func Geometry(path string) *flashmap.Geometry {
	g, err := flashmap.LoadGeometry(path)
	FatalErr("config", err)
	return &g
}

// SlotFlag is a flag.Value that accepts a slot number or "bootloader".
type SlotFlag struct {
	Slot  flashmap.Slot
	IsSet bool
}

func (f *SlotFlag) String() string {
	if f == nil || !f.IsSet {
		return ""
	}
	return f.Slot.String()
}

func (f *SlotFlag) Set(s string) error {
	slot, err := flashmap.ParseSlot(s)
	if err != nil {
		return err
	}
	f.Slot, f.IsSet = slot, true
	return nil
}

// PrintPlan describes the plan in a human readable form.
func PrintPlan(w io.Writer, b *Bundle, p *layout.Plan, l *program.Loader, dumpManifest bool) {
	m := p.Manifest
	fmt.Fprintf(w, "Bundle:   %s\n", b.Path)
	fmt.Fprintf(w, "Name:     %s\n", m.Name)
	if m.Tag != "" {
		fmt.Fprintf(w, "Tag:      %s\n", m.Tag)
	}
	if s := m.Brief(); s != "" {
		fmt.Fprintf(w, "Brief:    %s\n", s)
	}
	if s := m.Video(); s != "" {
		fmt.Fprintf(w, "Video:    %s\n", s)
	}
	fmt.Fprintf(w, "Hardware: r%d\n", m.HWRev)
	fmt.Fprintf(w, "Target:   %s\n", p.Slot)
	if p.HasXIP {
		fmt.Fprintf(w, "XIP firmware at %#x\n", p.XIPAddr)
	}
	fmt.Fprintf(w, "\nRegions:\n")
	for _, r := range p.Regions {
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(r.String(), "\n", "\n  "))
	}
	if dumpManifest {
		text, err := json.MarshalIndent(m, "", "  ")
		FatalErr("manifest", err)
		fmt.Fprintf(w, "\nManifest:\n%s\n", text)
	}
	fmt.Fprintf(w, "\nCommands:\n")
	for _, op := range p.Ops {
		fmt.Fprintf(w, "  %s\n", l.CommandLine(op))
	}
}
