// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flashmap describes the SPI flash memory map of the device: where the
// slots are, how big they are, where each slot keeps its manifest and what
// the program/erase granularity is.
package flashmap

import (
	"errors"
	"fmt"
	"slices"
)

// Geometry holds the flash addressing constants. A Geometry is set up once,
// at startup, and must not be modified afterwards.
type Geometry struct {
	// SlotSize is the size of every user slot and of the bootloader area.
	SlotSize uint32 `yaml:"slot_size"`

	// SlotBase lists the base address of every user slot. Its length is the
	// number of user slots.
	SlotBase []uint32 `yaml:"slot_base"`

	// BootloaderBase is the address of the bootloader bitstream.
	BootloaderBase uint32 `yaml:"bootloader_base"`

	// BootloaderManifestAddr is the address of the bootloader manifest.
	BootloaderManifestAddr uint32 `yaml:"bootloader_manifest_addr"`

	// ManifestOffset is the offset of the manifest block from the slot base.
	ManifestOffset uint32 `yaml:"manifest_offset"`

	// ManifestSize is the size of the manifest block.
	ManifestSize uint32 `yaml:"manifest_size"`

	// Alignment is the program/erase granularity. Must be a power of two.
	Alignment uint32 `yaml:"alignment"`

	// EraseFill is the value of an erased flash byte. It is used to pad
	// manifest blocks and to erase option storage.
	EraseFill byte `yaml:"erase_fill"`

	// EmptyFills lists the byte values that, repeated over a whole manifest
	// block, mean that the slot is empty.
	EmptyFills []byte `yaml:"empty_fills"`
}

const (
	defaultSlots    = 8
	defaultSlotBase = 0x10_0000
	defaultSlotSize = 0x10_0000
)

// Default returns the memory map of the Tiliqua board.
func Default() Geometry {
	g := Geometry{
		SlotSize:               defaultSlotSize,
		SlotBase:               make([]uint32, defaultSlots),
		BootloaderBase:         0,
		BootloaderManifestAddr: 0xf_0000,
		ManifestOffset:         0xf_0000,
		ManifestSize:           512,
		Alignment:              0x1000,
		EraseFill:              0xff,
		EmptyFills:             []byte{0xff, 0x00},
	}
	for i := range g.SlotBase {
		g.SlotBase[i] = defaultSlotBase + uint32(i)*defaultSlotSize
	}
	return g
}

// Clone returns a deep copy of g.
func (g *Geometry) Clone() Geometry {
	c := *g
	c.SlotBase = slices.Clone(g.SlotBase)
	c.EmptyFills = slices.Clone(g.EmptyFills)
	return c
}

// NumSlots returns the number of user slots.
func (g *Geometry) NumSlots() int {
	return len(g.SlotBase)
}

// NumManifests returns the number of manifest locations: one per user slot
// plus the bootloader one.
func (g *Geometry) NumManifests() int {
	return len(g.SlotBase) + 1
}

// CheckSlot returns an error if s isn't the bootloader or a configured slot.
func (g *Geometry) CheckSlot(s Slot) error {
	if s == Bootloader || (s >= 0 && int(s) < len(g.SlotBase)) {
		return nil
	}
	return fmt.Errorf("slot must be between 0 and %d or %s", len(g.SlotBase)-1, Bootloader)
}

// Base returns the first address of the slot. It panics if s is not valid.
func (g *Geometry) Base(s Slot) uint32 {
	if s == Bootloader {
		return g.BootloaderBase
	}
	return g.SlotBase[s]
}

// ManifestAddr returns the address of the manifest block of the slot.
func (g *Geometry) ManifestAddr(s Slot) uint32 {
	if s == Bootloader {
		return g.BootloaderManifestAddr
	}
	return g.SlotBase[s] + g.ManifestOffset
}

// Align rounds n up to the multiple of the Alignment.
func (g *Geometry) Align(n uint64) uint64 {
	a := uint64(g.Alignment) - 1
	return (n + a) &^ a
}

// Validate checks the consistency of the memory map.
func (g *Geometry) Validate() error {
	a := g.Alignment
	switch {
	case a == 0 || a&(a-1) != 0:
		return fmt.Errorf("flashmap: alignment %#x is not a power of two", a)
	case g.SlotSize == 0 || g.SlotSize%a != 0:
		return fmt.Errorf("flashmap: slot size %#x is not a non-zero multiple of the alignment", g.SlotSize)
	case len(g.SlotBase) == 0:
		return errors.New("flashmap: no slots")
	case g.ManifestSize == 0:
		return errors.New("flashmap: zero manifest size")
	case g.ManifestOffset == 0 || g.ManifestOffset%a != 0:
		return fmt.Errorf("flashmap: manifest offset %#x is not a non-zero multiple of the alignment", g.ManifestOffset)
	case uint64(g.ManifestOffset)+uint64(g.ManifestSize) > uint64(g.SlotSize):
		return fmt.Errorf("flashmap: manifest block at %#x doesn't fit in the slot", g.ManifestOffset)
	case g.EraseFill != 0x00 && g.EraseFill != 0xff:
		return fmt.Errorf("flashmap: erase fill %#02x is neither 0x00 nor 0xff", g.EraseFill)
	case g.BootloaderManifestAddr%a != 0:
		return fmt.Errorf("flashmap: bootloader manifest address %#x is not aligned", g.BootloaderManifestAddr)
	}
	type area struct {
		name       string
		start, end uint64
	}
	areas := []area{{
		Bootloader.String(),
		uint64(g.BootloaderBase), uint64(g.BootloaderBase) + uint64(g.SlotSize),
	}}
	for i, base := range g.SlotBase {
		if base%a != 0 {
			return fmt.Errorf("flashmap: slot %d base %#x is not aligned", i, base)
		}
		areas = append(areas, area{
			Slot(i).String(),
			uint64(base), uint64(base) + uint64(g.SlotSize),
		})
	}
	for _, ar := range areas {
		if ar.end > 1<<32 {
			return fmt.Errorf("flashmap: %s exceeds the 32-bit address space", ar.name)
		}
	}
	slices.SortFunc(areas, func(x, y area) int {
		switch {
		case x.start < y.start:
			return -1
		case x.start > y.start:
			return 1
		}
		return 0
	})
	for i := 1; i < len(areas); i++ {
		if areas[i].start < areas[i-1].end {
			return fmt.Errorf("flashmap: %s overlaps %s", areas[i].name, areas[i-1].name)
		}
	}
	bm := uint64(g.BootloaderManifestAddr)
	for i, base := range g.SlotBase {
		if bm+uint64(g.ManifestSize) > uint64(base) && bm < uint64(base)+uint64(g.SlotSize) {
			return fmt.Errorf("flashmap: bootloader manifest lies in slot %d", i)
		}
	}
	return nil
}
