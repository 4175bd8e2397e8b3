// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout assigns concrete flash addresses to the regions of a
// bitstream bundle and turns the result into an ordered list of flash
// program operations.
//
// Everything here is a pure function of its arguments. Nothing is read from
// or written to the hardware.
package layout

import (
	"fmt"
	"slices"
	"strings"

	"github.com/embeddedgo/fpga/fpgaflash/internal/archive"
	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
	"github.com/embeddedgo/fpga/fpgaflash/internal/manifest"
)

// AnyHWRev is the hardware revision compatible with every other one.
const AnyHWRev uint32 = 0

// ValidateHardware checks that a bundle built for the bundle hardware
// revision may be flashed to the connected hardware.
func ValidateHardware(connected, bundle uint32) error {
	if connected == bundle || connected == AnyHWRev || bundle == AnyHWRev {
		return nil
	}
	return &HardwareMismatchError{Connected: connected, Bundle: bundle}
}

// CheckXIP reports whether the bundle contains execute-in-place firmware and
// the fixed flash offset of that firmware.
func CheckXIP(m *manifest.Manifest) (hasXIP bool, offset uint32) {
	_, offset, hasXIP = m.XIP()
	return
}

// CheckSlotKind checks that a bundle goes to the right kind of slot: bundles
// with XIP firmware (bootloaders) to the bootloader, all others to user
// slots.
func CheckSlotKind(hasXIP bool, slot flashmap.Slot) error {
	switch {
	case hasXIP && slot != flashmap.Bootloader:
		return fmt.Errorf("%w: XIP firmware bundles must be flashed to the bootloader, not %s", ErrSlotKind, slot)
	case !hasXIP && slot == flashmap.Bootloader:
		return fmt.Errorf("%w: bundles without XIP firmware must be flashed to a user slot", ErrSlotKind)
	}
	return nil
}

type FileType string

const (
	FileRaw FileType = "raw"
	FileBit FileType = "bit"
)

// Op is a single program command for the flash programmer.
type Op struct {
	Filename string
	Offset   uint32
	FileType FileType

	// SkipReset is set if the device must not be reset after this operation
	// because more operations of the same session follow.
	SkipReset bool

	// Data may share memory with the files passed to Compose.
	Data []byte
}

// Region is a region with its final flash address.
type Region struct {
	Name        string
	Type        manifest.RegionType
	Addr        uint32
	Size        uint32
	AlignedSize uint32
	PSRAMDst    *uint32
}

// End returns the end address (exclusive) of the aligned region.
func (r Region) End() uint64 {
	return uint64(r.Addr) + uint64(r.AlignedSize)
}

func (r Region) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s):\n", r.Name, r.Type)
	fmt.Fprintf(&sb, "    start:     %#x\n", r.Addr)
	fmt.Fprintf(&sb, "    start+sz:  %#x\n", uint64(r.Addr)+uint64(r.Size))
	fmt.Fprintf(&sb, "    end:       %#x", r.End()-1)
	if r.PSRAMDst != nil {
		fmt.Fprintf(&sb, "\n    psram_dst: %#x (copied by bootloader before bitstream starts)", *r.PSRAMDst)
	}
	return sb.String()
}

// Plan is the result of Compose.
type Plan struct {
	Slot flashmap.Slot

	// Ops must be executed in order. The manifest block is written last.
	Ops []Op

	// Regions are sorted by address.
	Regions []Region

	// Manifest is the input manifest with the concrete addresses and sizes
	// filled in. It is the one written to the flash.
	Manifest *manifest.Manifest

	HasXIP  bool
	XIPAddr uint32
}

// Composer lays out bundles according to the memory map.
type Composer struct {
	Geometry *flashmap.Geometry

	// EraseOptionStorage enables erasing the option storage regions.
	// Otherwise they are only assigned addresses.
	EraseOptionStorage bool
}

type placed struct {
	region *manifest.Region
	addr   uint32
	size   uint32
}

// Compose validates the bundle described by m and files against the
// connected hardware revision hwRev and lays it out in the target slot.
//
// Regions are placed in the manifest order. XIP firmware goes to its fixed
// address. Manifest regions go to the manifest address of the slot. All other
// regions are packed from the base of the slot, each one starting at the
// aligned end of the previous one. The returned plan writes the data regions
// in the manifest order followed by the manifest block.
//
// The manifest block window is reserved. When the manifest address of the
// slot lies inside the slot, packed regions must end at or before it, so a
// bundle whose aligned size fits the slot but runs into the window fails with
// a SlotOverflowError instead of overwriting the manifest.
//
// On error no plan is returned.
func (c *Composer) Compose(m *manifest.Manifest, files map[string][]byte, slot flashmap.Slot, hwRev uint32) (*Plan, error) {
	if err := ValidateHardware(hwRev, m.HWRev); err != nil {
		return nil, err
	}
	g := c.Geometry
	if err := g.CheckSlot(slot); err != nil {
		return nil, err
	}
	hasXIP, xipAddr := CheckXIP(m)
	for _, r := range m.Regions {
		if !needsFile(&r) {
			continue
		}
		if _, ok := files[r.Filename]; !ok {
			return nil, &MissingFileError{r.Filename}
		}
	}

	um := m.Clone()
	base := uint64(g.Base(slot))
	slotEnd := base + uint64(g.SlotSize)
	manifestAddr := g.ManifestAddr(slot)
	limit := slotEnd
	if ma := uint64(manifestAddr); ma > base && ma < limit {
		limit = ma
	}
	var (
		running uint64
		ps      []placed
	)
	for i := range um.Regions {
		r := &um.Regions[i]
		var addr, size uint64
		switch r.Placement.Kind {
		case manifest.ManifestBlock:
			r.SPIFlashSrc = ptr(manifestAddr)
			r.Size = g.ManifestSize
			continue
		case manifest.FixedAbsolute:
			addr = uint64(r.Placement.Addr)
			size = uint64(len(files[r.Filename]))
			if end := addr + g.Align(size); end > 1<<32 {
				return nil, &SlotOverflowError{slot, r.Filename, end, 1 << 32}
			}
		default:
			if r.Type == manifest.OptionStorage {
				size = uint64(r.Size)
				if size == 0 {
					return nil, fmt.Errorf("layout: %w: option storage %q has no size", manifest.ErrInvalid, r.Filename)
				}
			} else {
				size = uint64(len(files[r.Filename]))
			}
			aligned := g.Align(size)
			addr = base + running
			end := addr + aligned
			if running+aligned > uint64(g.SlotSize) {
				return nil, &SlotOverflowError{slot, r.Filename, end, slotEnd}
			}
			if end > limit {
				return nil, &SlotOverflowError{slot, r.Filename, end, limit}
			}
			running += aligned
		}
		r.SPIFlashSrc = ptr(uint32(addr))
		r.Size = uint32(size)
		ps = append(ps, placed{r, uint32(addr), uint32(size)})
	}

	regions := make([]Region, 0, len(ps)+1)
	for _, p := range ps {
		regions = append(regions, Region{
			Name:        p.region.Filename,
			Type:        p.region.Type,
			Addr:        p.addr,
			Size:        p.size,
			AlignedSize: uint32(g.Align(uint64(p.size))),
			PSRAMDst:    p.region.PSRAMDst,
		})
	}
	regions = append(regions, Region{
		Name:        archive.ManifestName,
		Type:        manifest.ManifestRegion,
		Addr:        manifestAddr,
		Size:        g.ManifestSize,
		AlignedSize: uint32(g.Align(uint64(g.ManifestSize))),
	})
	slices.SortStableFunc(regions, func(a, b Region) int {
		switch {
		case a.Addr < b.Addr:
			return -1
		case a.Addr > b.Addr:
			return 1
		}
		return 0
	})
	for i := 1; i < len(regions); i++ {
		if regions[i-1].End() > uint64(regions[i].Addr) {
			return nil, &OverlapError{regions[i-1], regions[i]}
		}
	}

	block, err := manifest.Block(um, int(g.ManifestSize), g.EraseFill)
	if err != nil {
		return nil, err
	}
	ops := make([]Op, 0, len(ps)+1)
	for _, p := range ps {
		r := p.region
		if r.Type == manifest.OptionStorage {
			if !c.EraseOptionStorage {
				continue
			}
			ops = append(ops, Op{
				Filename: r.Filename,
				Offset:   p.addr,
				FileType: FileRaw,
				Data:     filled(int(g.Align(uint64(p.size))), g.EraseFill),
			})
			continue
		}
		ops = append(ops, Op{
			Filename: r.Filename,
			Offset:   p.addr,
			FileType: fileType(r),
			Data:     files[r.Filename],
		})
	}
	ops = append(ops, Op{
		Filename: archive.ManifestName,
		Offset:   manifestAddr,
		FileType: FileRaw,
		Data:     block,
	})
	for i := range ops {
		ops[i].SkipReset = i < len(ops)-1
	}
	return &Plan{
		Slot:     slot,
		Ops:      ops,
		Regions:  regions,
		Manifest: um,
		HasXIP:   hasXIP,
		XIPAddr:  xipAddr,
	}, nil
}

func needsFile(r *manifest.Region) bool {
	return r.Placement.Kind != manifest.ManifestBlock && r.Type != manifest.OptionStorage
}

func fileType(r *manifest.Region) FileType {
	if r.Type == manifest.Bitstream && strings.HasSuffix(r.Filename, ".bit") {
		return FileBit
	}
	return FileRaw
}

func filled(n int, b byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = b
	}
	return p
}

func ptr(v uint32) *uint32 {
	return &v
}
