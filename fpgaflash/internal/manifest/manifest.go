// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package manifest implements the bitstream manifest: the JSON document that
// travels with every bitstream archive and, with concrete flash addresses
// filled in, is stored next to the bitstream so the bootloader knows how to
// start it.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrInvalid is returned (wrapped) for unparsable manifests and manifests
// with missing or out of range fields.
var ErrInvalid = errors.New("invalid manifest")

func invalid(f string, args ...any) error {
	return fmt.Errorf("manifest: %w: "+f, append([]any{ErrInvalid}, args...)...)
}

// Magic is the default value of the magic field.
const Magic uint32 = 0xfeedbeef

// NoText marks an absent help string (brief or video).
const NoText = "<none>"

// Field limits imposed by the bootloader's fixed-size manifest parser.
const (
	NameMaxLen     = 32
	TagMaxLen      = 8
	RegionMaxN     = 5
	FilenameMaxLen = 16
	BriefMaxLen    = 64
	IOLabelMaxLen  = 20
	IOLeftN        = 8
	IORightN       = 6
)

type RegionType string

const (
	// Bitstream is loaded directly by the bootloader.
	Bitstream RegionType = "Bitstream"
	// XipFirmware executes in place from a fixed flash address.
	XipFirmware RegionType = "XipFirmware"
	// RamLoad is copied from flash to PSRAM by the bootloader.
	RamLoad RegionType = "RamLoad"
	// OptionStorage is flash space reserved for persistent settings.
	OptionStorage RegionType = "OptionStorage"
	// ManifestRegion describes the manifest block itself.
	ManifestRegion RegionType = "Manifest"
)

func (t RegionType) valid() bool {
	switch t {
	case Bitstream, XipFirmware, RamLoad, OptionStorage, ManifestRegion:
		return true
	}
	return false
}

// PlacementKind tells how the flash address of a region is determined.
type PlacementKind uint8

const (
	// SlotRelative regions are packed, in manifest order, from the base of
	// the target slot.
	SlotRelative PlacementKind = iota
	// BootloaderRelative regions belong to a bundle with XIP firmware. They
	// are packed like SlotRelative ones.
	BootloaderRelative
	// FixedAbsolute regions have an address independent of the slot.
	FixedAbsolute
	// ManifestBlock regions live at the manifest address of the slot.
	ManifestBlock
)

var placementStr = [...]string{
	SlotRelative:       "slot-relative",
	BootloaderRelative: "bootloader-relative",
	FixedAbsolute:      "fixed",
	ManifestBlock:      "manifest",
}

func (k PlacementKind) String() string {
	if int(k) < len(placementStr) {
		return placementStr[k]
	}
	return fmt.Sprintf("PlacementKind(%d)", int(k))
}

// Placement is resolved once, when the manifest is decoded.
type Placement struct {
	Kind PlacementKind
	Addr uint32 // valid for FixedAbsolute
}

// Region is one memory region of a bundle.
type Region struct {
	Filename    string     `json:"filename"`
	Type        RegionType `json:"region_type"`
	SPIFlashSrc *uint32    `json:"spiflash_src,omitempty"`
	PSRAMDst    *uint32    `json:"psram_dst,omitempty"`
	Size        uint32     `json:"size"`
	CRC         *uint32    `json:"crc,omitempty"`

	Placement Placement `json:"-"`
}

// Help is the short description shown by the bootloader before it starts
// the bitstream.
type Help struct {
	Brief   string   `json:"brief"`
	Video   string   `json:"video"`
	IOLeft  []string `json:"io_left"`
	IORight []string `json:"io_right"`
}

// PLLConfig configures the external PLL before the bitstream starts.
type PLLConfig struct {
	Clk0Hz         uint32   `json:"clk0_hz"`
	Clk1Hz         *uint32  `json:"clk1_hz,omitempty"`
	Clk1Inherit    bool     `json:"clk1_inherit"`
	SpreadSpectrum *float32 `json:"spread_spectrum,omitempty"`
}

// Manifest describes a bitstream bundle.
type Manifest struct {
	HWRev             uint32     `json:"hw_rev"`
	Name              string     `json:"name"`
	Tag               string     `json:"tag"`
	Regions           []Region   `json:"regions"`
	Help              *Help      `json:"help,omitempty"`
	ExternalPLLConfig *PLLConfig `json:"external_pll_config,omitempty"`
	Magic             uint32     `json:"magic"`
}

type wireRegion struct {
	Filename    *string    `json:"filename"`
	Type        RegionType `json:"region_type"`
	SPIFlashSrc *uint32    `json:"spiflash_src"`
	PSRAMDst    *uint32    `json:"psram_dst"`
	Size        uint32     `json:"size"`
	CRC         *uint32    `json:"crc"`
}

type wireManifest struct {
	HWRev             *uint32       `json:"hw_rev"`
	Name              *string       `json:"name"`
	Tag               string        `json:"tag"`
	Regions           *[]wireRegion `json:"regions"`
	Help              *Help         `json:"help"`
	ExternalPLLConfig *PLLConfig    `json:"external_pll_config"`
	Magic             *uint32       `json:"magic"`
	Brief             *string       `json:"brief"`
	Video             *string       `json:"video"`
}

// Decode parses the JSON manifest. The name, hw_rev and regions fields are
// required and every region must have a filename. Regions without
// region_type are bitstreams. The top-level brief and video fields are
// accepted as shorthands for the help ones.
func Decode(data []byte) (*Manifest, error) {
	var w wireManifest
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, invalid("%v", err)
	}
	switch {
	case w.Name == nil:
		return nil, invalid("missing name")
	case w.HWRev == nil:
		return nil, invalid("missing hw_rev")
	case w.Regions == nil:
		return nil, invalid("missing regions")
	}
	m := &Manifest{
		HWRev:             *w.HWRev,
		Name:              *w.Name,
		Tag:               w.Tag,
		Help:              w.Help,
		ExternalPLLConfig: w.ExternalPLLConfig,
		Magic:             Magic,
	}
	if w.Magic != nil {
		m.Magic = *w.Magic
	}
	if (w.Brief != nil || w.Video != nil) && m.Help == nil {
		m.Help = &Help{
			Brief:   NoText,
			Video:   NoText,
			IOLeft:  make([]string, IOLeftN),
			IORight: make([]string, IORightN),
		}
		if w.Brief != nil {
			m.Help.Brief = *w.Brief
		}
		if w.Video != nil {
			m.Help.Video = *w.Video
		}
	}
	m.Regions = make([]Region, len(*w.Regions))
	for i, wr := range *w.Regions {
		if wr.Filename == nil || *wr.Filename == "" {
			return nil, invalid("region %d: missing filename", i)
		}
		r := Region{
			Filename:    *wr.Filename,
			Type:        wr.Type,
			SPIFlashSrc: wr.SPIFlashSrc,
			PSRAMDst:    wr.PSRAMDst,
			Size:        wr.Size,
			CRC:         wr.CRC,
		}
		if r.Type == "" {
			r.Type = Bitstream
		}
		if !r.Type.valid() {
			return nil, invalid("region %q: unknown region_type %q", r.Filename, r.Type)
		}
		m.Regions[i] = r
	}
	if err := m.resolvePlacement(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) resolvePlacement() error {
	xip := false
	for i := range m.Regions {
		r := &m.Regions[i]
		switch r.Type {
		case XipFirmware:
			if r.SPIFlashSrc == nil {
				return invalid("XIP region %q without spiflash_src", r.Filename)
			}
			r.Placement = Placement{FixedAbsolute, *r.SPIFlashSrc}
			xip = true
		case ManifestRegion:
			r.Placement = Placement{Kind: ManifestBlock}
		default:
			r.Placement = Placement{Kind: SlotRelative}
		}
	}
	if xip {
		for i := range m.Regions {
			if p := &m.Regions[i].Placement; p.Kind == SlotRelative {
				p.Kind = BootloaderRelative
			}
		}
	}
	return nil
}

// XIP returns the first execute-in-place region and its flash address.
func (m *Manifest) XIP() (r *Region, addr uint32, ok bool) {
	for i := range m.Regions {
		if p := m.Regions[i].Placement; p.Kind == FixedAbsolute {
			return &m.Regions[i], p.Addr, true
		}
	}
	return nil, 0, false
}

// Video returns the video mode description or "" if there is none.
func (m *Manifest) Video() string {
	if m.Help == nil || m.Help.Video == NoText {
		return ""
	}
	return m.Help.Video
}

// Brief returns the one line summary or "" if there is none.
func (m *Manifest) Brief() string {
	if m.Help == nil || m.Help.Brief == NoText {
		return ""
	}
	return m.Help.Brief
}

// Encode returns the compact JSON text of the manifest.
func Encode(m *Manifest) ([]byte, error) {
	return json.Marshal(m)
}

// Validate checks the limits of the bootloader's manifest parser.
func (m *Manifest) Validate() error {
	switch {
	case len(m.Name) > NameMaxLen:
		return invalid("name (len=%d) is too long (max=%d)", len(m.Name), NameMaxLen)
	case len(m.Tag) > TagMaxLen:
		return invalid("tag (len=%d) is too long (max=%d)", len(m.Tag), TagMaxLen)
	case len(m.Regions) > RegionMaxN:
		return invalid("too many regions (%d, max=%d)", len(m.Regions), RegionMaxN)
	}
	for _, r := range m.Regions {
		if len(r.Filename) > FilenameMaxLen {
			return invalid("filename %q is too long (max=%d)", r.Filename, FilenameMaxLen)
		}
	}
	if h := m.Help; h != nil {
		if len(h.Brief) > BriefMaxLen {
			return invalid("brief (len=%d) is too long (max=%d)", len(h.Brief), BriefMaxLen)
		}
		if len(h.IOLeft) != IOLeftN || len(h.IORight) != IORightN {
			return invalid("help must have %d io_left and %d io_right labels", IOLeftN, IORightN)
		}
		for _, label := range slices.Concat(h.IOLeft, h.IORight) {
			if len(label) > IOLabelMaxLen {
				return invalid("io label %q is too long (max=%d)", label, IOLabelMaxLen)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Regions = make([]Region, len(m.Regions))
	for i, r := range m.Regions {
		r.SPIFlashSrc = clonePtr(r.SPIFlashSrc)
		r.PSRAMDst = clonePtr(r.PSRAMDst)
		r.CRC = clonePtr(r.CRC)
		c.Regions[i] = r
	}
	if m.Help != nil {
		h := *m.Help
		h.IOLeft = slices.Clone(h.IOLeft)
		h.IORight = slices.Clone(h.IORight)
		c.Help = &h
	}
	if m.ExternalPLLConfig != nil {
		p := *m.ExternalPLLConfig
		p.Clk1Hz = clonePtr(p.Clk1Hz)
		p.SpreadSpectrum = clonePtr(p.SpreadSpectrum)
		c.ExternalPLLConfig = &p
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
