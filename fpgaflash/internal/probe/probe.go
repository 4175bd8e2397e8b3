// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package probe finds the debugger that gives access to the FPGA and its
// configuration flash, and tells the hardware revision of the board it is
// part of.
package probe

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	usb "github.com/google/gousb"

	"github.com/embeddedgo/fpga/fpgaflash/internal/util"
)

// USB IDs of the dirtyJTAG firmware running on the debugger.
const (
	Vendor  usb.ID = 0x1209
	Product usb.ID = 0xc0ca
)

var (
	ErrNotFound  = errors.New("probe: no debugger found")
	ErrMalformed = errors.New("probe: malformed product string (update the debugger firmware?)")
)

// Device describes the found debugger.
type Device struct {
	Bus     int
	Addr    int
	Product string
	Serial  string
	HWRev   uint32
}

func (d *Device) String() string {
	return fmt.Sprintf("%s (hw_rev=%d, serial=%s)", d.Product, d.HWRev, d.Serial)
}

// Match reports whether the USB description string belongs to the debugger.
func Match(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "apfbug") || strings.Contains(s, "apf.audio")
}

var (
	revRE     = regexp.MustCompile(`R(\d+)`)
	serialRE  = regexp.MustCompile(`\b([A-F0-9]{16})\b`)
	productRE = regexp.MustCompile(`(?i)(Tiliqua\s+R\d+.*)$`)
)

// ParseHWRev returns the hardware revision from the product string.
func ParseHWRev(product string) (uint32, error) {
	m := revRE.FindStringSubmatch(product)
	if m == nil {
		return 0, ErrMalformed
	}
	rev, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, ErrMalformed
	}
	return uint32(rev), nil
}

// ParseScan finds the debugger in the output of openFPGALoader --scan-usb.
func ParseScan(out string) (*Device, error) {
	malformed := false
	for _, line := range strings.Split(out, "\n") {
		if !Match(line) {
			continue
		}
		sm := serialRE.FindStringSubmatch(line)
		pm := productRE.FindStringSubmatch(line)
		if sm == nil || pm == nil {
			malformed = true
			continue
		}
		d := &Device{Bus: -1, Addr: -1, Product: strings.TrimSpace(pm[1]), Serial: sm[1]}
		rev, err := ParseHWRev(d.Product)
		if err != nil {
			malformed = true
			continue
		}
		d.HWRev = rev
		if f := strings.Fields(line); len(f) >= 2 {
			d.Bus, d.Addr = util.ParseBusAddr(f[0] + ":" + f[1])
		}
		return d, nil
	}
	if malformed {
		return nil, ErrMalformed
	}
	return nil, ErrNotFound
}

// Find looks for the debugger on the USB. An empty busAddr means any bus
// and address.
func Find(busAddr string) (*Device, error) {
	devs, err := util.OpenUSB(Vendor, Product, busAddr)
	if err != nil {
		return nil, err
	}
	defer devs.Close()
	malformed := false
	for _, dev := range devs.Devs {
		mfr, _ := dev.Manufacturer()
		product, err := dev.Product()
		if err != nil {
			continue
		}
		if !Match(mfr + " " + product) {
			continue
		}
		rev, err := ParseHWRev(product)
		if err != nil {
			malformed = true
			continue
		}
		serial, _ := dev.SerialNumber()
		return &Device{
			Bus:     dev.Desc.Bus,
			Addr:    dev.Desc.Address,
			Product: product,
			Serial:  serial,
			HWRev:   rev,
		}, nil
	}
	if malformed {
		return nil, ErrMalformed
	}
	return nil, ErrNotFound
}
