// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package probe

import (
	"errors"
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		s  string
		ok bool
	}{
		{"apf.audio Tiliqua R4", true},
		{"Tiliqua R2 (apfbug)", true},
		{"APFBUG", true},
		{"Raspberry Pi Pico", false},
		{"", false},
	}
	for _, tc := range tests {
		if ok := Match(tc.s); ok != tc.ok {
			t.Errorf("Match(%q): %t", tc.s, ok)
		}
	}
}

func TestParseHWRev(t *testing.T) {
	rev, err := ParseHWRev("Tiliqua R5 (apfbug)")
	if err != nil || rev != 5 {
		t.Errorf("got %d, %v", rev, err)
	}
	if _, err := ParseHWRev("Tiliqua (apfbug)"); !errors.Is(err, ErrMalformed) {
		t.Errorf("got %v, want ErrMalformed", err)
	}
}

const scanOut = `found 2 USB device
Bus device vid:pid       probe type      manufacturer serial               product
001 004    0x0403:0x6010 FTDI2232        FTDI         FT2XYZ               Dual RS232-HS
003 011    0x1209:0xc0ca dirtyJtag       apf.audio    E463A8574B3F3935     Tiliqua R4 (apfbug)
`

func TestParseScan(t *testing.T) {
	d, err := ParseScan(scanOut)
	if err != nil {
		t.Fatal(err)
	}
	want := Device{Bus: 3, Addr: 11, Product: "Tiliqua R4 (apfbug)", Serial: "E463A8574B3F3935", HWRev: 4}
	if *d != want {
		t.Errorf("got %+v\nwant %+v", *d, want)
	}
}

func TestParseScanErrors(t *testing.T) {
	if _, err := ParseScan("found 0 USB device\n"); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty scan: %v", err)
	}
	old := "003 011    0x1209:0xc0ca dirtyJtag       apf.audio    E463A8574B3F3935     dirtyJtag (apfbug)\n"
	if _, err := ParseScan(old); !errors.Is(err, ErrMalformed) {
		t.Errorf("old firmware: %v", err)
	}
}
