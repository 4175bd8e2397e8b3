// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/embeddedgo/fpga/fpgaflash/internal/layout"
	"github.com/embeddedgo/fpga/fpgaflash/internal/program"
)

func TestFlatten(t *testing.T) {
	ss := PlanSections([]layout.Op{
		{Filename: "manifest.json", Offset: 0x10, Data: []byte{7, 7}},
		{Filename: "a.bin", Offset: 0x4, Data: []byte{1, 2, 3}},
		{Filename: "b.bin", Offset: 0x8, Data: []byte{4}},
	})
	if ss.Size() != 6 {
		t.Errorf("Size: %d", ss.Size())
	}
	var buf bytes.Buffer
	n, err := ss.Flatten(&buf, 0xff)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		1, 2, 3, 0xff, 4, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 7, 7,
	}
	if n != len(want) || !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("Flatten: %d % x\nwant: %d % x", n, buf.Bytes(), len(want), want)
	}
}

func TestFlattenOverlap(t *testing.T) {
	ss := Sections{
		{"a", 0, []byte{1, 2, 3}},
		{"b", 2, []byte{4}},
	}
	if _, err := ss.Flatten(new(bytes.Buffer), 0); err == nil {
		t.Fatal("overlap not detected")
	}
}

func TestPadBytes(t *testing.T) {
	var cache []byte
	if p := PadBytes(&cache, 4, 0xff); !bytes.Equal(p, []byte{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("PadBytes: % x", p)
	}
	if p := PadBytes(&cache, 2, 0x00); !bytes.Equal(p, []byte{0, 0}) {
		t.Errorf("PadBytes after fill change: % x", p)
	}
}

func TestParseBusAddr(t *testing.T) {
	tests := []struct {
		in        string
		bus, addr int
	}{
		{"1:12", 1, 12},
		{"001:011", 1, 11},
		{"1", -1, -1},
		{"1:2:3", -1, -1},
		{"x:1", -1, -1},
		{"1:300", -1, -1},
	}
	for _, tc := range tests {
		bus, addr := ParseBusAddr(tc.in)
		if bus != tc.bus || addr != tc.addr {
			t.Errorf("ParseBusAddr(%q): %d, %d", tc.in, bus, addr)
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"y\n", true},
		{"Yes\n", true},
		{"  y", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range tests {
		if ok := Confirm(strings.NewReader(tc.in), "proceed?"); ok != tc.ok {
			t.Errorf("Confirm(%q): %t", tc.in, ok)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&program.Error{Index: 1, Filename: "top.bit", Offset: 0x100000, Err: errors.New("exit status 1")}, ExitProgrammer},
		{fmt.Errorf("flash: %w", &program.Error{Err: errors.New("usb")}), ExitProgrammer},
		{&layout.HardwareMismatchError{Connected: 4, Bundle: 2}, ExitInvalid},
		{fmt.Errorf("program: cancelled before operation 1: %w", context.Canceled), ExitCancelled},
	}
	for _, tc := range tests {
		if code := ExitCode(tc.err); code != tc.code {
			t.Errorf("ExitCode(%v): %d, want %d", tc.err, code, tc.code)
		}
	}
}
