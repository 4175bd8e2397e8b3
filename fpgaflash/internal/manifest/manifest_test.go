// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package manifest

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const bootloaderJSON = `{
  "hw_rev": 4,
  "name": "bootloader",
  "tag": "v1.0.1",
  "regions": [
    {"filename": "top.bit", "region_type": "Bitstream", "size": 104090},
    {"filename": "firmware.bin", "region_type": "XipFirmware", "spiflash_src": 720896, "size": 70000},
    {"filename": "options.storage", "region_type": "OptionStorage", "size": 8192}
  ],
  "help": {
    "brief": "bootloader",
    "video": "1280x720p60",
    "io_left": ["", "", "", "", "", "", "", ""],
    "io_right": ["", "", "", "", "", ""]
  }
}`

func TestDecodeMinimal(t *testing.T) {
	m, err := Decode([]byte(`{"name":"xbeam","hw_rev":3,"regions":[{"filename":"bitstream.bin"}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Name != "xbeam" || m.HWRev != 3 || m.Magic != Magic {
		t.Errorf("unexpected manifest: %+v", m)
	}
	if len(m.Regions) != 1 {
		t.Fatalf("got %d regions", len(m.Regions))
	}
	r := m.Regions[0]
	if r.Filename != "bitstream.bin" || r.Type != Bitstream || r.Placement.Kind != SlotRelative {
		t.Errorf("unexpected region: %+v", r)
	}
	if _, _, ok := m.XIP(); ok {
		t.Error("XIP reported for a plain bundle")
	}
	if m.Video() != "" || m.Brief() != "" {
		t.Error("help strings reported without help")
	}
}

func TestDecodePlacement(t *testing.T) {
	m, err := Decode([]byte(bootloaderJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []Placement{
		{Kind: BootloaderRelative},
		{FixedAbsolute, 0xb0000},
		{Kind: BootloaderRelative},
	}
	for i, r := range m.Regions {
		if r.Placement != want[i] {
			t.Errorf("region %q: placement %+v, want %+v", r.Filename, r.Placement, want[i])
		}
	}
	r, addr, ok := m.XIP()
	if !ok || addr != 0xb0000 || r.Filename != "firmware.bin" {
		t.Errorf("XIP() = %v, %#x, %v", r, addr, ok)
	}
	if m.Video() != "1280x720p60" || m.Brief() != "bootloader" {
		t.Errorf("help: %q %q", m.Video(), m.Brief())
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	m, err = Decode([]byte(`{"name":"m","hw_rev":2,"regions":[{"filename":"manifest.json","region_type":"Manifest"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.Regions[0].Placement.Kind != ManifestBlock {
		t.Errorf("manifest region placement: %v", m.Regions[0].Placement.Kind)
	}
}

func TestDecodeShorthand(t *testing.T) {
	m, err := Decode([]byte(`{"name":"n","hw_rev":1,"regions":[],"video":"<none>","brief":"hello"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Video() != "" || m.Brief() != "hello" {
		t.Errorf("help: video %q brief %q", m.Video(), m.Brief())
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{"not json", `{"name":`, "unexpected end"},
		{"array", `[]`, "cannot unmarshal"},
		{"no name", `{"hw_rev":1,"regions":[]}`, "missing name"},
		{"no hw_rev", `{"name":"a","regions":[]}`, "missing hw_rev"},
		{"no regions", `{"name":"a","hw_rev":1}`, "missing regions"},
		{"null regions", `{"name":"a","hw_rev":1,"regions":null}`, "missing regions"},
		{"negative hw_rev", `{"name":"a","hw_rev":-1,"regions":[]}`, "cannot unmarshal"},
		{"fractional hw_rev", `{"name":"a","hw_rev":1.5,"regions":[]}`, "cannot unmarshal"},
		{"no filename", `{"name":"a","hw_rev":1,"regions":[{"size":1}]}`, "missing filename"},
		{"bad type", `{"name":"a","hw_rev":1,"regions":[{"filename":"f","region_type":"Foo"}]}`, "unknown region_type"},
		{"xip without address", `{"name":"a","hw_rev":1,"regions":[{"filename":"f","region_type":"XipFirmware"}]}`, "without spiflash_src"},
		{"trailing data", `{"name":"a","hw_rev":1,"regions":[]} x`, "invalid character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if m != nil {
				t.Error("partial manifest returned")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v is not ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q doesn't contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	m, err := Decode([]byte(bootloaderJSON))
	if err != nil {
		t.Fatal(err)
	}
	data, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(Encode(m)): %v", err)
	}
	if !reflect.DeepEqual(m, m2) {
		t.Errorf("round trip differs:\n%+v\n%+v", m, m2)
	}
	if strings.Contains(string(data), "psram_dst") || strings.Contains(string(data), "external_pll_config") {
		t.Errorf("absent optional fields encoded: %s", data)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(m *Manifest)
		errMsg string
	}{
		{"name", func(m *Manifest) { m.Name = strings.Repeat("n", 33) }, "name"},
		{"tag", func(m *Manifest) { m.Tag = "v1.0.1-rc1" }, "tag"},
		{"regions", func(m *Manifest) {
			for len(m.Regions) <= RegionMaxN {
				m.Regions = append(m.Regions, Region{Filename: "x"})
			}
		}, "too many regions"},
		{"filename", func(m *Manifest) { m.Regions[0].Filename = "a-very-long-name.bin" }, "filename"},
		{"brief", func(m *Manifest) { m.Help.Brief = strings.Repeat("b", 65) }, "brief"},
		{"io count", func(m *Manifest) { m.Help.IOLeft = m.Help.IOLeft[:7] }, "io_left"},
		{"io label", func(m *Manifest) { m.Help.IORight[2] = strings.Repeat("l", 21) }, "io label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(bootloaderJSON))
			if err != nil {
				t.Fatal(err)
			}
			tt.modify(m)
			err = m.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q doesn't contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestClone(t *testing.T) {
	m, err := Decode([]byte(bootloaderJSON))
	if err != nil {
		t.Fatal(err)
	}
	c := m.Clone()
	if !reflect.DeepEqual(m, c) {
		t.Fatal("clone differs")
	}
	*c.Regions[1].SPIFlashSrc = 0
	c.Regions[0].Size = 1
	c.Help.IOLeft[0] = "in0"
	if *m.Regions[1].SPIFlashSrc != 0xb0000 || m.Regions[0].Size != 104090 || m.Help.IOLeft[0] != "" {
		t.Error("clone shares data with the original")
	}
}
