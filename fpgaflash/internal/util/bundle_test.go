// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/embeddedgo/fpga/fpgaflash/internal/archive"
	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
	"github.com/embeddedgo/fpga/fpgaflash/internal/layout"
	"github.com/embeddedgo/fpga/fpgaflash/internal/program"
)

func writeBundle(t *testing.T, entries []archive.Entry) string {
	t.Helper()
	var buf bytes.Buffer
	if err := archive.Write(&buf, entries); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "bundle.tar")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadBundle(t *testing.T) {
	path := writeBundle(t, []archive.Entry{
		{Name: "manifest.json", Data: []byte(`{"name":"xbeam","hw_rev":3,"video":"1280x720p60","regions":[{"filename":"top.bit"}]}`)},
		{Name: "top.bit", Data: bytes.Repeat([]byte{0x5a}, 100)},
	})
	b, err := ReadBundle(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.Manifest.Name != "xbeam" || len(b.Files["top.bit"]) != 100 {
		t.Fatalf("bad bundle: %+v", b)
	}
	g := flashmap.Default()
	p, err := (&layout.Composer{Geometry: &g}).Compose(b.Manifest, b.Files, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	PrintPlan(&out, b, p, &program.Loader{Path: "openFPGALoader", Cable: "dirtyJtag"}, true)
	for _, s := range []string{
		"Name:     xbeam",
		"Video:    1280x720p60",
		"Target:   slot 0",
		"top.bit (Bitstream):",
		`"spiflash_src": 1048576`,
		"openFPGALoader -c dirtyJtag -f -o 0x100000 --file-type bit --skip-reset top.bit",
		"openFPGALoader -c dirtyJtag -f -o 0x1f0000 --file-type raw manifest.json",
	} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("output lacks %q:\n%s", s, out.String())
		}
	}
}

func TestReadBundleNoManifest(t *testing.T) {
	path := writeBundle(t, []archive.Entry{{Name: "top.bit", Data: []byte{1}}})
	if _, err := ReadBundle(path); !errors.Is(err, archive.ErrMalformed) {
		t.Fatalf("got %v", err)
	}
}

func TestSlotFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var sf SlotFlag
	fs.Var(&sf, "slot", "")
	if err := fs.Parse([]string{"-slot", "bootloader"}); err != nil {
		t.Fatal(err)
	}
	if !sf.IsSet || sf.Slot != flashmap.Bootloader {
		t.Errorf("got %+v", sf)
	}
	if err := fs.Parse([]string{"-slot", "x"}); err == nil {
		t.Error("bad slot accepted")
	}
}
