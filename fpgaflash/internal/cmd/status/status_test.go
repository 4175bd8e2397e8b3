// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package status

import (
	"bytes"
	"strings"
	"testing"

	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
	"github.com/embeddedgo/fpga/fpgaflash/internal/manifest"
)

func TestPrint(t *testing.T) {
	block := func(text string) []byte {
		b := bytes.Repeat([]byte{0xff}, 512)
		copy(b, text)
		return b
	}
	tests := []struct {
		raw  []byte
		want []string
	}{
		{bytes.Repeat([]byte{0xff}, 512), []string{"slot 2", "0x2f0000", "empty"}},
		{block(`{"name":"xbeam","hw_rev":4,"tag":"v1","brief":"beam","regions":[]}`), []string{"xbeam (hw_rev=4) [v1]: beam"}},
		{block(`{"name":`), []string{"invalid:", "7b 22 6e 61 6d 65 22 3a ff ff"}},
	}
	for _, tc := range tests {
		info := manifest.Classify(flashmap.Slot(2), 0x2f0000, tc.raw, []byte{0xff, 0x00})
		var out strings.Builder
		Print(&out, info)
		for _, s := range tc.want {
			if !strings.Contains(out.String(), s) {
				t.Errorf("output lacks %q:\n%s", s, out.String())
			}
		}
	}
}
