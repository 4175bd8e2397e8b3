// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
	"github.com/embeddedgo/fpga/fpgaflash/internal/manifest"
)

// ReadManifests reads and classifies the manifest blocks of the bootloader
// and all slots. The device is reset only after the last read.
//
// A failed read doesn't stop the others. The slot is reported as Corrupt
// with Info.Err set and the failure is also included in the returned error.
func ReadManifests(ctx context.Context, p Programmer, g *flashmap.Geometry, opts ...Option) ([]*manifest.Info, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	locs := g.ManifestAddresses()
	infos := make([]*manifest.Info, 0, len(locs))
	var errs []error
	for i, loc := range locs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("program: read-back cancelled: %w", err)
		}
		if cfg.out != nil {
			fmt.Fprintf(cfg.out, "read %s manifest at %#x\n", loc.Slot, loc.Addr)
		}
		raw, err := p.Dump(ctx, loc.Addr, g.ManifestSize, i < len(locs)-1)
		if err == nil && len(raw) != int(g.ManifestSize) {
			err = fmt.Errorf("got %d bytes, want %d", len(raw), g.ManifestSize)
		}
		if err != nil {
			err = &Error{-1, loc.Slot.String() + " manifest", loc.Addr, err}
			errs = append(errs, err)
			infos = append(infos, &manifest.Info{
				Slot:  loc.Slot,
				Addr:  loc.Addr,
				State: manifest.Corrupt,
				Err:   err,
			})
		} else {
			infos = append(infos, manifest.Classify(loc.Slot, loc.Addr, raw, g.EmptyFills))
		}
		if cfg.progress != nil {
			cfg.progress(Progress{Done: i + 1, Total: len(locs)})
		}
	}
	return infos, errors.Join(errs...)
}
