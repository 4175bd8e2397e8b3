// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"errors"
	"fmt"

	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
)

var (
	ErrHardwareMismatch = errors.New("hardware mismatch")
	ErrSlotOverflow     = errors.New("slot overflow")
	ErrOverlap          = errors.New("overlapping regions")
	ErrMissingFile      = errors.New("missing file")
	ErrSlotKind         = errors.New("wrong kind of slot")
)

// HardwareMismatchError indicates that the bundle was built for another
// hardware revision than the connected one.
type HardwareMismatchError struct {
	Connected uint32
	Bundle    uint32
}

func (e *HardwareMismatchError) Error() string {
	return fmt.Sprintf("attached hardware (hw=r%d) does not match the archive (hw=r%d)",
		e.Connected, e.Bundle)
}

func (e *HardwareMismatchError) Unwrap() error { return ErrHardwareMismatch }

// SlotOverflowError indicates that a region doesn't fit in the space of the
// slot that is available for data.
type SlotOverflowError struct {
	Slot   flashmap.Slot
	Region string
	End    uint64 // end address (exclusive) of the region
	Limit  uint64 // end address (exclusive) of the available space
}

func (e *SlotOverflowError) Error() string {
	return fmt.Sprintf("region %q exceeds %s: ends at %#x, space ends at %#x",
		e.Region, e.Slot, e.End, e.Limit)
}

func (e *SlotOverflowError) Unwrap() error { return ErrSlotOverflow }

// OverlapError indicates two placed regions sharing flash sectors.
type OverlapError struct {
	A, B Region
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlap detected between %q (ends at %#x) and %q (starts at %#x)",
		e.A.Name, e.A.End(), e.B.Name, e.B.Addr)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// MissingFileError indicates a region whose file isn't in the archive.
type MissingFileError struct {
	Filename string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s not found in archive", e.Filename)
}

func (e *MissingFileError) Unwrap() error { return ErrMissingFile }
