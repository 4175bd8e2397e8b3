// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package manifest

import (
	"bytes"
	"fmt"

	"github.com/embeddedgo/fpga/fpgaflash/internal/flashmap"
)

// BlockFormat is the version of the on-flash manifest framing implemented by
// Block and Payload.
//
// Version 1: the compact UTF-8 JSON text of the manifest starts at offset 0
// and is followed by fill bytes (0x00 or 0xff) up to the block size. There is
// no length prefix and no checksum. The payload ends at the first 0x00 or
// 0xff byte, neither of which can occur in UTF-8 encoded JSON.
const BlockFormat = 1

// Block validates and encodes the manifest and pads it with fill bytes to
// the size of the manifest block.
func Block(m *Manifest, size int, fill byte) ([]byte, error) {
	if fill != 0x00 && fill != 0xff {
		return nil, fmt.Errorf("manifest: fill byte %#02x can't terminate the payload", fill)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data, err := Encode(m)
	if err != nil {
		return nil, err
	}
	if len(data) > size {
		return nil, invalid("encoded size %d exceeds the %d byte manifest block", len(data), size)
	}
	block := make([]byte, size)
	n := copy(block, data)
	for i := n; i < size; i++ {
		block[i] = fill
	}
	return block, nil
}

// Payload returns the JSON text stored in the manifest block.
func Payload(block []byte) []byte {
	for i, b := range block {
		if b == 0x00 || b == 0xff {
			return block[:i]
		}
	}
	return block
}

// State is the classification of a manifest block read back from flash.
type State uint8

const (
	Corrupt State = iota
	Empty
	Valid
)

var stateStr = [...]string{
	Corrupt: "corrupt",
	Empty:   "empty",
	Valid:   "valid",
}

func (s State) String() string {
	if int(s) < len(stateStr) {
		return stateStr[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Info describes the manifest block of a slot as read from flash.
type Info struct {
	Slot flashmap.Slot
	Addr uint32
	Raw  []byte

	// State is Empty if Raw is entirely one of the empty fill bytes, Valid
	// if its payload decodes, Corrupt otherwise.
	State State

	// Manifest is set for Valid blocks only.
	Manifest *Manifest

	// Err tells why a Corrupt block didn't decode.
	Err error
}

func (i *Info) IsEmpty() bool { return i.State == Empty }
func (i *Info) IsValid() bool { return i.State == Valid }

// Classify classifies the raw manifest block read from addr.
func Classify(slot flashmap.Slot, addr uint32, raw []byte, emptyFills []byte) *Info {
	info := &Info{Slot: slot, Addr: addr, Raw: bytes.Clone(raw)}
	if isFilled(raw, emptyFills) {
		info.State = Empty
		return info
	}
	m, err := Decode(Payload(raw))
	if err != nil {
		info.State = Corrupt
		info.Err = err
		return info
	}
	info.State = Valid
	info.Manifest = m
	return info
}

func isFilled(b, fills []byte) bool {
	if len(b) == 0 || bytes.IndexByte(fills, b[0]) < 0 {
		return false
	}
	for _, c := range b[1:] {
		if c != b[0] {
			return false
		}
	}
	return true
}
