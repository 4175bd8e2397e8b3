// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flashmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot identifies a user slot (0, 1, ...) or the bootloader pseudo-slot.
type Slot int

// Bootloader is the pseudo-slot holding the always-resident boot firmware.
const Bootloader Slot = -1

func (s Slot) String() string {
	if s == Bootloader {
		return "bootloader"
	}
	return "slot " + strconv.Itoa(int(s))
}

// ParseSlot parses a slot number or the "bootloader" keyword.
func ParseSlot(s string) (Slot, error) {
	if strings.EqualFold(s, "bootloader") {
		return Bootloader, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("bad slot %q: want a number or \"bootloader\"", s)
	}
	return Slot(n), nil
}
