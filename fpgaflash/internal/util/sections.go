// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"errors"
	"io"
	"sort"

	"github.com/embeddedgo/fpga/fpgaflash/internal/layout"
)

type Section struct {
	Name string
	Addr uint64 // location in the flash
	Data []byte
}

type Sections []*Section

// PlanSections returns the data written by the operations as sections.
func PlanSections(ops []layout.Op) Sections {
	ss := make(Sections, len(ops))
	for i, op := range ops {
		ss[i] = &Section{op.Filename, uint64(op.Offset), op.Data}
	}
	return ss
}

// Size returns the sum of the section sizes.
func (ss Sections) Size() int {
	n := 0
	for _, s := range ss {
		n += len(s.Data)
	}
	return n
}

// SortByAddr sorts sections according to the Addr field.
func (ss Sections) SortByAddr() {
	sort.SliceStable(
		ss,
		func(i, j int) bool {
			return ss[i].Addr < ss[j].Addr
		},
	)
}

// Flatten flattens sections by writting their data to the provided io.Writer
// according to the Addr field (before writting the sections are sorted using
// SortByAddr method). The gaps between sections are filled using the pad byte.
// The image starts at the address of the first section.
func (ss Sections) Flatten(w io.Writer, pad byte) (n int, err error) {
	if len(ss) == 0 {
		return
	}
	ss.SortByAddr()
	pa := ss[0].Addr
	n, err = w.Write(ss[0].Data)
	if err != nil {
		return
	}
	pa += uint64(n)
	var padCache []byte
	for _, s := range ss[1:] {
		if s.Addr < pa {
			err = errors.New("flatten: overlaping sections " + s.Name)
			return
		}
		m := int(s.Addr - pa)
		if m != 0 {
			m, err = w.Write(PadBytes(&padCache, m, pad))
			n += m
			if err != nil {
				return
			}
			pa += uint64(m)
		}
		m, err = w.Write(s.Data)
		n += m
		if err != nil {
			return
		}
		pa += uint64(m)
	}
	return
}

// PadBytes returns the slice containing n bytes equal b.
func PadBytes(cache *[]byte, n int, b byte) []byte {
	if len(*cache) < n || (n > 0 && (*cache)[0] != b) {
		*cache = make([]byte, n)
		for i := range *cache {
			(*cache)[i] = b
		}
	}
	return (*cache)[:n]
}
