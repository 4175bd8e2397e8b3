// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"fmt"
	"io"
	"strconv"
)

// Writer writes a ustar stream that Parse (and any tar tool) can read.
type Writer struct {
	w     io.Writer
	names map[string]bool
	hdr   [BlockSize]byte
	pad   [BlockSize]byte
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, names: make(map[string]bool)}
}

// WriteFile writes one regular file entry.
func (w *Writer) WriteFile(name string, data []byte) error {
	if name == "" || len(name) > hNameLen {
		return fmt.Errorf("archive: bad entry name %q", name)
	}
	if w.names[name] {
		return fmt.Errorf("archive: duplicate entry %q", name)
	}
	w.names[name] = true
	h := w.hdr[:]
	clear(h)
	copy(h[hName:], name)
	copy(h[100:], "0000644\x00")
	copy(h[108:], "0000000\x00")
	copy(h[116:], "0000000\x00")
	putOctal(h[hSize:hSize+hSizeLen], uint64(len(data)))
	putOctal(h[136:148], 0)
	h[hType] = typeReg
	copy(h[hMagic:], "ustar\x0000")
	sum, _ := headerSums(h)
	putOctal(h[hSum:hSum+hSumLen-1], uint64(sum))
	h[hSum+hSumLen-1] = ' '
	if _, err := w.w.Write(h); err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	_, err := w.w.Write(w.pad[:padding(uint64(len(data)))])
	return err
}

// Close writes the end of archive marker (two zero blocks). It does not
// close the underlying writer.
func (w *Writer) Close() error {
	if _, err := w.w.Write(w.pad[:]); err != nil {
		return err
	}
	_, err := w.w.Write(w.pad[:])
	return err
}

// Write writes a complete archive containing the entries.
func Write(w io.Writer, entries []Entry) error {
	aw := NewWriter(w)
	for _, e := range entries {
		if err := aw.WriteFile(e.Name, e.Data); err != nil {
			return err
		}
	}
	return aw.Close()
}

// putOctal writes n as a zero-padded octal number terminated by NUL.
func putOctal(field []byte, n uint64) {
	s := strconv.FormatUint(n, 8)
	w := len(field) - 1
	for len(s) < w {
		s = "0" + s
	}
	copy(field, s)
	field[w] = 0
}
