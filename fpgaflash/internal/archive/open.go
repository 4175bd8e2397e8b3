// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// Inflate decompresses a gzip stream.
func Inflate(r io.Reader) ([]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("archive: gunzip: %w", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("archive: gunzip: %w", err)
	}
	return data, nil
}

// Open reads the archive from r. Gzip compressed streams are inflated
// before parsing, others are parsed as plain tar.
func Open(r io.Reader) (*Archive, error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(2)
	var (
		data []byte
		err  error
	)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		data, err = Inflate(br)
	} else {
		data, err = io.ReadAll(br)
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ReadFile reads the archive stored in the named file (usually .tar.gz).
func ReadFile(name string) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Open(f)
}
