// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive reads and writes bitstream archives: tar streams holding
// a manifest.json and the files it refers to.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// BlockSize is the size of a header block and the granularity of the
// content padding.
const BlockSize = 512

// ManifestName is the name of the archive entry holding the manifest.
const ManifestName = "manifest.json"

// ErrMalformed is returned (wrapped in *Error) for structurally invalid
// archive streams.
var ErrMalformed = errors.New("malformed archive")

// Error describes a problem found at a given offset of the tar stream.
type Error struct {
	Off int
	Err error
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	return "archive: offset " + strconv.Itoa(e.Off) + ": " + e.Err.Error()
}

func malformed(off int, f string, args ...any) error {
	return &Error{off, fmt.Errorf("%w: "+f, append([]any{ErrMalformed}, args...)...)}
}

// Entry is a single named file.
type Entry struct {
	Name string
	Data []byte
}

// Archive is an ordered set of uniquely named files. An Archive is never
// modified after Parse returns it. The byte slices it returns must not be
// modified by the caller.
type Archive struct {
	names []string
	files map[string][]byte
}

// Len returns the number of files.
func (a *Archive) Len() int {
	return len(a.names)
}

// Names returns the file names in the stream order.
func (a *Archive) Names() []string {
	return slices.Clone(a.names)
}

// File returns the content of the named file.
func (a *Archive) File(name string) ([]byte, bool) {
	data, ok := a.files[name]
	return data, ok
}

// Files returns the name to content mapping.
func (a *Archive) Files() map[string][]byte {
	return maps.Clone(a.files)
}

// Entries returns the files in the stream order.
func (a *Archive) Entries() []Entry {
	es := make([]Entry, len(a.names))
	for i, name := range a.names {
		es[i] = Entry{name, a.files[name]}
	}
	return es
}

// Manifest returns the content of the manifest.json entry.
func (a *Archive) Manifest() ([]byte, error) {
	data, ok := a.files[ManifestName]
	if !ok {
		return nil, fmt.Errorf("archive: no %s entry: %w", ManifestName, ErrMalformed)
	}
	return data, nil
}

// Header block layout.
const (
	hName     = 0
	hNameLen  = 100
	hSize     = 124
	hSizeLen  = 12
	hSum      = 148
	hSumLen   = 8
	hType     = 156
	hMagic    = 257
	hPrefix   = 345
	hPrefixLn = 155
)

const (
	typeReg     = '0'
	typeRegOld  = 0
	typeCont    = '7'
	typeGNULong = 'L'
	typePAX     = 'x'
)

// Parse parses the decompressed tar stream. The stream ends with an all-zero
// header block or with the data. Zero padding after the last entry is
// accepted. Directories, links, global headers and other non-regular entries
// are skipped. A leading "./" is removed from the names.
func Parse(data []byte) (*Archive, error) {
	a := &Archive{files: make(map[string][]byte)}
	var longName string
	off := 0
	for off < len(data) {
		rest := data[off:]
		if len(rest) < BlockSize {
			if isZero(rest) {
				break
			}
			return nil, malformed(off, "truncated header (%d of %d bytes)", len(rest), BlockSize)
		}
		hdr := rest[:BlockSize]
		if isZero(hdr) {
			break
		}
		if err := checkSum(hdr); err != nil {
			return nil, malformed(off+hSum, "%v", err)
		}
		size, err := parseOctal(hdr[hSize : hSize+hSizeLen])
		if err != nil {
			return nil, malformed(off+hSize, "bad size field: %v", err)
		}
		name := cstring(hdr[hName : hName+hNameLen])
		if bytes.HasPrefix(hdr[hMagic:], []byte("ustar")) {
			if prefix := cstring(hdr[hPrefix : hPrefix+hPrefixLn]); prefix != "" {
				name = prefix + "/" + name
			}
		}
		typ := hdr[hType]
		off += BlockSize
		if size > uint64(len(data)-off) {
			return nil, malformed(off, "%q: content truncated (%d of %d bytes)", name, len(data)-off, size)
		}
		content := data[off : off+int(size)]
		off += int(size)
		if pad := padding(size); pad <= len(data)-off {
			off += pad
		} else {
			off = len(data)
		}
		switch typ {
		case typeReg, typeRegOld, typeCont:
		case typeGNULong:
			longName = cstring(content)
			continue
		case typePAX:
			if path, ok := paxPath(content); ok {
				longName = path
			}
			continue
		default:
			longName = ""
			continue
		}
		if longName != "" {
			name, longName = longName, ""
		}
		name = cleanName(name)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		if _, ok := a.files[name]; ok {
			return nil, malformed(off, "duplicate entry %q", name)
		}
		a.names = append(a.names, name)
		a.files[name] = bytes.Clone(content)
	}
	return a, nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func padding(size uint64) int {
	return int((BlockSize - size%BlockSize) % BlockSize)
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func cleanName(name string) string {
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}
	if name == "." {
		return ""
	}
	return name
}

// parseOctal parses a space or NUL padded ASCII octal number.
func parseOctal(field []byte) (uint64, error) {
	if field[0]&0x80 != 0 {
		return 0, errors.New("base-256 numbers are not supported")
	}
	s := strings.Trim(string(field), " \x00")
	if s == "" {
		return 0, errors.New("empty")
	}
	n, err := strconv.ParseUint(s, 8, 63)
	if err != nil {
		return 0, fmt.Errorf("%q is not an octal number", s)
	}
	return n, nil
}

// checkSum verifies the header checksum. Both the unsigned and the historic
// signed sums are accepted. Headers that carry only the name and the size
// leave the field blank and are not checked.
func checkSum(hdr []byte) error {
	field := hdr[hSum : hSum+hSumLen]
	if len(bytes.Trim(field, " \x00")) == 0 {
		return nil
	}
	want, err := parseOctal(field)
	if err != nil {
		return fmt.Errorf("bad checksum field: %v", err)
	}
	u, s := headerSums(hdr)
	if want != uint64(u) && int64(want) != s {
		return fmt.Errorf("header checksum mismatch: %#o != %#o", want, u)
	}
	return nil
}

func headerSums(hdr []byte) (unsigned uint32, signed int64) {
	for i, c := range hdr {
		if i >= hSum && i < hSum+hSumLen {
			c = ' '
		}
		unsigned += uint32(c)
		signed += int64(int8(c))
	}
	return
}

// paxPath extracts the path record from the extended header content.
func paxPath(content []byte) (string, bool) {
	for len(content) > 0 {
		sp := bytes.IndexByte(content, ' ')
		if sp <= 0 {
			return "", false
		}
		n, err := strconv.Atoi(string(content[:sp]))
		if err != nil || n <= sp || n > len(content) {
			return "", false
		}
		rec := content[sp+1 : n]
		content = content[n:]
		rec = bytes.TrimSuffix(rec, []byte{'\n'})
		if k, v, ok := bytes.Cut(rec, []byte{'='}); ok && string(k) == "path" {
			return string(v), true
		}
	}
	return "", false
}
