// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package program

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/embeddedgo/fpga/fpgaflash/internal/layout"
)

// EnvLoader is the environment variable that overrides the openFPGALoader
// executable.
const EnvLoader = "FPGAFLASH_OPENFPGALOADER"

// Loader is a Programmer that runs openFPGALoader. Operation data is passed
// to it through temporary files.
type Loader struct {
	Path   string // executable
	Cable  string
	Stdout io.Writer
	Stderr io.Writer
}

// NewLoader returns the Loader for the dirtyJtag cable of the debugger.
func NewLoader() *Loader {
	path := os.Getenv(EnvLoader)
	if path == "" {
		path = "openFPGALoader"
	}
	return &Loader{
		Path:   path,
		Cable:  "dirtyJtag",
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// ProgramArgs returns the command line arguments that write file according
// to op.
func (l *Loader) ProgramArgs(op layout.Op, file string) []string {
	args := []string{
		"-c", l.Cable,
		"-f",
		"-o", hex(op.Offset),
		"--file-type", string(op.FileType),
	}
	if op.SkipReset {
		args = append(args, "--skip-reset")
	}
	return append(args, file)
}

// DumpArgs returns the command line arguments that read size bytes at
// offset to file.
func (l *Loader) DumpArgs(offset, size uint32, skipReset bool, file string) []string {
	args := []string{
		"-c", l.Cable,
		"--dump-flash",
		"-o", hex(offset),
		"--file-size", strconv.FormatUint(uint64(size), 10),
	}
	if skipReset {
		args = append(args, "--skip-reset")
	}
	return append(args, file)
}

// CommandLine returns the command that writes op, with op.Filename standing
// for the temporary file.
func (l *Loader) CommandLine(op layout.Op) string {
	return l.Path + " " + strings.Join(l.ProgramArgs(op, op.Filename), " ")
}

func (l *Loader) Program(ctx context.Context, op layout.Op) error {
	dir, err := os.MkdirTemp("", "fpgaflash-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, filepath.Base(op.Filename))
	if err = os.WriteFile(file, op.Data, 0o644); err != nil {
		return err
	}
	return l.run(ctx, l.ProgramArgs(op, file))
}

func (l *Loader) Dump(ctx context.Context, offset, size uint32, skipReset bool) ([]byte, error) {
	dir, err := os.MkdirTemp("", "fpgaflash-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "dump.bin")
	if err = l.run(ctx, l.DumpArgs(offset, size, skipReset, file)); err != nil {
		return nil, err
	}
	return os.ReadFile(file)
}

// ScanUSB returns the output of the openFPGALoader USB scan.
func (l *Loader) ScanUSB(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, l.Path, "--scan-usb").Output()
	if err != nil {
		return "", l.exitErr(err)
	}
	return string(out), nil
}

// run runs a single flash transaction. Cancelling ctx doesn't interrupt it:
// a half written sector is worse than a late stop, so Execute checks ctx
// between transactions only. The process is also kept out of the terminal's
// process group so Ctrl-C doesn't reach it.
func (l *Loader) run(ctx context.Context, args []string) error {
	c := exec.CommandContext(context.WithoutCancel(ctx), l.Path, args...)
	detach(c)
	c.Stdout = l.Stdout
	c.Stderr = l.Stderr
	return l.exitErr(c.Run())
}

func (l *Loader) exitErr(err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return fmt.Errorf("%s exited with status %d", filepath.Base(l.Path), ee.ExitCode())
	}
	return err
}

func hex(u uint32) string {
	return "0x" + strconv.FormatUint(uint64(u), 16)
}
