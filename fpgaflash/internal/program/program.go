// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package program executes flash plans using an external programmer and
// reads the manifests back from the flash.
package program

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/embeddedgo/fpga/fpgaflash/internal/layout"
)

// ErrProgrammer is matched by all errors reported by a Programmer.
var ErrProgrammer = errors.New("programmer failure")

// Error describes the failed operation.
type Error struct {
	Index    int // index of the operation in the plan, -1 for read-back
	Filename string
	Offset   uint32
	Err      error
}

func (e *Error) Unwrap() []error {
	return []error{ErrProgrammer, e.Err}
}

func (e *Error) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("program: read %s at %#x: %v", e.Filename, e.Offset, e.Err)
	}
	return fmt.Sprintf("program: operation %d (%s at %#x): %v", e.Index, e.Filename, e.Offset, e.Err)
}

// Programmer performs blocking flash transactions.
type Programmer interface {
	// Program writes op.Data at op.Offset.
	Program(ctx context.Context, op layout.Op) error

	// Dump reads size bytes at offset.
	Dump(ctx context.Context, offset, size uint32, skipReset bool) ([]byte, error)
}

// Progress is reported after every completed operation.
type Progress struct {
	Done  int
	Total int
	Op    *layout.Op
}

type ProgressFunc func(Progress)

type config struct {
	progress ProgressFunc
	out      io.Writer
}

type Option func(*config)

// WithProgress sets a function called after every completed operation.
func WithProgress(f ProgressFunc) Option {
	return func(c *config) {
		c.progress = f
	}
}

// WithOutput makes Execute describe every operation on w before it starts.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// Execute runs ops strictly in order. It stops at the first failed
// operation. Nothing is rolled back so the flash contains whatever completed
// before the failure. Cancellation is checked between operations only.
func Execute(ctx context.Context, p Programmer, ops []layout.Op, opts ...Option) error {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	for i := range ops {
		op := &ops[i]
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("program: cancelled before operation %d: %w", i, err)
		}
		if cfg.out != nil {
			fmt.Fprintf(cfg.out, "write %s at %#x (%s, %d bytes", op.Filename, op.Offset, op.FileType, len(op.Data))
			if op.SkipReset {
				io.WriteString(cfg.out, ", skip reset")
			}
			io.WriteString(cfg.out, ")\n")
		}
		if err := p.Program(ctx, *op); err != nil {
			return &Error{i, op.Filename, op.Offset, err}
		}
		if cfg.progress != nil {
			cfg.progress(Progress{i + 1, len(ops), op})
		}
	}
	return nil
}
