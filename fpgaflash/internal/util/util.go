// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/embeddedgo/fpga/fpgaflash/internal/program"
)

// Warn prints a diagnostic message on stderr.
func Warn(f string, args ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
}

// Exit statuses. A bundle rejected before the flash was touched exits with
// ExitInvalid. A failed flash transaction exits with ExitProgrammer and an
// interrupted batch with ExitCancelled. In both cases the flash may hold a
// part of the bundle.
const (
	ExitInvalid    = 1
	ExitProgrammer = 2
	ExitCancelled  = 130
)

// ExitCode returns the exit status for err.
func ExitCode(err error) int {
	switch {
	case errors.Is(err, program.ErrProgrammer):
		return ExitProgrammer
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	}
	return ExitInvalid
}

func Fatal(f string, args ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	os.Exit(ExitInvalid)
}

// FatalErr prints an error description and exits the program if the
// err != nil. The exit status is ExitCode(err).
func FatalErr(what string, err error) {
	if err == nil {
		return
	}
	s := err.Error() + "\n"
	if what != "" {
		s = what + ": " + s
	}
	os.Stderr.WriteString(s)
	os.Exit(ExitCode(err))
}

// Confirm asks the question on stderr and reads the answer from r. Only an
// answer starting with y or Y confirms.
func Confirm(r io.Reader, question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.TrimSpace(answer)
	return answer != "" && (answer[0] == 'y' || answer[0] == 'Y')
}

var pbuf = make([]byte, 80)

const (
	ptodo = "                         ] "
	pdone = " [========================="
)

// Progress draws a progress bar on stderr. The line is finished when cur
// reaches max.
func Progress(pre string, cur, max, scale int, post string) {
	if max <= 0 {
		return
	}
	pbuf = pbuf[:0]
	pbuf = append(pbuf, '\r')
	pbuf = append(pbuf, pre...)
	done := 25 * cur / max
	pbuf = append(pbuf, pdone[:2+done]...)
	pbuf = append(pbuf, ptodo[done:]...)
	pbuf = strconv.AppendInt(pbuf, int64(cur/scale), 10)
	pbuf = append(pbuf, '/')
	pbuf = strconv.AppendInt(pbuf, int64(max/scale), 10)
	pbuf = append(pbuf, ' ')
	pbuf = append(pbuf, post...)
	if cur == max {
		pbuf = append(pbuf, '\n')
	}
	os.Stderr.Write(pbuf)
}
