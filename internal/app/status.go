// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/relabs-tech/gps_replay/internal/replay"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

// Status prints the human readable lines that precede the event stream.
type Status struct {
	w     io.Writer
	color bool
}

// NewStatus writes to w, colored when color is true.
func NewStatus(w io.Writer, color bool) *Status {
	return &Status{w: w, color: color}
}

func (s *Status) paint(code, text string) string {
	if !s.color {
		return text
	}
	return code + text + ansiReset
}

// Start prints the point count and the track duration.
func (s *Status) Start(sum replay.Summary) {
	fmt.Fprintf(s.w, "%s %s %s\n",
		s.paint(ansiGreen, "Replaying"),
		s.paint(ansiBold, fmt.Sprint(sum.Points)),
		s.paint(ansiGreen, "gps points"),
	)
	fmt.Fprintf(s.w, "%s %s\n", s.paint(ansiGreen, "Track duration:"), sum.Duration)
	fmt.Fprintln(s.w, s.paint(ansiBlue, "Replaying..."))
}

// colorEnabled resolves the color setting against the writer: "auto" colors
// only terminals and honours NO_COLOR.
func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
