// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "errors"

var (
	// ErrOpen means the capture could not be opened or read.
	ErrOpen = errors.New("unable to read track")
	// ErrFormat means the capture was read but does not hold a track.
	ErrFormat = errors.New("invalid track format")
	// ErrUnsorted means timestamps decrease somewhere in the track.
	ErrUnsorted = errors.New("track is not sorted by timestamp")
)
