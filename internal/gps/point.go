// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"math"
	"time"
)

// maxMillis is the largest millisecond count that still fits in a time.Duration.
const maxMillis = uint64(math.MaxInt64 / int64(time.Millisecond))

// Point is one recorded GPS sample as found in a capture file.
type Point struct {
	Latitude  float64 `json:"latitude"`  // decimal degrees
	Longitude float64 `json:"longitude"` // decimal degrees
	Timestamp uint64  `json:"timestamp"` // ms since the capture's reference epoch
}

// Event is a Point replayed at a new moment. Timestamp is wall clock
// milliseconds since the UNIX epoch, sampled when the event was emitted.
type Event struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp uint64  `json:"timestamp"`
}

// NewEvent keeps the position of p and stamps it with now.
func NewEvent(p Point, now time.Time) Event {
	ms := now.UnixMilli()
	if ms < 0 {
		ms = 0
	}
	return Event{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Timestamp: uint64(ms),
	}
}

// Time returns the emission time of the event. Timestamps past the int64
// range saturate.
func (e Event) Time() time.Time {
	return time.UnixMilli(int64(min(e.Timestamp, math.MaxInt64)))
}

// Track is the full ordered recording for one replay run.
type Track []Point

// Duration is the span between the first and the last timestamp.
// A track whose last point is older than its first yields a negative value.
func (t Track) Duration() time.Duration {
	if len(t) == 0 {
		return 0
	}
	return Delay(t[0], t[len(t)-1])
}

// CheckOrder reports the first place where timestamps go backwards.
func (t Track) CheckOrder() error {
	for i := 1; i < len(t); i++ {
		if t[i].Timestamp < t[i-1].Timestamp {
			return fmt.Errorf("%w: point %d at %d ms is earlier than point %d at %d ms",
				ErrUnsorted, i, t[i].Timestamp, i-1, t[i-1].Timestamp)
		}
	}
	return nil
}

// Delay is the signed time between two samples. Differences larger than
// time.Duration can hold saturate instead of wrapping.
func Delay(prev, next Point) time.Duration {
	if next.Timestamp >= prev.Timestamp {
		return millis(next.Timestamp - prev.Timestamp)
	}
	return -millis(prev.Timestamp - next.Timestamp)
}

func millis(ms uint64) time.Duration {
	if ms > maxMillis {
		ms = maxMillis
	}
	return time.Duration(ms) * time.Millisecond
}
