// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// maxSentenceLine bounds one log line. NMEA sentences are at most 82 bytes;
// the slack covers vendor extensions and junk between line breaks.
const maxSentenceLine = 64 * 1024

// DecodeNMEA builds a track from a raw NMEA 0183 log. Only valid RMC fixes
// carrying both a date and a time are used; their UTC instant becomes the
// point timestamp. Other sentences and garbled lines are skipped, but a log
// without a single parseable sentence is an ErrFormat.
func DecodeNMEA(r io.Reader) (Track, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxSentenceLine)
	track := Track{}
	sentences := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy receivers write partial sentences
			continue
		}
		sentences++

		rmc, ok := sentence.(nmea.RMC)
		if !ok {
			continue
		}
		if rmc.Validity != nmea.ValidRMC || !rmc.Date.Valid || !rmc.Time.Valid {
			continue
		}

		at := rmcTime(rmc.Date, rmc.Time)
		if at.Before(time.Unix(0, 0)) {
			continue
		}

		track = append(track, Point{
			Latitude:  rmc.Latitude,
			Longitude: rmc.Longitude,
			Timestamp: uint64(at.UnixMilli()),
		})
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line longer than %d bytes", ErrFormat, maxSentenceLine)
		}
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if sentences == 0 {
		return nil, fmt.Errorf("%w: no NMEA sentence found", ErrFormat)
	}
	return track, nil
}

// rmcTime joins the two-digit RMC date with its time of day.
func rmcTime(d nmea.Date, t nmea.Time) time.Time {
	year := 2000 + d.YY
	if d.YY >= 80 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
