// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gps_replay/internal/gps"
)

// Serial line formats.
const (
	FormatNMEA = "nmea"
	FormatJSON = "json"
)

// Serial writes events to a serial line, so a replay can stand in for a
// real GPS receiver.
type Serial struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

// OpenSerial opens the port 8N1 at the given baud rate.
func OpenSerial(portName string, baudRate int, format string) (*Serial, error) {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return NewSerial(port, format), nil
}

// NewSerial writes to w, one line per event.
func NewSerial(w io.Writer, format string) *Serial {
	return &Serial{w: w, format: format}
}

func (s *Serial) Emit(_ context.Context, ev gps.Event) error {
	var line []byte
	switch s.format {
	case FormatJSON:
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		line = append(payload, '\n')
	default:
		line = []byte(FormatRMC(ev) + "\r\n")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(line)
	return err
}

// Close closes the underlying port when it has one.
func (s *Serial) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FormatRMC encodes ev as a $GPRMC sentence with a valid fix, zero speed and
// course, and the event time in UTC.
func FormatRMC(ev gps.Event) string {
	t := ev.Time().UTC()
	lat, ns := nmeaAngle(ev.Latitude, 2, "N", "S")
	lon, ew := nmeaAngle(ev.Longitude, 3, "E", "W")

	body := fmt.Sprintf("GPRMC,%02d%02d%02d.%03d,A,%s,%s,%s,%s,0.0,0.0,%02d%02d%02d,,",
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6,
		lat, ns, lon, ew,
		t.Day(), int(t.Month()), t.Year()%100,
	)
	return "$" + body + "*" + nmea.Checksum(body)
}

// nmeaAngle formats decimal degrees as (d)ddmm.mmmm plus hemisphere.
func nmeaAngle(v float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	// work in 1/10000 of a minute so rounding can carry into the degrees
	total := int64(math.Round(v * 60 * 10000))
	deg := total / 600000
	rem := total % 600000
	return fmt.Sprintf("%0*d%02d.%04d", degDigits, deg, rem/10000, rem%10000), hemi
}
