// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile reads a whole capture and returns its track. SQLite databases are
// picked by extension. Other files are NMEA logs when named like one and not
// starting with a JSON array, and a JSON array of points otherwise.
func LoadFile(ctx context.Context, path string) (Track, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	switch ext {
	case ".nmea", ".nmea0183", ".gps":
		if !looksLikeJSONArray(data) {
			return DecodeNMEA(bytes.NewReader(data))
		}
	}
	return DecodeJSON(bytes.NewReader(data))
}

func looksLikeJSONArray(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// rawPoint tracks which fields were present so missing ones can be rejected.
type rawPoint struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp *uint64  `json:"timestamp"`
}

func (r rawPoint) point() (Point, error) {
	switch {
	case r.Latitude == nil:
		return Point{}, errors.New(`missing field "latitude"`)
	case r.Longitude == nil:
		return Point{}, errors.New(`missing field "longitude"`)
	case r.Timestamp == nil:
		return Point{}, errors.New(`missing field "timestamp"`)
	}
	return Point{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Timestamp: *r.Timestamp,
	}, nil
}

// DecodeJSON parses a JSON array of points. An empty array is a valid,
// empty track; any other top-level value, a point missing a field, or data
// after the closing bracket is an ErrFormat.
func DecodeJSON(r io.Reader) (Track, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%w: top-level value must be an array", ErrFormat)
	}

	track := Track{}
	for dec.More() {
		var raw rawPoint
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrFormat, len(track), err)
		}
		p, err := raw.point()
		if err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrFormat, len(track), err)
		}
		track = append(track, p)
	}

	// closing bracket
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after array", ErrFormat)
	}

	return track, nil
}
