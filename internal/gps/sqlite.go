// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// TrackTable is the table LoadSQLite reads from.
const TrackTable = "track_points"

const selectTrack = `SELECT latitude, longitude, timestamp FROM ` + TrackTable + ` ORDER BY rowid`

// LoadSQLite reads a track recorded into a SQLite database. The database is
// opened read-only and rows are returned in insertion order.
func LoadSQLite(ctx context.Context, path string) (Track, error) {
	cleanPath := filepath.Clean(path)
	// sql.Open would silently create a missing database
	if _, err := os.Stat(cleanPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	db, err := sql.Open("sqlite", "file:"+cleanPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %v", ErrOpen, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: ping sqlite db: %v", ErrOpen, err)
	}

	rows, err := db.QueryContext(ctx, selectTrack)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrFormat, TrackTable, err)
	}
	defer rows.Close()

	track := Track{}
	for rows.Next() {
		var (
			lat, lon float64
			ts       int64
		)
		if err := rows.Scan(&lat, &lon, &ts); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrFormat, len(track), err)
		}
		if ts < 0 {
			return nil, fmt.Errorf("%w: row %d: negative timestamp %d", ErrFormat, len(track), ts)
		}
		track = append(track, Point{Latitude: lat, Longitude: lon, Timestamp: uint64(ts)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	return track, nil
}
