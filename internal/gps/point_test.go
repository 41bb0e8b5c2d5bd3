// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTrackDuration(t *testing.T) {
	Convey("Given a track", t, func() {
		Convey("When it is empty", func() {
			So(Track{}.Duration(), ShouldEqual, time.Duration(0))
		})

		Convey("When it has a single point", func() {
			So(Track{{Timestamp: 42}}.Duration(), ShouldEqual, time.Duration(0))
		})

		Convey("When it is sorted", func() {
			track := Track{
				{Latitude: 1, Longitude: 1, Timestamp: 1000},
				{Latitude: 2, Longitude: 2, Timestamp: 1500},
				{Latitude: 3, Longitude: 3, Timestamp: 3000},
			}
			So(track.Duration(), ShouldEqual, 2000*time.Millisecond)
		})

		Convey("When the last point is older than the first", func() {
			track := Track{{Timestamp: 5000}, {Timestamp: 9000}, {Timestamp: 2000}}
			So(track.Duration(), ShouldEqual, -3000*time.Millisecond)
		})

		Convey("When the span does not fit in a time.Duration", func() {
			track := Track{{Timestamp: 0}, {Timestamp: math.MaxUint64}}
			So(track.Duration(), ShouldEqual, time.Duration(maxMillis)*time.Millisecond)
			So(track.Duration(), ShouldBeGreaterThan, 0)
		})
	})
}

func TestDelay(t *testing.T) {
	Convey("Delay is the signed gap between two samples", t, func() {
		So(Delay(Point{Timestamp: 1000}, Point{Timestamp: 1500}), ShouldEqual, 500*time.Millisecond)
		So(Delay(Point{Timestamp: 1500}, Point{Timestamp: 1500}), ShouldEqual, time.Duration(0))
		So(Delay(Point{Timestamp: 1500}, Point{Timestamp: 1000}), ShouldEqual, -500*time.Millisecond)
	})
}

func TestCheckOrder(t *testing.T) {
	Convey("Given tracks with different orderings", t, func() {
		So(Track{}.CheckOrder(), ShouldBeNil)
		So(Track{{Timestamp: 1}, {Timestamp: 1}, {Timestamp: 2}}.CheckOrder(), ShouldBeNil)

		err := Track{{Timestamp: 1}, {Timestamp: 3}, {Timestamp: 2}}.CheckOrder()
		So(errors.Is(err, ErrUnsorted), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "point 2")
	})
}

func TestNewEvent(t *testing.T) {
	Convey("Given a recorded point", t, func() {
		p := Point{Latitude: 48.1173, Longitude: 11.5167, Timestamp: 1000}
		now := time.UnixMilli(1_700_000_000_123)

		ev := NewEvent(p, now)

		Convey("Then the position is kept and the timestamp is replaced", func() {
			So(ev.Latitude, ShouldEqual, p.Latitude)
			So(ev.Longitude, ShouldEqual, p.Longitude)
			So(ev.Timestamp, ShouldEqual, uint64(1_700_000_000_123))
			So(ev.Time().Equal(now), ShouldBeTrue)
		})

		Convey("Then a timestamp past the int64 range saturates instead of wrapping", func() {
			far := Event{Timestamp: math.MaxUint64}
			So(far.Time().UnixMilli(), ShouldEqual, int64(math.MaxInt64))
			So(far.Time().After(now), ShouldBeTrue)
		})

		Convey("Then it serializes with the same field names as a point", func() {
			data, err := json.Marshal(ev)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, `{"latitude":48.1173,"longitude":11.5167,"timestamp":1700000000123}`)
		})
	})
}
