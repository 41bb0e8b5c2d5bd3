// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package replay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/relabs-tech/gps_replay/internal/gps"
)

// fakeClock advances only when slept on.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

type recordingSink struct {
	events []gps.Event
	err    error
	failAt int
}

func (r *recordingSink) Emit(_ context.Context, ev gps.Event) error {
	if r.err != nil && len(r.events) == r.failAt {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

type countingMetrics struct {
	points  int
	emitted int
	clamped int
	delays  []time.Duration
}

func (m *countingMetrics) SetTrackPoints(n int)         { m.points = n }
func (m *countingMetrics) IncEmitted()                  { m.emitted++ }
func (m *countingMetrics) IncDelaysClamped()            { m.clamped++ }
func (m *countingMetrics) ObserveDelay(d time.Duration) { m.delays = append(m.delays, d) }

var threePoints = gps.Track{
	{Latitude: 1, Longitude: 1, Timestamp: 1000},
	{Latitude: 2, Longitude: 2, Timestamp: 1500},
	{Latitude: 3, Longitude: 3, Timestamp: 3000},
}

func TestSchedulerRun(t *testing.T) {
	Convey("Given a three point track on a virtual clock", t, func() {
		clock := newFakeClock()
		start := clock.Now()
		sink := &recordingSink{}
		m := &countingMetrics{}
		var summary *Summary

		s := New(threePoints, sink,
			WithClock(clock),
			WithMetrics(m),
			WithOnStart(func(sum Summary) { summary = &sum }),
		)

		err := s.Run(context.Background())

		Convey("Then the summary is reported before replay", func() {
			So(err, ShouldBeNil)
			So(summary, ShouldNotBeNil)
			So(summary.Points, ShouldEqual, 3)
			So(summary.Duration, ShouldEqual, 2000*time.Millisecond)
			So(s.Summary(), ShouldResemble, *summary)
		})

		Convey("Then the recorded gaps are slept between points", func() {
			So(clock.sleeps, ShouldResemble, []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond})
		})

		Convey("Then one event per point is emitted in order with fresh timestamps", func() {
			So(len(sink.events), ShouldEqual, 3)
			for i, ev := range sink.events {
				So(ev.Latitude, ShouldEqual, threePoints[i].Latitude)
				So(ev.Longitude, ShouldEqual, threePoints[i].Longitude)
				So(ev.Timestamp, ShouldBeGreaterThanOrEqualTo, uint64(start.UnixMilli()))
			}
			So(sink.events[0].Timestamp, ShouldEqual, uint64(start.UnixMilli()))
			So(sink.events[1].Timestamp, ShouldEqual, uint64(start.UnixMilli()+500))
			So(sink.events[2].Timestamp, ShouldEqual, uint64(start.UnixMilli()+2000))
		})

		Convey("Then metrics follow the replay", func() {
			So(m.points, ShouldEqual, 3)
			So(m.emitted, ShouldEqual, 3)
			So(m.clamped, ShouldEqual, 0)
			So(m.delays, ShouldResemble, clock.sleeps)
		})

		Convey("Then a second run is refused", func() {
			err := s.Run(context.Background())
			So(errors.Is(err, ErrAlreadyStarted), ShouldBeTrue)
			So(len(sink.events), ShouldEqual, 3)
		})
	})

	Convey("Given an empty track", t, func() {
		clock := newFakeClock()
		sink := &recordingSink{}
		var summary *Summary

		err := New(gps.Track{}, sink,
			WithClock(clock),
			WithOnStart(func(sum Summary) { summary = &sum }),
		).Run(context.Background())

		Convey("Then zero points and zero duration are reported and nothing is emitted", func() {
			So(err, ShouldBeNil)
			So(summary, ShouldResemble, &Summary{Points: 0, Duration: 0})
			So(sink.events, ShouldBeEmpty)
			So(clock.sleeps, ShouldBeEmpty)
		})
	})

	Convey("Given a single point track", t, func() {
		clock := newFakeClock()
		sink := &recordingSink{}

		err := New(gps.Track{{Latitude: 5, Longitude: 6, Timestamp: 99}}, sink, WithClock(clock)).Run(context.Background())

		Convey("Then it is emitted immediately", func() {
			So(err, ShouldBeNil)
			So(len(sink.events), ShouldEqual, 1)
			So(clock.sleeps, ShouldBeEmpty)
		})
	})

	Convey("Given a track whose timestamps go backwards", t, func() {
		clock := newFakeClock()
		sink := &recordingSink{}
		m := &countingMetrics{}
		track := gps.Track{{Timestamp: 5000}, {Timestamp: 4000}, {Timestamp: 4000}, {Timestamp: 4250}}
		var summary Summary

		err := New(track, sink, WithClock(clock), WithMetrics(m), WithOnStart(func(s Summary) { summary = s })).Run(context.Background())

		Convey("Then backwards steps are replayed without delay", func() {
			So(err, ShouldBeNil)
			So(len(sink.events), ShouldEqual, 4)
			So(clock.sleeps, ShouldResemble, []time.Duration{0, 0, 250 * time.Millisecond})
			So(m.clamped, ShouldEqual, 1)
		})

		Convey("Then the reported duration is negative", func() {
			So(summary.Duration, ShouldEqual, -750*time.Millisecond)
		})
	})
}

func TestSchedulerCancel(t *testing.T) {
	Convey("Given a replay interrupted during a delay", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		clock := newFakeClock()
		clock.onSleep = func(time.Duration) { cancel() }
		sink := &recordingSink{}

		err := New(threePoints, sink, WithClock(clock)).Run(ctx)

		Convey("Then the pending event is never emitted", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(len(sink.events), ShouldEqual, 1)
			So(len(clock.sleeps), ShouldEqual, 1)
		})
	})

	Convey("Given a context cancelled before replay", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sink := &recordingSink{}
		started := false

		err := New(threePoints, sink,
			WithClock(newFakeClock()),
			WithOnStart(func(Summary) { started = true }),
		).Run(ctx)

		Convey("Then nothing is emitted and no summary is reported", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(sink.events, ShouldBeEmpty)
			So(started, ShouldBeFalse)
		})
	})

	Convey("Given a wall clock sleep", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		began := time.Now()
		err := WallClock{}.Sleep(ctx, 10*time.Second)

		Convey("Then cancellation ends it early", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(time.Since(began), ShouldBeLessThan, 2*time.Second)
		})
	})
}

func TestSchedulerSinkError(t *testing.T) {
	Convey("Given a sink that fails on the second event", t, func() {
		boom := errors.New("broker gone")
		sink := &recordingSink{err: boom, failAt: 1}
		m := &countingMetrics{}

		err := New(threePoints, sink, WithClock(newFakeClock()), WithMetrics(m)).Run(context.Background())

		Convey("Then the replay stops with the sink error", func() {
			So(errors.Is(err, ErrEmit), ShouldBeTrue)
			So(errors.Is(err, boom), ShouldBeTrue)
			So(len(sink.events), ShouldEqual, 1)
			So(m.emitted, ShouldEqual, 1)
		})
	})
}

func TestSchedulerEvents(t *testing.T) {
	Convey("Given a consumer that stops early", t, func() {
		clock := newFakeClock()
		s := New(threePoints, nil, WithClock(clock))

		var got []gps.Event
		for ev, err := range s.Events(context.Background()) {
			So(err, ShouldBeNil)
			got = append(got, ev)
			if len(got) == 2 {
				break
			}
		}

		Convey("Then no further delay is slept", func() {
			So(len(got), ShouldEqual, 2)
			So(clock.sleeps, ShouldResemble, []time.Duration{500 * time.Millisecond})
		})
	})
}

func TestSchedulerRealTime(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps in real time")
	}

	Convey("Given a short track replayed on the wall clock", t, func() {
		track := gps.Track{
			{Latitude: 1, Longitude: 1, Timestamp: 10_000},
			{Latitude: 2, Longitude: 2, Timestamp: 10_060},
			{Latitude: 3, Longitude: 3, Timestamp: 10_180},
		}
		var emittedAt []time.Time
		sink := SinkFunc(func(_ context.Context, _ gps.Event) error {
			emittedAt = append(emittedAt, time.Now())
			return nil
		})

		began := time.Now()
		err := New(track, sink).Run(context.Background())

		Convey("Then the gaps between emissions follow the recording", func() {
			So(err, ShouldBeNil)
			So(len(emittedAt), ShouldEqual, 3)
			So(emittedAt[0].Sub(began), ShouldBeLessThan, 50*time.Millisecond)

			for i, want := range []time.Duration{60 * time.Millisecond, 120 * time.Millisecond} {
				gap := emittedAt[i+1].Sub(emittedAt[i])
				So(gap, ShouldBeGreaterThanOrEqualTo, want-5*time.Millisecond)
				So(gap, ShouldBeLessThan, want+100*time.Millisecond)
			}
		})
	})
}
