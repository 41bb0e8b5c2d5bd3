// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package replay turns a recorded track back into a live stream of events,
// waiting between points for as long as the original capture did.
package replay

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/gps_replay/internal/gps"
	"github.com/relabs-tech/gps_replay/pkg/logger"
)

var (
	// ErrAlreadyStarted is yielded when a scheduler is iterated a second time.
	ErrAlreadyStarted = errors.New("replay already started")
	// ErrEmit wraps the error of a sink that failed to take an event.
	ErrEmit = errors.New("emit failed")
)

// Sink receives every replayed event, in order.
type Sink interface {
	Emit(ctx context.Context, ev gps.Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, ev gps.Event) error

func (f SinkFunc) Emit(ctx context.Context, ev gps.Event) error { return f(ctx, ev) }

// Summary describes a track before it is replayed.
type Summary struct {
	Points   int
	Duration time.Duration
}

// Scheduler replays one track exactly once.
type Scheduler struct {
	track   gps.Track
	sink    Sink
	clock   Clock
	logger  logger.Logger
	metrics Metrics
	onStart func(Summary)

	started atomic.Bool
}

// New prepares a replay of track into sink. The track is read, never modified.
func New(track gps.Track, sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		track:   track,
		sink:    sink,
		clock:   WallClock{},
		logger:  logger.Nop(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary returns the point count and the nominal duration of the track.
func (s *Scheduler) Summary() Summary {
	return Summary{Points: len(s.track), Duration: s.track.Duration()}
}

// Events yields one event per track point, in track order, sleeping the
// recorded gap before every point but the first. Each event carries the
// point's position and the clock time at which it was produced.
//
// Cancelling ctx stops the sequence: no further event is produced and
// ctx.Err() is yielded. The sequence can be consumed only once; later
// attempts yield ErrAlreadyStarted.
func (s *Scheduler) Events(ctx context.Context) iter.Seq2[gps.Event, error] {
	return func(yield func(gps.Event, error) bool) {
		if !s.started.CompareAndSwap(false, true) {
			yield(gps.Event{}, ErrAlreadyStarted)
			return
		}

		if err := ctx.Err(); err != nil {
			yield(gps.Event{}, err)
			return
		}

		s.metrics.SetTrackPoints(len(s.track))
		if s.onStart != nil {
			s.onStart(s.Summary())
		}

		for i, p := range s.track {
			if err := ctx.Err(); err != nil {
				yield(gps.Event{}, err)
				return
			}
			if i > 0 {
				if err := s.wait(ctx, i); err != nil {
					yield(gps.Event{}, err)
					return
				}
				if err := ctx.Err(); err != nil {
					yield(gps.Event{}, err)
					return
				}
			}

			if !yield(gps.NewEvent(p, s.clock.Now()), nil) {
				return
			}
		}
	}
}

// wait sleeps the recorded gap before point i. Timestamps going backwards
// are replayed without delay.
func (s *Scheduler) wait(ctx context.Context, i int) error {
	d := gps.Delay(s.track[i-1], s.track[i])
	if d < 0 {
		s.logger.Warn(ctx, "timestamp goes backwards, emitting without delay",
			logger.Int("index", i),
			logger.Duration("delta", d),
		)
		s.metrics.IncDelaysClamped()
		d = 0
	}
	s.metrics.ObserveDelay(d)
	return s.clock.Sleep(ctx, d)
}

// Run replays the whole track into the sink and returns once the last
// event has been emitted. It returns ctx.Err() when cancelled and stops at
// the first sink error.
func (s *Scheduler) Run(ctx context.Context) error {
	for ev, err := range s.Events(ctx) {
		if err != nil {
			return err
		}
		if err := s.sink.Emit(ctx, ev); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %w", ErrEmit, err)
		}
		s.metrics.IncEmitted()
	}
	return nil
}
