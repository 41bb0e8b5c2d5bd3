// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package replay

import (
	"time"

	"github.com/relabs-tech/gps_replay/pkg/logger"
)

// Metrics receives replay progress. *metrics.Manager implements it.
type Metrics interface {
	SetTrackPoints(n int)
	IncEmitted()
	IncDelaysClamped()
	ObserveDelay(d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) SetTrackPoints(int)         {}
func (nopMetrics) IncEmitted()                {}
func (nopMetrics) IncDelaysClamped()          {}
func (nopMetrics) ObserveDelay(time.Duration) {}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, typically with a virtual one in tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger used for replay warnings.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records replay progress.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithOnStart is called once with the track summary before the first delay.
func WithOnStart(fn func(Summary)) Option {
	return func(s *Scheduler) {
		s.onStart = fn
	}
}
