// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sink holds the outputs replayed events can be sent to.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/relabs-tech/gps_replay/internal/gps"
)

// Emitter takes one event at a time.
type Emitter interface {
	Emit(ctx context.Context, ev gps.Event) error
}

// ErrorCounter counts failed deliveries per sink.
type ErrorCounter interface {
	IncEmitErrors(sink string)
}

// Console writes each event as one JSON line.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a console sink writing to w, usually os.Stdout.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Emit(_ context.Context, ev gps.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	payload = append(payload, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.w.Write(payload)
	return err
}

// Target is an emitter with the name it was configured under.
type Target struct {
	Name string
	Sink Emitter
}

// Multi sends every event to several sinks, in order.
type Multi struct {
	targets []Target
	errs    ErrorCounter
}

// NewMulti fans out to targets. errs may be nil.
func NewMulti(errs ErrorCounter, targets ...Target) *Multi {
	return &Multi{targets: targets, errs: errs}
}

// Emit stops at the first sink that fails.
func (m *Multi) Emit(ctx context.Context, ev gps.Event) error {
	for _, t := range m.targets {
		if err := t.Sink.Emit(ctx, ev); err != nil {
			if m.errs != nil {
				m.errs.IncEmitErrors(t.Name)
			}
			return fmt.Errorf("%s sink: %w", t.Name, err)
		}
	}
	return nil
}

// Close closes every target that can be closed.
func (m *Multi) Close() error {
	var errs []error
	for _, t := range m.targets {
		if c, ok := t.Sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s sink: %w", t.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
