// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/relabs-tech/gps_replay/internal/config"
	"github.com/relabs-tech/gps_replay/internal/gps"
	"github.com/relabs-tech/gps_replay/internal/replay"
	"github.com/relabs-tech/gps_replay/internal/sink"
	"github.com/relabs-tech/gps_replay/pkg/logger"
	"github.com/relabs-tech/gps_replay/pkg/metrics"
)

// RunReplay loads the track at path and replays it in real time into the
// configured sinks, printing status and console events to stdout.
//
// Load and format errors are returned before anything is emitted. When ctx is
// cancelled the replay stops where it is and ctx.Err() is returned without
// closing sinks; the caller is expected to exit.
func RunReplay(ctx context.Context, cfg *config.Config, path string) error {
	return runReplay(ctx, cfg, path, os.Stdout, replay.WallClock{})
}

func runReplay(ctx context.Context, cfg *config.Config, path string, stdout io.Writer, clock replay.Clock) error {
	runID := uuid.NewString()
	log := logger.Named("replay").With(logger.String("run_id", runID))

	// ---- 1) Load the whole track before any timed work ----
	track, err := gps.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	if cfg.StrictOrder {
		if err := track.CheckOrder(); err != nil {
			return err
		}
	}
	log.Info(ctx, "track loaded", logger.String("file", path), logger.Int("points", len(track)))

	// ---- 2) Outputs ----
	m := metrics.NewManager()
	out, hub, err := buildSinks(ctx, cfg, runID, stdout, m, log)
	if err != nil {
		return err
	}

	stopWeb := func() {}
	if cfg.WebAddr != "" {
		stopWeb, err = startWeb(ctx, cfg.WebAddr, newWebMux(hub, m, log), log)
		if err != nil {
			_ = out.Close()
			return err
		}
	}

	// ---- 3) Replay ----
	status := NewStatus(stdout, colorEnabled(cfg.Color, stdout))
	scheduler := replay.New(track, out,
		replay.WithClock(clock),
		replay.WithLogger(log),
		replay.WithMetrics(m),
		replay.WithOnStart(status.Start),
	)

	if err := scheduler.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		_ = out.Close()
		stopWeb()
		return err
	}

	if err := out.Close(); err != nil {
		log.Warn(ctx, "closing sinks", logger.Error(err))
	}
	stopWeb()
	log.Info(ctx, "replay finished", logger.Int("points", len(track)))
	return nil
}

// buildSinks opens the configured sinks in order. The hub is returned
// separately because the web server reads the latest position from it.
func buildSinks(ctx context.Context, cfg *config.Config, runID string, stdout io.Writer, m *metrics.Manager, log logger.Logger) (*sink.Multi, *sink.Hub, error) {
	var (
		targets []sink.Target
		hub     *sink.Hub
	)
	fail := func(err error) (*sink.Multi, *sink.Hub, error) {
		_ = sink.NewMulti(nil, targets...).Close()
		return nil, nil, err
	}

	for _, name := range cfg.SinkNames() {
		switch name {
		case config.SinkConsole:
			targets = append(targets, sink.Target{Name: name, Sink: sink.NewConsole(stdout)})

		case config.SinkMQTT:
			clientID := cfg.MQTTClientID
			if clientID == "" {
				clientID = "gps-replay-" + runID[:8]
			}
			mq, err := sink.DialMQTT(ctx, sink.MQTTOptions{
				Broker:         cfg.MQTTBroker,
				ClientID:       clientID,
				Topic:          cfg.MQTTTopic,
				QoS:            byte(cfg.MQTTQoS),
				Retained:       cfg.MQTTRetained,
				ConnectTimeout: cfg.MQTTConnectTimeout(),
			}, log)
			if err != nil {
				return fail(err)
			}
			targets = append(targets, sink.Target{Name: name, Sink: mq})

		case config.SinkWebSocket:
			hub = sink.NewHub(log.Named("websocket"))
			targets = append(targets, sink.Target{Name: name, Sink: hub})

		case config.SinkSerial:
			s, err := sink.OpenSerial(cfg.SerialPort, cfg.SerialBaudRate, cfg.SerialFormat)
			if err != nil {
				return fail(err)
			}
			log.Info(ctx, "serial port opened",
				logger.String("port", cfg.SerialPort),
				logger.Int("baud", cfg.SerialBaudRate),
				logger.String("format", cfg.SerialFormat),
			)
			targets = append(targets, sink.Target{Name: name, Sink: s})
		}
	}

	return sink.NewMulti(m, targets...), hub, nil
}
