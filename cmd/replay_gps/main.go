// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/gps_replay/internal/app"
	"github.com/relabs-tech/gps_replay/internal/config"
	"github.com/relabs-tech/gps_replay/pkg/logger"
)

// exitInterrupted is the status used when a replay is stopped by a signal.
const exitInterrupted = 1

func main() {
	file := flag.String("file", "", "track to replay: JSON array, NMEA log (.nmea) or SQLite database (.db)")
	flag.Parse()

	logger.Init(os.Stderr)
	log := logger.Get()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "missing required flag --file")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sink selection and transport settings come from $REPLAY_CONFIG and REPLAY_* variables.
	if err := config.InitGlobal(""); err != nil {
		log.Fatal(ctx, "failed to load config", logger.Error(err))
	}
	cfg := config.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level, using info", logger.String("log_level", cfg.LogLevel))
	}

	log.Info(ctx, "starting gps replay", logger.String("file", *file), logger.String("sinks", cfg.Sinks))

	if err := app.RunReplay(ctx, cfg, *file); err != nil {
		if ctx.Err() != nil {
			os.Exit(exitInterrupted)
		}
		log.Fatal(ctx, "replay failed", logger.Error(err))
	}
}
