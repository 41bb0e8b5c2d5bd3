// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/gps_replay/internal/app"
	"github.com/relabs-tech/gps_replay/internal/config"
	"github.com/relabs-tech/gps_replay/pkg/logger"
)

func main() {
	logger.Init(os.Stderr)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "starting gps replay monitor (MQTT subscriber)")

	if err := config.InitGlobal(""); err != nil {
		log.Fatal(ctx, "failed to load config", logger.Error(err))
	}

	if err := app.RunMonitor(ctx, config.Get(), os.Stdout); err != nil {
		log.Fatal(ctx, "monitor failed", logger.Error(err))
	}
}
