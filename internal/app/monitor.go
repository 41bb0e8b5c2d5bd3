// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/gps_replay/internal/config"
	"github.com/relabs-tech/gps_replay/internal/gps"
	"github.com/relabs-tech/gps_replay/internal/sink"
	"github.com/relabs-tech/gps_replay/pkg/logger"
)

// RunMonitor subscribes to the replay topic and prints every event it
// receives, with how late it arrived, until ctx is cancelled.
func RunMonitor(ctx context.Context, cfg *config.Config, out io.Writer) error {
	log := logger.Named("monitor")

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID("gps-replay-monitor-" + uuid.NewString()[:8]).
		SetConnectTimeout(cfg.MQTTConnectTimeout())

	client := mqtt.NewClient(opts)
	if err := sink.WaitToken(ctx, client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", cfg.MQTTBroker, err)
	}
	defer client.Disconnect(250)
	log.Info(ctx, "connected to MQTT broker", logger.String("broker", cfg.MQTTBroker))

	token := client.Subscribe(cfg.MQTTTopic, byte(cfg.MQTTQoS), func(_ mqtt.Client, msg mqtt.Message) {
		line, err := formatReceived(msg.Payload(), time.Now())
		if err != nil {
			log.Warn(ctx, "event unmarshal error", logger.String("topic", msg.Topic()), logger.Error(err))
			return
		}
		fmt.Fprintln(out, line)
	})
	if err := sink.WaitToken(ctx, token); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", cfg.MQTTTopic, err)
	}
	log.Info(ctx, "subscribed", logger.String("topic", cfg.MQTTTopic))

	<-ctx.Done()
	log.Info(ctx, "shutting down")
	return nil
}

// formatReceived renders one received event; lag is now minus the event's
// emission time.
func formatReceived(payload []byte, now time.Time) (string, error) {
	var ev gps.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", err
	}
	lag := now.Sub(ev.Time()).Round(time.Millisecond)
	return fmt.Sprintf("[GPS ]  lat=%.6f lon=%.6f ts=%d lag=%s",
		ev.Latitude, ev.Longitude, ev.Timestamp, lag), nil
}
