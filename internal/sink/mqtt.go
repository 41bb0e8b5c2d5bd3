// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gps_replay/internal/gps"
	"github.com/relabs-tech/gps_replay/pkg/logger"
)

// disconnectQuiesce is how long Disconnect lets in-flight work finish, in ms.
const disconnectQuiesce = 250

// MQTTOptions configures DialMQTT.
type MQTTOptions struct {
	Broker         string
	ClientID       string
	Topic          string
	QoS            byte
	Retained       bool
	ConnectTimeout time.Duration
}

// publisher is the part of mqtt.Client the sink needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every event as JSON on one topic.
type MQTT struct {
	client     publisher
	disconnect func()
	topic      string
	qos        byte
	retained   bool
}

// DialMQTT connects to the broker and returns a ready sink.
func DialMQTT(ctx context.Context, opts MQTTOptions, log logger.Logger) (*MQTT, error) {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(clientOpts)
	if err := WaitToken(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}
	log.Info(ctx, "connected to MQTT broker",
		logger.String("broker", opts.Broker),
		logger.String("client_id", opts.ClientID),
		logger.String("topic", opts.Topic),
	)

	m := NewMQTT(client, opts.Topic, opts.QoS, opts.Retained)
	m.disconnect = func() { client.Disconnect(disconnectQuiesce) }
	return m, nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(client publisher, topic string, qos byte, retained bool) *MQTT {
	return &MQTT{client: client, topic: topic, qos: qos, retained: retained}
}

// Emit waits for the publish to complete or for ctx, whichever is first.
func (m *MQTT) Emit(ctx context.Context, ev gps.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := WaitToken(ctx, m.client.Publish(m.topic, m.qos, m.retained, payload)); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	if m.disconnect != nil {
		m.disconnect()
	}
	return nil
}

// WaitToken blocks until the token completes or ctx is done.
func WaitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
