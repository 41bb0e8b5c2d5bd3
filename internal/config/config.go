// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override, e.g. REPLAY_MQTT_TOPIC.
	EnvPrefix = "REPLAY_"
	// EnvConfigFile names an optional YAML file loaded before the environment.
	EnvConfigFile = "REPLAY_CONFIG"
)

// Sink names accepted in the sinks list.
const (
	SinkConsole   = "console"
	SinkMQTT      = "mqtt"
	SinkWebSocket = "websocket"
	SinkSerial    = "serial"
)

// Config holds all replay configuration values.
type Config struct {
	LogLevel string `koanf:"log_level"`

	// Sinks is a comma separated list of outputs, in emission order.
	Sinks string `koanf:"sinks"`
	// StrictOrder rejects tracks with decreasing timestamps instead of
	// replaying the backwards steps without delay.
	StrictOrder bool `koanf:"strict_order"`
	// Color for the status lines: auto, always or never.
	Color string `koanf:"color"`

	// MQTT
	MQTTBroker           string `koanf:"mqtt_broker"`
	MQTTClientID         string `koanf:"mqtt_client_id"` // generated per run when empty
	MQTTTopic            string `koanf:"mqtt_topic"`
	MQTTQoS              int    `koanf:"mqtt_qos"`
	MQTTRetained         bool   `koanf:"mqtt_retained"`
	MQTTConnectTimeoutMS int    `koanf:"mqtt_connect_timeout_ms"`

	// Web server for /ws, /api/position and /metrics; disabled when empty.
	WebAddr string `koanf:"web_addr"`

	// Serial output, e.g. a null-modem feeding a navigation unit.
	SerialPort     string `koanf:"serial_port"`
	SerialBaudRate int    `koanf:"serial_baud_rate"`
	SerialFormat   string `koanf:"serial_format"` // "nmea" or "json"
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// New returns the defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Sinks:                SinkConsole,
		Color:                "auto",
		MQTTBroker:           "tcp://localhost:1883",
		MQTTTopic:            "replay/gps",
		MQTTConnectTimeoutMS: 5000,
		SerialBaudRate:       9600,
		SerialFormat:         "nmea",
	}
}

// Load layers defaults, the YAML file and REPLAY_* environment variables,
// lowest precedence first. An empty configPath falls back to $REPLAY_CONFIG;
// no file at all is fine.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		configPath = os.Getenv(EnvConfigFile)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, configPath, err)
		}
	}

	// REPLAY_MQTT_TOPIC -> mqtt_topic
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SinkNames returns the configured sinks, normalized and without duplicates.
func (c *Config) SinkNames() []string {
	var names []string
	seen := map[string]bool{}
	for _, part := range strings.Split(c.Sinks, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// HasSink reports whether name is one of the configured sinks.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.SinkNames() {
		if s == name {
			return true
		}
	}
	return false
}

// MQTTConnectTimeout converts the millisecond setting.
func (c *Config) MQTTConnectTimeout() time.Duration {
	return time.Duration(c.MQTTConnectTimeoutMS) * time.Millisecond
}

// validate checks that the selected sinks have what they need.
func (c *Config) validate() error {
	sinks := c.SinkNames()
	if len(sinks) == 0 {
		return fmt.Errorf("%w: at least one sink is required", ErrInvalidConfig)
	}
	for _, s := range sinks {
		switch s {
		case SinkConsole, SinkMQTT, SinkWebSocket, SinkSerial:
		default:
			return fmt.Errorf("%w: unknown sink %q", ErrInvalidConfig, s)
		}
	}

	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: color must be auto, always or never, got %q", ErrInvalidConfig, c.Color)
	}

	if c.HasSink(SinkMQTT) {
		if c.MQTTBroker == "" {
			return fmt.Errorf("%w: mqtt_broker is required for the mqtt sink", ErrInvalidConfig)
		}
		if c.MQTTTopic == "" {
			return fmt.Errorf("%w: mqtt_topic is required for the mqtt sink", ErrInvalidConfig)
		}
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		return fmt.Errorf("%w: mqtt_qos must be 0-2, got %d", ErrInvalidConfig, c.MQTTQoS)
	}
	if c.MQTTConnectTimeoutMS <= 0 {
		return fmt.Errorf("%w: mqtt_connect_timeout_ms must be positive, got %d", ErrInvalidConfig, c.MQTTConnectTimeoutMS)
	}

	if c.HasSink(SinkWebSocket) && c.WebAddr == "" {
		return fmt.Errorf("%w: web_addr is required for the websocket sink", ErrInvalidConfig)
	}

	if c.HasSink(SinkSerial) {
		if c.SerialPort == "" {
			return fmt.Errorf("%w: serial_port is required for the serial sink", ErrInvalidConfig)
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("%w: serial_baud_rate must be positive, got %d", ErrInvalidConfig, c.SerialBaudRate)
		}
	}
	switch c.SerialFormat {
	case "nmea", "json":
	default:
		return fmt.Errorf("%w: serial_format must be nmea or json, got %q", ErrInvalidConfig, c.SerialFormat)
	}

	return nil
}

// InitGlobal loads the configuration once for the whole process.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration; nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
