// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/relabs-tech/gps_replay/internal/sink"
	"github.com/relabs-tech/gps_replay/pkg/logger"
	"github.com/relabs-tech/gps_replay/pkg/metrics"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// newWebMux serves the live position, the websocket stream and metrics.
// hub may be nil when the websocket sink is not selected.
func newWebMux(hub *sink.Hub, m *metrics.Manager, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	if hub != nil {
		mux.Handle("/ws", hub)

		// JSON API endpoint: latest replayed position
		mux.HandleFunc("/api/position", func(w http.ResponseWriter, r *http.Request) {
			ev, ok := hub.Latest()
			if !ok {
				http.Error(w, "no data yet", http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(ev); err != nil {
				log.Warn(r.Context(), "json encode error", logger.Error(err))
			}
		})
	}

	mux.Handle("/metrics", m.Handler())
	return mux
}

// startWeb binds addr before returning so a busy port fails the run up front.
// The returned function shuts the server down.
func startWeb(ctx context.Context, addr string, handler http.Handler, log logger.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("web server listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "web server failed", logger.Error(err))
		}
	}()
	log.Info(ctx, "web server listening", logger.String("addr", ln.Addr().String()))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, "web server shutdown failed", logger.Error(err))
		}
	}, nil
}
