// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		m := NewManager(WithNamespace("test"), WithRegistry(prometheus.NewRegistry()))

		Convey("When replay progress is recorded", func() {
			m.SetTrackPoints(3)
			m.IncEmitted()
			m.IncEmitted()
			m.IncEmitErrors("mqtt")
			m.IncDelaysClamped()
			m.ObserveDelay(1500 * time.Millisecond)

			Convey("Then every family is gathered", func() {
				families, err := m.Registry().Gather()
				So(err, ShouldBeNil)

				byName := map[string]float64{}
				for _, f := range families {
					metric := f.GetMetric()[0]
					switch {
					case metric.GetCounter() != nil:
						byName[f.GetName()] = metric.GetCounter().GetValue()
					case metric.GetGauge() != nil:
						byName[f.GetName()] = metric.GetGauge().GetValue()
					case metric.GetHistogram() != nil:
						byName[f.GetName()] = float64(metric.GetHistogram().GetSampleCount())
					}
				}

				So(byName["test_track_points"], ShouldEqual, 3)
				So(byName["test_events_emitted_total"], ShouldEqual, 2)
				So(byName["test_emit_errors_total"], ShouldEqual, 1)
				So(byName["test_delays_clamped_total"], ShouldEqual, 1)
				So(byName["test_delay_seconds"], ShouldEqual, 1)
			})

			Convey("Then the handler serves the text format", func() {
				rec := httptest.NewRecorder()
				m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
				body, _ := io.ReadAll(rec.Body)

				So(rec.Code, ShouldEqual, http.StatusOK)
				So(string(body), ShouldContainSubstring, "test_events_emitted_total 2")
			})
		})
	})
}
