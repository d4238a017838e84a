// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package status serves the current readings, published values, metrics and
// a rendered panel over HTTP.
package status

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GermanBionicSystems/airsense/monitor"
	"github.com/GermanBionicSystems/airsense/panel"
)

// Server holds the sources exposed over HTTP. Panel and Gatherer are
// optional.
type Server struct {
	Reader   *monitor.SensorReader
	Store    *monitor.Store
	Panel    *panel.Panel
	Gatherer prometheus.Gatherer
	Clock    monitor.Clock
	Logger   *slog.Logger
}

// SensorJSON is the reader snapshot. At is omitted until a read succeeds.
type SensorJSON struct {
	OK          bool       `json:"ok"`
	CO2         uint16     `json:"co2_ppm"`
	Temperature float32    `json:"temperature_c"`
	Humidity    float32    `json:"humidity_pct"`
	At          *time.Time `json:"at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ValueJSON is one published value.
type ValueJSON struct {
	Value      any       `json:"value"`
	Updated    time.Time `json:"updated"`
	AgeSeconds float64   `json:"age_seconds"`
}

// ReadingsJSON is the body of GET /readings. Values never published are
// omitted from Published. CO2Elevated is false until the first transition.
type ReadingsJSON struct {
	Sensor      SensorJSON           `json:"sensor"`
	CO2Elevated bool                 `json:"co2_elevated"`
	Published   map[string]ValueJSON `json:"published"`
}

// NewRouter returns the HTTP handler, with access logs written to accessLog
// when it is not nil.
func NewRouter(s *Server, accessLog io.Writer) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/readings", s.readings).Methods(http.MethodGet)
	if s.Panel != nil {
		r.HandleFunc("/panel.png", s.panel).Methods(http.MethodGet)
	}
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if accessLog == nil {
		return r
	}
	return handlers.LoggingHandler(accessLog, r)
}

func (s *Server) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) readings(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	snap := s.Reader.Snapshot()
	body := ReadingsJSON{
		Sensor: SensorJSON{
			OK:          snap.OK,
			CO2:         snap.CO2,
			Temperature: snap.Temperature,
			Humidity:    snap.Humidity,
		},
		Published: map[string]ValueJSON{},
	}
	if !snap.At.IsZero() {
		body.Sensor.At = &snap.At
	}
	body.CO2Elevated, _, _ = s.Store.CO2Elevated.Get()
	if err := s.Reader.Err(); err != nil {
		body.Sensor.Error = err.Error()
	}
	addValue(body.Published, monitor.NameTemperature, &s.Store.Temperature, now)
	addValue(body.Published, monitor.NameHumidity, &s.Store.Humidity, now)
	addValue(body.Published, monitor.NameCO2, &s.Store.CO2Level, now)
	addValue(body.Published, "co2_elevated", &s.Store.CO2Elevated, now)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger().Error("write_response_failed", "err", err)
	}
}

func (s *Server) panel(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.Panel.WritePNG(w, s.now()); err != nil {
		s.logger().Error("panel render failed", "err", err)
	}
}

func addValue[T any](m map[string]ValueJSON, name string, v *monitor.Value[T], now time.Time) {
	x, at, set := v.Get()
	if !set {
		return
	}
	m[name] = ValueJSON{Value: x, Updated: at, AgeSeconds: now.Sub(at).Seconds()}
}
