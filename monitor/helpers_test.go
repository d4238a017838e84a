// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"errors"
	"io"
	"log/slog"
	"time"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

func testOpts() (*Opts, *fakeClock) {
	clock := &fakeClock{t: t0}
	return &Opts{Clock: clock, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, clock
}

// event is one call recorded by recorder.
type event struct {
	Kind  string
	Value any
}

type recorder struct {
	events []event
}

func (r *recorder) PublishTemperature(celsius float32) {
	r.events = append(r.events, event{"temperature", celsius})
}

func (r *recorder) PublishHumidity(percent float32) {
	r.events = append(r.events, event{"humidity", percent})
}

func (r *recorder) PublishCO2Level(ppm uint16) {
	r.events = append(r.events, event{"co2", ppm})
}

func (r *recorder) PublishCO2Elevated(elevated bool) {
	r.events = append(r.events, event{"elevated", elevated})
}

func (r *recorder) take() []event {
	e := r.events
	r.events = nil
	return e
}

type codedError struct {
	code uint16
}

func (e *codedError) Error() string {
	return "device failure"
}

func (e *codedError) ErrorCode() uint16 {
	return e.code
}

type result struct {
	co2  uint16
	temp float32
	hum  float32
	err  error
}

// fakeMeasurer replays results in order, failing once they are exhausted.
type fakeMeasurer struct {
	results []result
	calls   int
}

func (m *fakeMeasurer) ReadMeasurement() (uint16, float32, float32, error) {
	m.calls++
	if len(m.results) == 0 {
		return 0, 0, 0, errors.New("no more results")
	}
	r := m.results[0]
	m.results = m.results[1:]
	return r.co2, r.temp, r.hum, r.err
}

func ok(co2 uint16) Reading {
	return Reading{CO2: co2, Temperature: 21.5, Humidity: 40, OK: true}
}
