// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"log/slog"
	"time"
)

// Channel is a gated consumer of the shared reading.
type Channel interface {
	Name() string
	// Tick offers the current snapshot to the channel. It returns true if
	// a value was published.
	Tick(now time.Time, r Reading) bool
}

// Channel names, also used as metric labels.
const (
	NameTemperature = "temperature"
	NameHumidity    = "humidity"
	NameCO2         = "co2"
)

// Reasons a fired channel does not publish.
const (
	skipNotOK    = "not_ok"
	skipSentinel = "sentinel"
	skipRange    = "out_of_range"
)

func newGate(name string, interval time.Duration, opts *Opts) (*SampleGate, *slog.Logger) {
	log := opts.logger().With("channel", name)
	g := NewSampleGate(interval, opts.clock().Now())
	if err := g.Err(); err != nil {
		log.Warn("gating disabled", "err", err)
	}
	return g, log
}

// TemperatureChannel republishes the temperature verbatim.
type TemperatureChannel struct {
	gate    *SampleGate
	pub     TemperaturePublisher
	log     *slog.Logger
	metrics *Metrics
}

// NewTemperatureChannel returns a channel publishing to pub at most once per
// interval.
func NewTemperatureChannel(pub TemperaturePublisher, interval time.Duration, opts *Opts) *TemperatureChannel {
	g, log := newGate(NameTemperature, interval, opts)
	return &TemperatureChannel{gate: g, pub: pub, log: log, metrics: opts.metrics()}
}

func (c *TemperatureChannel) Name() string {
	return NameTemperature
}

func (c *TemperatureChannel) Tick(now time.Time, r Reading) bool {
	if !c.gate.ShouldFire(now) {
		return false
	}
	c.gate.MarkFired(now)
	if !r.OK {
		c.metrics.skip(NameTemperature, skipNotOK)
		return false
	}
	c.pub.PublishTemperature(r.Temperature)
	c.metrics.published(NameTemperature)
	c.log.Debug("temperature update", "value", r.Temperature)
	return true
}

// HumidityChannel republishes the relative humidity, except for the exact
// 0.00 value the sensor reports while no sample is available.
type HumidityChannel struct {
	gate    *SampleGate
	pub     HumidityPublisher
	log     *slog.Logger
	metrics *Metrics
}

// NewHumidityChannel returns a channel publishing to pub at most once per
// interval.
func NewHumidityChannel(pub HumidityPublisher, interval time.Duration, opts *Opts) *HumidityChannel {
	g, log := newGate(NameHumidity, interval, opts)
	return &HumidityChannel{gate: g, pub: pub, log: log, metrics: opts.metrics()}
}

func (c *HumidityChannel) Name() string {
	return NameHumidity
}

func (c *HumidityChannel) Tick(now time.Time, r Reading) bool {
	if !c.gate.ShouldFire(now) {
		return false
	}
	c.gate.MarkFired(now)
	if !r.OK {
		c.metrics.skip(NameHumidity, skipNotOK)
		return false
	}
	// Exact comparison: 0.00 is the device sentinel, not a small value.
	if r.Humidity == 0 {
		c.metrics.skip(NameHumidity, skipSentinel)
		c.log.Debug("skipping reading", "err", ErrInvalidReading)
		return false
	}
	c.pub.PublishHumidity(r.Humidity)
	c.metrics.published(NameHumidity)
	c.log.Debug("humidity update", "value", r.Humidity)
	return true
}

var _ Channel = &TemperatureChannel{}
var _ Channel = &HumidityChannel{}
