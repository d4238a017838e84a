// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultCO2Threshold is the level in ppm above which CO2 is elevated.
	DefaultCO2Threshold uint16 = 1000
	// CO2Ceiling is the documented upper bound of plausible ambient
	// readings. Values at or above it are discarded.
	CO2Ceiling uint16 = 16300
)

// CO2State is the hysteresis state of a CO2Channel.
type CO2State int

const (
	CO2Normal CO2State = iota
	CO2Elevated
)

func (s CO2State) String() string {
	switch s {
	case CO2Normal:
		return "normal"
	case CO2Elevated:
		return "elevated"
	}
	return fmt.Sprintf("CO2State(%d)", int(s))
}

// CO2Channel republishes the CO2 level and decides the elevated flag.
//
// The channel enters CO2Elevated only when the current reading and the
// last published level both exceed the threshold, and returns to CO2Normal
// on the first reading below it. A reading equal to the threshold never
// causes a transition. The two readings must be distinct sensor samples: a
// snapshot seen again on a later tick republishes its level but cannot
// confirm itself.
type CO2Channel struct {
	gate      *SampleGate
	pub       CO2Publisher
	log       *slog.Logger
	metrics   *Metrics
	threshold uint16

	state CO2State
	// The last level handed to pub. Distinct from the raw reading: invalid
	// readings are never published and do not update it.
	lastPublished uint16
	// Sample time of the reading behind lastPublished.
	lastAt time.Time
}

// NewCO2Channel returns a channel publishing to pub at most once per
// interval. A zero threshold selects DefaultCO2Threshold.
func NewCO2Channel(pub CO2Publisher, interval time.Duration, threshold uint16, opts *Opts) *CO2Channel {
	if threshold == 0 {
		threshold = DefaultCO2Threshold
	}
	g, log := newGate(NameCO2, interval, opts)
	c := &CO2Channel{gate: g, pub: pub, log: log, metrics: opts.metrics(), threshold: threshold}
	c.metrics.co2State(c.state)
	return c
}

func (c *CO2Channel) Name() string {
	return NameCO2
}

// State returns the current hysteresis state.
func (c *CO2Channel) State() CO2State {
	return c.state
}

// LastPublished returns the last level published, 0 before the first one.
func (c *CO2Channel) LastPublished() uint16 {
	return c.lastPublished
}

// Threshold returns the elevated threshold in ppm.
func (c *CO2Channel) Threshold() uint16 {
	return c.threshold
}

func (c *CO2Channel) Tick(now time.Time, r Reading) bool {
	if !c.gate.ShouldFire(now) {
		return false
	}
	c.gate.MarkFired(now)
	if err := checkCO2(r); err != nil {
		if r.OK {
			c.metrics.skip(NameCO2, skipRange)
		} else {
			c.metrics.skip(NameCO2, skipNotOK)
		}
		c.log.Debug("skipping reading", "err", err)
		return false
	}

	ppm := r.CO2
	switch c.state {
	case CO2Normal:
		if ppm > c.threshold && c.lastPublished > c.threshold && r.At.After(c.lastAt) {
			c.transition(CO2Elevated)
			c.log.Info("high CO2 levels detected", "ppm", ppm, "previous", c.lastPublished)
		}
	case CO2Elevated:
		if ppm < c.threshold {
			c.transition(CO2Normal)
			c.log.Info("CO2 back to normal", "ppm", ppm)
		}
	}
	c.pub.PublishCO2Level(ppm)
	c.lastPublished = ppm
	c.lastAt = r.At
	c.metrics.published(NameCO2)
	c.log.Debug("CO2 update", "value", ppm)
	return true
}

func (c *CO2Channel) transition(to CO2State) {
	c.state = to
	c.pub.PublishCO2Elevated(to == CO2Elevated)
	c.metrics.co2State(to)
	c.metrics.transition(to)
}

// checkCO2 returns ErrInvalidReading unless r is usable for the CO2 channel.
func checkCO2(r Reading) error {
	switch {
	case !r.OK:
		return fmt.Errorf("%w: read failed", ErrInvalidReading)
	case r.CO2 == 0:
		return fmt.Errorf("%w: CO2 not ready", ErrInvalidReading)
	case r.CO2 >= CO2Ceiling:
		return fmt.Errorf("%w: CO2 %d ppm out of range", ErrInvalidReading, r.CO2)
	}
	return nil
}

var _ Channel = &CO2Channel{}
