// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import "time"

// SampleGate fires once per interval.
//
// ShouldFire does not reset the gate. The caller commits a fire with
// MarkFired, which it must do for every true result even when it then
// decides not to publish, so that the cadence stays fixed.
type SampleGate struct {
	interval time.Duration
	last     time.Time
}

// NewSampleGate returns a gate whose first fire happens one full interval
// after now.
func NewSampleGate(interval time.Duration, now time.Time) *SampleGate {
	return &SampleGate{interval: interval, last: now}
}

// ShouldFire reports whether strictly more than the interval has elapsed
// since the last fire. A non-positive interval always fires.
func (g *SampleGate) ShouldFire(now time.Time) bool {
	if g.interval <= 0 {
		return true
	}
	return now.Sub(g.last) > g.interval
}

// MarkFired records a fire at now. The gate never moves backward.
func (g *SampleGate) MarkFired(now time.Time) {
	if now.After(g.last) {
		g.last = now
	}
}

// Interval returns the configured interval.
func (g *SampleGate) Interval() time.Duration {
	return g.interval
}

// LastFired returns the time of the last fire, or the construction time.
func (g *SampleGate) LastFired() time.Time {
	return g.last
}

// Err returns a *ConfigurationError when the interval disables gating.
func (g *SampleGate) Err() error {
	if g.interval <= 0 {
		return &ConfigurationError{Interval: g.interval}
	}
	return nil
}
