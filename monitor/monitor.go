// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Monitor runs scheduling rounds: one gated sensor read followed by a tick
// of every channel with the resulting snapshot.
type Monitor struct {
	reader   *SensorReader
	gate     *SampleGate
	channels []Channel
	clock    Clock
	log      *slog.Logger
}

// New returns a Monitor reading from reader at most once per readInterval.
// The interval must not be shorter than the sensor's own measurement period.
func New(reader *SensorReader, readInterval time.Duration, channels []Channel, opts *Opts) *Monitor {
	log := opts.logger()
	clock := opts.clock()
	g := NewSampleGate(readInterval, clock.Now())
	if err := g.Err(); err != nil {
		log.Warn("sensor read gating disabled", "err", err)
	}
	return &Monitor{reader: reader, gate: g, channels: channels, clock: clock, log: log}
}

// Reader returns the monitor's sensor reader.
func (m *Monitor) Reader() *SensorReader {
	return m.reader
}

// Channels returns the channels in tick order.
func (m *Monitor) Channels() []Channel {
	return m.channels
}

// Round performs one scheduling round at now and returns the snapshot that
// was offered to the channels. Read errors are logged by the reader and
// otherwise absorbed.
func (m *Monitor) Round(now time.Time) Reading {
	if m.gate.ShouldFire(now) {
		m.gate.MarkFired(now)
		_, _ = m.reader.Read()
	}
	snap := m.reader.Snapshot()
	for _, ch := range m.channels {
		ch.Tick(now, snap)
	}
	return snap
}

// Run calls Round every period until ctx is done.
func (m *Monitor) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return errors.New("monitor: tick period must be positive")
	}
	m.log.Info("monitor started", "tick", period, "read_interval", m.gate.Interval(), "channels", len(m.channels))
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped")
			return ctx.Err()
		case <-t.C:
			m.Round(m.clock.Now())
		}
	}
}
