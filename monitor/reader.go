// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"log/slog"
	"sync/atomic"
)

type snapshot struct {
	reading Reading
	err     error
}

// SensorReader owns the latest reading of a Measurer. Read is called by a
// single producer; Snapshot and Err may be called from any goroutine.
type SensorReader struct {
	dev     Measurer
	clock   Clock
	log     *slog.Logger
	metrics *Metrics
	cur     atomic.Pointer[snapshot]
}

// NewSensorReader wraps dev. Until the first successful Read the snapshot
// is not OK.
func NewSensorReader(dev Measurer, opts *Opts) *SensorReader {
	r := &SensorReader{
		dev:     dev,
		clock:   opts.clock(),
		log:     opts.logger(),
		metrics: opts.metrics(),
	}
	r.cur.Store(&snapshot{})
	return r
}

// Read performs one physical measurement fetch.
//
// On success the reading becomes current and is returned. On failure the
// previous numeric values are kept but marked not OK, the failure is logged
// once and a *BusError is returned. Read never retries.
func (r *SensorReader) Read() (Reading, error) {
	co2, temp, hum, err := r.dev.ReadMeasurement()
	if err != nil {
		be := newBusError(err)
		prev := r.cur.Load().reading
		prev.OK = false
		r.cur.Store(&snapshot{reading: prev, err: be})
		r.metrics.read(be)
		r.log.Error("error reading measurement", "code", be.Code, "err", be.Message)
		return Reading{}, be
	}
	reading := Reading{CO2: co2, Temperature: temp, Humidity: hum, OK: true, At: r.clock.Now()}
	r.cur.Store(&snapshot{reading: reading})
	r.metrics.read(nil)
	r.log.Debug("measurement", "co2", co2, "temperature", temp, "humidity", hum)
	return reading, nil
}

// Snapshot returns the current reading.
func (r *SensorReader) Snapshot() Reading {
	return r.cur.Load().reading
}

// Err returns the error of the last Read, or nil if it succeeded.
func (r *SensorReader) Err() error {
	return r.cur.Load().err
}
