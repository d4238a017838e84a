// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"fmt"
	"log/slog"
	"time"
)

// Reading is the result of one sensor transaction.
//
// When OK is false the numeric fields must not be trusted; they hold the
// values of the last successful read, if any.
type Reading struct {
	// CO2 concentration in ppm.
	CO2 uint16
	// Temperature in °C.
	Temperature float32
	// Relative humidity in %.
	Humidity float32
	OK       bool
	// Time of the transaction that produced the numeric fields.
	At time.Time
}

func (r Reading) String() string {
	if !r.OK {
		return "Reading{invalid}"
	}
	return fmt.Sprintf("Reading{CO2: %d ppm, Temperature: %.2f°C, Humidity: %.2f%%}", r.CO2, r.Temperature, r.Humidity)
}

// Measurer is the blocking sensor transaction. A nil error means success.
// Errors may implement ErrorCode() uint16 to report the device failure code.
type Measurer interface {
	ReadMeasurement() (co2 uint16, temperature, humidity float32, err error)
}

// Clock is the monotonic time source driving the gates.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now, which carries a monotonic reading.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Opts holds the collaborators shared by the readers, channels and the
// monitor. A nil *Opts or zero fields select defaults.
type Opts struct {
	Clock   Clock
	Logger  *slog.Logger
	Metrics *Metrics
}

func (o *Opts) clock() Clock {
	if o == nil || o.Clock == nil {
		return SystemClock{}
	}
	return o.Clock
}

func (o *Opts) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Opts) metrics() *Metrics {
	if o == nil {
		return nil
	}
	return o.Metrics
}
