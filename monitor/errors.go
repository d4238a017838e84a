// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidReading reports a sentinel or out of range value. It is a normal
// transient condition, never a fault.
var ErrInvalidReading = errors.New("invalid reading")

// UnknownErrorCode is used for bus errors that carry no device code.
const UnknownErrorCode uint16 = 0xffff

// BusError is returned by SensorReader.Read when the sensor transaction
// failed.
type BusError struct {
	Code    uint16
	Message string
	Err     error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("sensor bus error %d: %s", e.Code, e.Message)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

func newBusError(err error) *BusError {
	code := UnknownErrorCode
	var coded interface{ ErrorCode() uint16 }
	if errors.As(err, &coded) {
		code = coded.ErrorCode()
	}
	return &BusError{Code: code, Message: err.Error(), Err: err}
}

// ConfigurationError reports a sampling interval that disables gating.
type ConfigurationError struct {
	Interval time.Duration
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sampling interval %s is not positive; firing on every tick", e.Interval)
}
