// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor samples a combined CO2/temperature/humidity sensor and
// republishes the readings through three independently paced channels.
//
// A Monitor owns one SensorReader and any number of Channels. Every round
// it first lets the reader perform a physical read, when the reader's own
// SampleGate allows it, and then hands the resulting snapshot to each
// channel in order. Channels gate themselves with their own SampleGate and
// publish to a Publisher.
//
// The CO2 channel additionally keeps a two-state hysteresis: it enters the
// elevated state only when both the current reading and the previously
// published reading exceed the threshold, and leaves it as soon as a
// reading drops below the threshold.
package monitor
