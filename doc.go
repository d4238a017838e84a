// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package airsense is a container for the air quality sampler.
//
// scd4x drives the sensor. monitor reads it at a fixed cadence and feeds
// the temperature, humidity and CO2 channels, which publish to the sinks in
// homekit, mqttpub, kafkapub and indicator. status and panel expose the
// latest published values. cmd/airsensed wires everything together.
package airsense
