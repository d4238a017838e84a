// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/airsense/config"
	"github.com/GermanBionicSystems/airsense/scd4x"
)

func TestApplySensorConfig(t *testing.T) {
	dc := &scd4x.DevConfig{
		AmbientPressure:   101300 * physic.Pascal,
		ASCEnabled:        true,
		ASCInitialPeriod:  44 * time.Hour,
		ASCStandardPeriod: 156 * time.Hour,
		ASCTarget:         400,
		TemperatureOffset: 4 * physic.Celsius,
		SerialNumber:      0x73b119eb3b0c,
	}
	applySensorConfig(dc, config.SensorConfig{TemperatureOffset: 2.5, Altitude: 520, ASCEnabled: false})

	want := &scd4x.DevConfig{
		AmbientPressure:   101300 * physic.Pascal,
		ASCInitialPeriod:  44 * time.Hour,
		ASCStandardPeriod: 156 * time.Hour,
		ASCTarget:         400,
		SensorAltitude:    520 * physic.Metre,
		TemperatureOffset: 2500 * physic.MilliCelsius,
		SerialNumber:      0x73b119eb3b0c,
	}
	if diff := cmp.Diff(want, dc); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
