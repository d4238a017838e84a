// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd4x

import (
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Variant is the sensor model reported by the device.
type Variant int

const (
	SCD40 Variant = iota
	SCD41
	VariantUnknown
)

func (v Variant) String() string {
	switch v {
	case SCD40:
		return "SCD40"
	case SCD41:
		return "SCD41"
	}
	return "unknown"
}

// ResetMode selects what Reset restores.
type ResetMode int

const (
	// ResetEEPROM reloads the settings last written by Persist.
	ResetEEPROM ResetMode = iota
	// ResetFactory restores factory settings and erases the calibration
	// history.
	ResetFactory
)

var (
	cmdGetTemperatureOffset = command{word: 0x2318, responseSize: 3}
	cmdSetTemperatureOffset = command{word: 0x241d}
	cmdGetSensorAltitude    = command{word: 0x2322, responseSize: 3}
	cmdSetSensorAltitude    = command{word: 0x2427}
	cmdGetAmbientPressure   = command{word: 0xe000, responseSize: 3, whileSensing: true}
	cmdSetAmbientPressure   = command{word: 0xe000, whileSensing: true}
	cmdGetASCEnabled        = command{word: 0x2313, responseSize: 3}
	cmdSetASCEnabled        = command{word: 0x2416}
	cmdGetASCTarget         = command{word: 0x233f, responseSize: 3}
	cmdSetASCTarget         = command{word: 0x243a}
	cmdGetASCInitialPeriod  = command{word: 0x2340, responseSize: 3}
	cmdSetASCInitialPeriod  = command{word: 0x2445}
	cmdGetASCStandardPeriod = command{word: 0x234b, responseSize: 3}
	cmdSetASCStandardPeriod = command{word: 0x244e}
	cmdGetSerialNumber      = command{word: 0x3682, responseSize: 9}
	cmdGetSensorVariant     = command{word: 0x202f, responseSize: 3}
	cmdPersistSettings      = command{word: 0x3615}
	cmdPerformFactoryReset  = command{word: 0x3632}
	cmdReinit               = command{word: 0x3646}
)

// Datasheet limits and command execution times.
const (
	MaxSensorAltitude = 3000 * physic.Metre
	// Self calibration periods are programmed in hours and must be a
	// multiple of this.
	ASCPeriodStep = 4 * time.Hour

	persistDelay = 800 * time.Millisecond
	factoryDelay = 1200 * time.Millisecond
	reinitDelay  = 30 * time.Millisecond
)

// DevConfig is the running configuration of the device. Values prefixed
// with ASC refer to Automatic Self Calibration. Use Dev.GetConfiguration to
// read it and Dev.SetConfiguration to apply changes.
type DevConfig struct {
	// Ambient pressure used for CO2 compensation. Overrides SensorAltitude
	// when set.
	AmbientPressure physic.Pressure
	ASCEnabled      bool
	// Multiples of ASCPeriodStep.
	ASCInitialPeriod  time.Duration
	ASCStandardPeriod time.Duration
	// Baseline CO2 concentration assumed by self calibration.
	ASCTarget PPM
	// Sensor altitude above sea level, used for CO2 compensation.
	SensorAltitude physic.Distance
	// The device self heating subtracted from the temperature reading. This
	// is a temperature difference, 0 to 175°C.
	TemperatureOffset physic.Temperature
	// The 48 bit unique serial number of the device. Read-only.
	SerialNumber int64
	// Read-only.
	SensorType Variant
}

// rawConfig holds the writable settings as device words.
type rawConfig struct {
	pressure, asc, initial, standard, target, altitude, offset uint16
}

// GetConfiguration reads the device configuration. Periodic measurement is
// paused while the settings are read.
func (d *Dev) GetConfiguration() (*DevConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var cfg *DevConfig
	err := d.idle(func() error {
		var err error
		cfg, _, err = d.readConfig()
		return err
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetConfiguration writes the settings of cfg that differ from the device.
// Measurement is paused and resumed if it was running. Changes are lost on
// power cycle unless Persist is called.
func (d *Dev) SetConfiguration(cfg *DevConfig) error {
	want, err := cfg.encode()
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle(func() error {
		_, cur, err := d.readConfig()
		if err != nil {
			return fmt.Errorf("scd4x: reading configuration: %w", err)
		}
		writes := []struct {
			cmd       command
			cur, want uint16
		}{
			{cmdSetAmbientPressure, cur.pressure, want.pressure},
			{cmdSetASCEnabled, cur.asc, want.asc},
			{cmdSetASCInitialPeriod, cur.initial, want.initial},
			{cmdSetASCStandardPeriod, cur.standard, want.standard},
			{cmdSetASCTarget, cur.target, want.target},
			{cmdSetSensorAltitude, cur.altitude, want.altitude},
			{cmdSetTemperatureOffset, cur.offset, want.offset},
		}
		for _, w := range writes {
			if w.cur == w.want {
				continue
			}
			if _, err := d.sendCommand(w.cmd, []uint16{w.want}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Persist writes the running configuration to EEPROM for use on the next
// power-up.
func (d *Dev) Persist() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle(func() error {
		_, err := d.sendCommand(cmdPersistSettings, nil)
		time.Sleep(persistDelay)
		return err
	})
}

// Reset reloads the settings from EEPROM or restores the factory settings,
// depending on mode.
func (d *Dev) Reset(mode ResetMode) error {
	var cmd command
	var delay time.Duration
	switch mode {
	case ResetEEPROM:
		cmd, delay = cmdReinit, reinitDelay
	case ResetFactory:
		cmd, delay = cmdPerformFactoryReset, factoryDelay
	default:
		return fmt.Errorf("scd4x: invalid reset mode %d", mode)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle(func() error {
		_, err := d.sendCommand(cmd, nil)
		time.Sleep(delay)
		return err
	})
}

// readConfig reads every setting. d.mu must be held and the sensor idle.
func (d *Dev) readConfig() (*DevConfig, rawConfig, error) {
	var raw rawConfig
	reads := []struct {
		cmd command
		dst *uint16
	}{
		{cmdGetAmbientPressure, &raw.pressure},
		{cmdGetASCEnabled, &raw.asc},
		{cmdGetASCInitialPeriod, &raw.initial},
		{cmdGetASCStandardPeriod, &raw.standard},
		{cmdGetASCTarget, &raw.target},
	}
	for _, r := range reads {
		words, err := d.sendCommand(r.cmd, nil)
		if err != nil {
			return nil, raw, err
		}
		*r.dst = words[0]
	}
	serial, err := d.sendCommand(cmdGetSerialNumber, nil)
	if err != nil {
		return nil, raw, err
	}
	variant, err := d.sendCommand(cmdGetSensorVariant, nil)
	if err != nil {
		return nil, raw, err
	}
	for _, r := range []struct {
		cmd command
		dst *uint16
	}{
		{cmdGetSensorAltitude, &raw.altitude},
		{cmdGetTemperatureOffset, &raw.offset},
	} {
		words, err := d.sendCommand(r.cmd, nil)
		if err != nil {
			return nil, raw, err
		}
		*r.dst = words[0]
	}

	cfg := &DevConfig{
		AmbientPressure:   physic.Pressure(raw.pressure) * 100 * physic.Pascal,
		ASCEnabled:        raw.asc != 0,
		ASCInitialPeriod:  time.Duration(raw.initial) * time.Hour,
		ASCStandardPeriod: time.Duration(raw.standard) * time.Hour,
		ASCTarget:         PPM(raw.target),
		SensorAltitude:    physic.Distance(raw.altitude) * physic.Metre,
		TemperatureOffset: countToOffset(raw.offset),
		SerialNumber:      int64(serial[0])<<32 | int64(serial[1])<<16 | int64(serial[2]),
		SensorType:        variantOf(variant[0]),
	}
	return cfg, raw, nil
}

// encode converts the writable settings to device words.
func (c *DevConfig) encode() (rawConfig, error) {
	var raw rawConfig
	if c.AmbientPressure < 0 || c.AmbientPressure/(100*physic.Pascal) > math.MaxUint16 {
		return raw, fmt.Errorf("scd4x: ambient pressure %s out of range", c.AmbientPressure)
	}
	if c.SensorAltitude < 0 || c.SensorAltitude > MaxSensorAltitude {
		return raw, fmt.Errorf("scd4x: sensor altitude %s out of range", c.SensorAltitude)
	}
	for _, p := range []time.Duration{c.ASCInitialPeriod, c.ASCStandardPeriod} {
		if p < 0 || p%ASCPeriodStep != 0 || p/time.Hour > math.MaxUint16 {
			return raw, fmt.Errorf("scd4x: invalid self calibration period %s, must be a multiple of %s", p, ASCPeriodStep)
		}
	}
	if c.ASCTarget < 0 || c.ASCTarget > math.MaxUint16 {
		return raw, fmt.Errorf("scd4x: self calibration target %s out of range", c.ASCTarget)
	}
	offset := float64(c.TemperatureOffset) / float64(physic.Celsius)
	if offset < 0 || offset >= 175 {
		return raw, fmt.Errorf("scd4x: temperature offset %.2f°C out of range", offset)
	}
	raw.pressure = uint16(c.AmbientPressure / (100 * physic.Pascal))
	if c.ASCEnabled {
		raw.asc = 1
	}
	raw.initial = uint16(c.ASCInitialPeriod / time.Hour)
	raw.standard = uint16(c.ASCStandardPeriod / time.Hour)
	raw.target = uint16(c.ASCTarget)
	raw.altitude = uint16(c.SensorAltitude / physic.Metre)
	raw.offset = uint16(math.Round(offset * 65535 / 175))
	return raw, nil
}

// countToOffset converts a device count to a temperature difference.
func countToOffset(count uint16) physic.Temperature {
	return physic.Temperature(float64(count) * 175 / 65535 * float64(physic.Celsius))
}

func variantOf(word uint16) Variant {
	switch word >> 12 {
	case 0:
		return SCD40
	case 1:
		return SCD41
	}
	return VariantUnknown
}
