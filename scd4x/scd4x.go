// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd4x

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/airsense/common"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// PPM=Parts Per Million. Units of measure for CO2 concentration.
type PPM int

const (
	// These devices only support this i2c address.
	SensorAddress uint16 = 0x62

	// MeasurementInterval is the sample period in periodic measurement mode.
	MeasurementInterval = 5 * time.Second
)

// Structure to simplify sending commands to the device.
type command struct {
	// The 16-bit command word.
	word uint16
	// The expected number of bytes returned. 0, 3, or 9.
	responseSize int
	// True if the sensor accepts this command in periodic measurement mode.
	whileSensing bool
}

var (
	cmdStartMeasurement   = command{word: 0x21b1}
	cmdReadMeasurement    = command{word: 0xec05, responseSize: 9, whileSensing: true}
	cmdStopMeasurement    = command{word: 0x3f86, whileSensing: true}
	cmdGetDataReadyStatus = command{word: 0xe4b8, responseSize: 3, whileSensing: true}
	cmdWakeUp             = command{word: 0x36f6}
)

// Time the sensor needs after stop_periodic_measurement before it accepts
// another command.
const stopDelay = 500 * time.Millisecond

// Dev represents an SCD4x device.
type Dev struct {
	// The i2c bus device.
	d  *i2c.Dev
	mu sync.Mutex
	// True if the device is in periodic measurement mode.
	sensing bool
}

func (ppm PPM) String() string {
	return fmt.Sprintf("%d PPM", int(ppm))
}

// Env is the sensor reading: CO2 PPM, Temperature, and Humidity.
type Env struct {
	physic.Env
	CO2 PPM
}

// Return the sensor readings in string format.
func (e *Env) String() string {
	return fmt.Sprintf("Temperature: %s Humidity: %s CO2: %s", e.Temperature.String(), e.Humidity.String(), e.CO2.String())
}

// NewI2C creates a new SCD4x sensor using the supplied bus and address and
// starts periodic measurement. The constant value SensorAddress should be
// supplied as the value for addr.
func NewI2C(b i2c.Bus, addr uint16) (*Dev, error) {
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}}
	return d, d.start()
}

// ReadMeasurement performs a single measurement fetch. It does not wait: if
// the sensor has no new sample an *Error with ErrCodeNotReady is returned.
// Temperature is in °C and humidity in %RH.
func (d *Dev) ReadMeasurement() (co2 uint16, temperature, humidity float32, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.sensing {
		return 0, 0, 0, &Error{Code: ErrCodeNotReady, Cmd: cmdReadMeasurement.word}
	}
	ready, err := d.dataReady()
	if err != nil {
		return 0, 0, 0, err
	}
	if !ready {
		return 0, 0, 0, &Error{Code: ErrCodeNotReady, Cmd: cmdGetDataReadyStatus.word}
	}
	words, err := d.sendCommand(cmdReadMeasurement, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	return words[0], float32(countToCelsius(words[1])), float32(countToPercent(words[2])), nil
}

// Sense returns readings (Temperature, Humidity, and CO2 concentration in PPM)
// from the device. Note that in periodic measurement mode, the minimum reading
// period is 5 seconds. If you call this function more frequently than this,
// it will block until data is ready.
func (d *Dev) Sense(env *Env) error {
	env.Temperature = 0
	env.Humidity = 0
	env.CO2 = 0
	env.Pressure = 0

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.sensing {
		return &Error{Code: ErrCodeNotReady, Cmd: cmdReadMeasurement.word}
	}

	deadline := time.Now().Add(MeasurementInterval + time.Second)
	for {
		ready, err := d.dataReady()
		if err != nil {
			return err
		}
		if ready {
			break
		}
		if time.Now().After(deadline) {
			return &Error{Code: ErrCodeTimeout, Cmd: cmdGetDataReadyStatus.word}
		}
		time.Sleep(time.Second)
	}
	words, err := d.sendCommand(cmdReadMeasurement, nil)
	if err != nil {
		return err
	}
	env.CO2 = PPM(words[0])
	env.Temperature = physic.ZeroCelsius + physic.Temperature(countToCelsius(words[1])*float64(physic.Celsius))
	env.Humidity = physic.RelativeHumidity(countToPercent(words[2]) * float64(physic.PercentRH))
	return nil
}

// Halt stops periodic measurement.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.sensing {
		return nil
	}
	return d.stop()
}

func (d *Dev) String() string {
	return fmt.Sprintf("scd4x: %s", d.d.String())
}

// start wakes the sensor and starts periodic measurement.
func (d *Dev) start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sensing {
		return nil
	}
	if _, err := d.sendCommand(cmdWakeUp, nil); err != nil {
		// A sensor left in measurement mode rejects everything except
		// stop. Stop it and wait before starting again.
		_, _ = d.sendCommand(cmdStopMeasurement, nil)
		time.Sleep(stopDelay)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := d.sendCommand(cmdStartMeasurement, nil); err != nil {
		return err
	}
	d.sensing = true
	return nil
}

// stop leaves periodic measurement. d.mu must be held.
func (d *Dev) stop() error {
	d.sensing = false
	_, err := d.sendCommand(cmdStopMeasurement, nil)
	time.Sleep(stopDelay)
	return err
}

// idle runs fn with periodic measurement stopped, and resumes it afterwards
// if it was running. d.mu must be held.
func (d *Dev) idle(fn func() error) error {
	wasSensing := d.sensing
	if wasSensing {
		if err := d.stop(); err != nil {
			return err
		}
	}
	err := fn()
	if !wasSensing {
		return err
	}
	if _, serr := d.sendCommand(cmdStartMeasurement, nil); serr != nil {
		return errors.Join(err, serr)
	}
	d.sensing = true
	return err
}

func (d *Dev) dataReady() (bool, error) {
	words, err := d.sendCommand(cmdGetDataReadyStatus, nil)
	if err != nil {
		return false, err
	}
	// The lower 11 bits are zero when no sample is pending.
	return words[0]&(1<<11-1) != 0, nil
}

// All commands to read or write to the sensor go through this function.
func (d *Dev) sendCommand(cmd command, writeData []uint16) ([]uint16, error) {
	if d.sensing && !cmd.whileSensing {
		// The sensor NACKs anything else while measuring.
		if err := d.stop(); err != nil {
			return nil, err
		}
	}
	w := []byte{byte(cmd.word >> 8), byte(cmd.word)}
	if writeData != nil {
		w = append(w, common.Frame(writeData...)...)
	}
	var r []byte
	if cmd.responseSize > 0 {
		r = make([]byte, cmd.responseSize)
	}
	if err := d.d.Tx(w, r); err != nil {
		return nil, &Error{Code: ErrCodeTx, Cmd: cmd.word, Err: err}
	}
	if cmd.responseSize == 0 {
		return nil, nil
	}
	words, err := common.Words(r)
	if err != nil {
		return nil, &Error{Code: ErrCodeCRC, Cmd: cmd.word, Err: err}
	}
	return words, nil
}

// countToCelsius converts a device count to °C.
func countToCelsius(count uint16) float64 {
	return -45 + 175*(float64(count)/65535.0)
}

// countToPercent converts a device count to %RH.
func countToPercent(count uint16) float64 {
	return 100 * (float64(count) / 65535.0)
}
