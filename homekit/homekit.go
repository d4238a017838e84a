// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package homekit exposes the monitor channels as a HomeKit accessory with a
// temperature sensor, a humidity sensor and a carbon dioxide sensor service.
//
// Every Publish call sets the matching characteristic, which notifies
// paired controllers.
package homekit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/service"

	"github.com/GermanBionicSystems/airsense/monitor"
)

// Presentation bounds declared to controllers.
const (
	minTemperature = -50
	maxTemperature = 100
)

// Accessory is a sensor accessory implementing monitor.Publisher.
type Accessory struct {
	*accessory.Accessory

	Temperature *service.TemperatureSensor
	Humidity    *service.HumiditySensor
	CO2         *service.CarbonDioxideSensor
	CO2Level    *characteristic.CarbonDioxideLevel
}

// New returns an accessory with the initial values controllers see before
// the first publish.
func New(info accessory.Info) *Accessory {
	a := &Accessory{Accessory: accessory.New(info, accessory.TypeSensor)}

	a.Temperature = service.NewTemperatureSensor()
	a.Temperature.CurrentTemperature.SetValue(20)
	a.Temperature.CurrentTemperature.SetMinValue(minTemperature)
	a.Temperature.CurrentTemperature.SetMaxValue(maxTemperature)
	a.Temperature.CurrentTemperature.SetStepValue(0.1)

	a.Humidity = service.NewHumiditySensor()
	a.Humidity.CurrentRelativeHumidity.SetValue(40)

	a.CO2 = service.NewCarbonDioxideSensor()
	a.CO2.CarbonDioxideDetected.SetValue(characteristic.CarbonDioxideDetectedCO2LevelsNormal)
	a.CO2Level = characteristic.NewCarbonDioxideLevel()
	a.CO2Level.SetValue(400)
	a.CO2.AddCharacteristic(a.CO2Level.Characteristic)

	a.AddService(a.Temperature.Service)
	a.AddService(a.Humidity.Service)
	a.AddService(a.CO2.Service)
	return a
}

func (a *Accessory) PublishTemperature(celsius float32) {
	a.Temperature.CurrentTemperature.SetValue(float64(celsius))
}

func (a *Accessory) PublishHumidity(percent float32) {
	a.Humidity.CurrentRelativeHumidity.SetValue(float64(percent))
}

func (a *Accessory) PublishCO2Level(ppm uint16) {
	a.CO2Level.SetValue(float64(ppm))
}

func (a *Accessory) PublishCO2Elevated(elevated bool) {
	v := characteristic.CarbonDioxideDetectedCO2LevelsNormal
	if elevated {
		v = characteristic.CarbonDioxideDetectedCO2LevelsAbnormal
	}
	a.CO2.CarbonDioxideDetected.SetValue(v)
}

// Config is the HAP transport configuration.
type Config struct {
	Pin         string
	StoragePath string
	Port        string
}

// Serve publishes the accessory on the local network until ctx is done.
func (a *Accessory) Serve(ctx context.Context, cfg Config, logger *slog.Logger) error {
	t, err := hc.NewIPTransport(hc.Config{Pin: cfg.Pin, StoragePath: cfg.StoragePath, Port: cfg.Port}, a.Accessory)
	if err != nil {
		return fmt.Errorf("homekit: %w", err)
	}
	go t.Start()
	logger.Info("homekit accessory published", "name", a.Info.Name.GetValue(), "storage", cfg.StoragePath)
	<-ctx.Done()
	<-t.Stop()
	logger.Info("homekit accessory stopped")
	return nil
}

var _ monitor.Publisher = &Accessory{}
