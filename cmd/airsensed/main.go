// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// airsensed samples an SCD4x sensor and publishes temperature, humidity and
// CO2 to HomeKit, MQTT, Kafka, a terminal indicator and an HTTP status
// server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/brutella/hc/accessory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/airsense/config"
	"github.com/GermanBionicSystems/airsense/homekit"
	"github.com/GermanBionicSystems/airsense/indicator"
	"github.com/GermanBionicSystems/airsense/kafkapub"
	"github.com/GermanBionicSystems/airsense/monitor"
	"github.com/GermanBionicSystems/airsense/mqttpub"
	"github.com/GermanBionicSystems/airsense/panel"
	"github.com/GermanBionicSystems/airsense/scd4x"
	"github.com/GermanBionicSystems/airsense/status"
)

func mainImpl() error {
	fs := config.Flags(os.Args[0])
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(cfg.Sensor.Bus)
	if err != nil {
		return fmt.Errorf("opening i2c bus %q: %w", cfg.Sensor.Bus, err)
	}
	defer bus.Close()
	dev, err := scd4x.NewI2C(bus, cfg.Sensor.Address)
	if err != nil {
		return fmt.Errorf("starting sensor: %w", err)
	}
	defer func() {
		if err := dev.Halt(); err != nil {
			logger.Error("sensor halt failed", "err", err)
		}
	}()
	if err := configureSensor(dev, cfg.Sensor, logger); err != nil {
		return err
	}
	logger.Info("sensor started", "dev", dev.String(), "bus", bus.String())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts := &monitor.Opts{Logger: logger, Metrics: monitor.NewMetrics(reg)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	var wg sync.WaitGroup

	store := monitor.NewStore(nil)
	sinks := monitor.Publishers{store}

	if cfg.HomeKit.Enabled {
		acc := homekit.New(accessory.Info{
			Name:         cfg.HomeKit.Name,
			Manufacturer: "Airsense",
			Model:        "SCD4x",
		})
		sinks = append(sinks, acc)
		wg.Add(1)
		go func() {
			defer wg.Done()
			hcfg := homekit.Config{Pin: cfg.HomeKit.Pin, StoragePath: cfg.HomeKit.StoragePath}
			if err := acc.Serve(ctx, hcfg, logger); err != nil {
				logger.Error("homekit failed", "err", err)
			}
		}()
	}

	if cfg.MQTT.Enabled {
		mp := mqttpub.New(mqttpub.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			QoS:         1,
			Retained:    true,
		}, logger)
		if err := mp.Connect(); err != nil {
			return err
		}
		defer mp.Close()
		sinks = append(sinks, mp)
		logger.Info("mqtt connected", "broker", cfg.MQTT.Broker)
	}

	if cfg.Kafka.Enabled {
		source := "airsense"
		if h, err := os.Hostname(); err == nil {
			source = h
		}
		kp := kafkapub.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, source, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka close failed", "err", err)
			}
		}()
		sinks = append(sinks, kp)
	}

	if cfg.Indicator.Enabled {
		strip := indicator.NewDev(nil, cfg.Indicator.Width, nil)
		defer strip.Halt()
		sinks = append(sinks, indicator.NewBar(strip, &indicator.Opts{
			Threshold: cfg.Channels.CO2.Threshold,
			Logger:    logger,
		}))
	}

	reader := monitor.NewSensorReader(dev, opts)
	channels := []monitor.Channel{
		monitor.NewTemperatureChannel(sinks, cfg.Channels.Temperature.Interval, opts),
		monitor.NewHumidityChannel(sinks, cfg.Channels.Humidity.Interval, opts),
		monitor.NewCO2Channel(sinks, cfg.Channels.CO2.Interval, cfg.Channels.CO2.Threshold, opts),
	}
	m := monitor.New(reader, cfg.Sensor.ReadInterval, channels, opts)

	if cfg.HTTP.Addr != "" {
		p, err := panel.New(store, cfg.Panel.Width, cfg.Panel.Height, cfg.Panel.MaxAge)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: status.NewRouter(&status.Server{
				Reader:   reader,
				Store:    store,
				Panel:    p,
				Gatherer: reg,
				Logger:   logger,
			}, os.Stdout),
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("status server listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", "err", err)
				stop()
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	err = m.Run(ctx, cfg.Monitor.Tick)
	stop()
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// configureSensor applies the compensation settings. The device restarts
// periodic measurement with them before the first sample is read.
func configureSensor(dev *scd4x.Dev, c config.SensorConfig, logger *slog.Logger) error {
	dc, err := dev.GetConfiguration()
	if err != nil {
		return fmt.Errorf("reading sensor configuration: %w", err)
	}
	applySensorConfig(dc, c)
	if err := dev.SetConfiguration(dc); err != nil {
		return fmt.Errorf("configuring sensor: %w", err)
	}
	logger.Info("sensor configured",
		"variant", dc.SensorType.String(),
		"serial", fmt.Sprintf("%#012x", dc.SerialNumber),
		"temperature_offset", dc.TemperatureOffset.String(),
		"altitude", dc.SensorAltitude.String(),
		"asc", dc.ASCEnabled)
	return nil
}

func applySensorConfig(dc *scd4x.DevConfig, c config.SensorConfig) {
	dc.TemperatureOffset = physic.Temperature(c.TemperatureOffset * float64(physic.Celsius))
	dc.SensorAltitude = physic.Distance(c.Altitude) * physic.Metre
	dc.ASCEnabled = c.ASCEnabled
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "airsensed: %s.\n", err)
		os.Exit(1)
	}
}
