// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the daemon configuration from defaults, an optional
// YAML file, AIRSENSE_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/GermanBionicSystems/airsense/monitor"
)

// EnvPrefix is the prefix of environment overrides. sensor.bus is read from
// AIRSENSE_SENSOR_BUS.
const EnvPrefix = "AIRSENSE"

// Sensor compensation limits from the SCD4x datasheet.
const (
	maxTemperatureOffset = 20
	maxAltitude          = 3000
)

// Config holds all configuration for the daemon.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Sensor    SensorConfig    `mapstructure:"sensor"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	HomeKit   HomeKitConfig   `mapstructure:"homekit"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Panel     PanelConfig     `mapstructure:"panel"`
	Indicator IndicatorConfig `mapstructure:"indicator"`
}

// SensorConfig selects the I²C bus and how often the sensor is read.
type SensorConfig struct {
	// Bus name for i2creg.Open. Empty selects the first bus.
	Bus          string        `mapstructure:"bus"`
	Address      uint16        `mapstructure:"address"`
	ReadInterval time.Duration `mapstructure:"read_interval"`
	// TemperatureOffset is the self heating compensation in °C.
	TemperatureOffset float64 `mapstructure:"temperature_offset"`
	// Altitude in metres above sea level, for CO2 pressure compensation.
	Altitude   int  `mapstructure:"altitude"`
	ASCEnabled bool `mapstructure:"asc_enabled"`
}

type ChannelConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type CO2ChannelConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Threshold uint16        `mapstructure:"threshold"`
}

type ChannelsConfig struct {
	Temperature ChannelConfig    `mapstructure:"temperature"`
	Humidity    ChannelConfig    `mapstructure:"humidity"`
	CO2         CO2ChannelConfig `mapstructure:"co2"`
}

type MonitorConfig struct {
	// Tick is the period of the scheduling loop.
	Tick time.Duration `mapstructure:"tick"`
}

type HomeKitConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Name        string `mapstructure:"name"`
	Pin         string `mapstructure:"pin"`
	StoragePath string `mapstructure:"storage_path"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type HTTPConfig struct {
	// Addr to listen on. Empty disables the status server.
	Addr string `mapstructure:"addr"`
}

type PanelConfig struct {
	Width  int           `mapstructure:"width"`
	Height int           `mapstructure:"height"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

type IndicatorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Width   int  `mapstructure:"width"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Sensor: SensorConfig{
			Address:           0x62,
			ReadInterval:      5 * time.Second,
			TemperatureOffset: 4,
			ASCEnabled:        true,
		},
		Channels: ChannelsConfig{
			Temperature: ChannelConfig{Interval: 30 * time.Second},
			Humidity:    ChannelConfig{Interval: 30 * time.Second},
			CO2:         CO2ChannelConfig{Interval: 10 * time.Second, Threshold: monitor.DefaultCO2Threshold},
		},
		Monitor: MonitorConfig{Tick: 250 * time.Millisecond},
		HomeKit: HomeKitConfig{
			Name:        "Airsense",
			Pin:         "00102003",
			StoragePath: "./db",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "airsense",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "airsense.readings",
		},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Panel:     PanelConfig{Width: 250, Height: 122, MaxAge: 2 * time.Minute},
		Indicator: IndicatorConfig{Width: 20},
	}
}

// Flags returns the command line flags understood by Load.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file (default: ./airsense.yaml if present)")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("i2c-bus", "", "I²C bus name, empty for the first available bus")
	return fs
}

// Load reads the configuration. fs must come from Flags and be parsed; nil
// reads only defaults, the config file and the environment.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
		if err := bindFlag(v, fs, "log_level", "log-level"); err != nil {
			return nil, err
		}
		if err := bindFlag(v, fs, "sensor.bus", "i2c-bus"); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	} else {
		v.SetConfigName("airsense")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/airsense")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unable to decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindFlag binds a flag only when it was set on the command line, so an
// unset flag does not shadow the file or environment.
func bindFlag(v *viper.Viper, fs *pflag.FlagSet, key, name string) error {
	f := fs.Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	if err := v.BindPFlag(key, f); err != nil {
		return fmt.Errorf("config: binding --%s: %w", name, err)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("sensor.bus", d.Sensor.Bus)
	v.SetDefault("sensor.address", d.Sensor.Address)
	v.SetDefault("sensor.read_interval", d.Sensor.ReadInterval)
	v.SetDefault("sensor.temperature_offset", d.Sensor.TemperatureOffset)
	v.SetDefault("sensor.altitude", d.Sensor.Altitude)
	v.SetDefault("sensor.asc_enabled", d.Sensor.ASCEnabled)
	v.SetDefault("channels.temperature.interval", d.Channels.Temperature.Interval)
	v.SetDefault("channels.humidity.interval", d.Channels.Humidity.Interval)
	v.SetDefault("channels.co2.interval", d.Channels.CO2.Interval)
	v.SetDefault("channels.co2.threshold", d.Channels.CO2.Threshold)
	v.SetDefault("monitor.tick", d.Monitor.Tick)
	v.SetDefault("homekit.enabled", d.HomeKit.Enabled)
	v.SetDefault("homekit.name", d.HomeKit.Name)
	v.SetDefault("homekit.pin", d.HomeKit.Pin)
	v.SetDefault("homekit.storage_path", d.HomeKit.StoragePath)
	v.SetDefault("mqtt.enabled", d.MQTT.Enabled)
	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("mqtt.topic_prefix", d.MQTT.TopicPrefix)
	v.SetDefault("mqtt.username", d.MQTT.Username)
	v.SetDefault("mqtt.password", d.MQTT.Password)
	v.SetDefault("kafka.enabled", d.Kafka.Enabled)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("panel.width", d.Panel.Width)
	v.SetDefault("panel.height", d.Panel.Height)
	v.SetDefault("panel.max_age", d.Panel.MaxAge)
	v.SetDefault("indicator.enabled", d.Indicator.Enabled)
	v.SetDefault("indicator.width", d.Indicator.Width)
}

// Validate reports malformed values. Non-positive channel intervals are
// accepted: the channels log them and publish on every tick.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Sensor.ReadInterval <= 0 {
		return fmt.Errorf("config: sensor.read_interval must be positive, got %s", c.Sensor.ReadInterval)
	}
	if o := c.Sensor.TemperatureOffset; o < 0 || o > maxTemperatureOffset {
		return fmt.Errorf("config: sensor.temperature_offset must be in 0..%d °C, got %g", maxTemperatureOffset, o)
	}
	if a := c.Sensor.Altitude; a < 0 || a > maxAltitude {
		return fmt.Errorf("config: sensor.altitude must be in 0..%d m, got %d", maxAltitude, a)
	}
	if c.Monitor.Tick <= 0 {
		return fmt.Errorf("config: monitor.tick must be positive, got %s", c.Monitor.Tick)
	}
	if t := c.Channels.CO2.Threshold; t == 0 || t >= monitor.CO2Ceiling {
		return fmt.Errorf("config: channels.co2.threshold must be in 1..%d, got %d", monitor.CO2Ceiling-1, t)
	}
	if c.HomeKit.Enabled && !validPin(c.HomeKit.Pin) {
		return fmt.Errorf("config: homekit.pin must be 8 digits, got %q", c.HomeKit.Pin)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("config: mqtt.broker is required when mqtt is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("config: kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.Panel.Width <= 0 || c.Panel.Height <= 0 {
		return fmt.Errorf("config: invalid panel size %dx%d", c.Panel.Width, c.Panel.Height)
	}
	if c.Indicator.Enabled && c.Indicator.Width <= 0 {
		return fmt.Errorf("config: indicator.width must be positive, got %d", c.Indicator.Width)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

func validPin(pin string) bool {
	if len(pin) != 8 {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
