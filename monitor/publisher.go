// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"sync"
	"time"
)

// TemperaturePublisher receives temperature updates in °C.
type TemperaturePublisher interface {
	PublishTemperature(celsius float32)
}

// HumidityPublisher receives relative humidity updates in %.
type HumidityPublisher interface {
	PublishHumidity(percent float32)
}

// CO2Publisher receives the CO2 level in ppm and the elevated flag.
type CO2Publisher interface {
	PublishCO2Level(ppm uint16)
	PublishCO2Elevated(elevated bool)
}

// Publisher is a presentation layer sink for all three channels.
// Implementations must not block.
type Publisher interface {
	TemperaturePublisher
	HumidityPublisher
	CO2Publisher
}

// Publishers fans every update out to each element in order.
type Publishers []Publisher

func (p Publishers) PublishTemperature(celsius float32) {
	for _, s := range p {
		s.PublishTemperature(celsius)
	}
}

func (p Publishers) PublishHumidity(percent float32) {
	for _, s := range p {
		s.PublishHumidity(percent)
	}
}

func (p Publishers) PublishCO2Level(ppm uint16) {
	for _, s := range p {
		s.PublishCO2Level(ppm)
	}
}

func (p Publishers) PublishCO2Elevated(elevated bool) {
	for _, s := range p {
		s.PublishCO2Elevated(elevated)
	}
}

// Value is a published value and the time it was last updated.
type Value[T any] struct {
	mu  sync.RWMutex
	v   T
	at  time.Time
	set bool
}

// Set stores v as updated at the given time.
func (v *Value[T]) Set(x T, at time.Time) {
	v.mu.Lock()
	v.v, v.at, v.set = x, at, true
	v.mu.Unlock()
}

// Get returns the value, its update time and whether it was ever set.
func (v *Value[T]) Get() (T, time.Time, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v, v.at, v.set
}

// Age returns the time elapsed since the last update, or zero when the
// value was never set.
func (v *Value[T]) Age(now time.Time) time.Duration {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.set {
		return 0
	}
	return now.Sub(v.at)
}

// Store is a Publisher that keeps the latest value of each endpoint with
// its timestamp.
type Store struct {
	clock       Clock
	Temperature Value[float32]
	Humidity    Value[float32]
	CO2Level    Value[uint16]
	CO2Elevated Value[bool]
}

// NewStore returns a Store stamping updates with clock. A nil clock uses
// the system clock.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Store{clock: clock}
}

func (s *Store) PublishTemperature(celsius float32) {
	s.Temperature.Set(celsius, s.clock.Now())
}

func (s *Store) PublishHumidity(percent float32) {
	s.Humidity.Set(percent, s.clock.Now())
}

func (s *Store) PublishCO2Level(ppm uint16) {
	s.CO2Level.Set(ppm, s.clock.Now())
}

func (s *Store) PublishCO2Elevated(elevated bool) {
	s.CO2Elevated.Set(elevated, s.clock.Now())
}

var _ Publisher = &Store{}
var _ Publisher = Publishers{}
