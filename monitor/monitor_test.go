// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestMonitor(dev Measurer) (*Monitor, *Store, *fakeClock) {
	opts, clock := testOpts()
	store := NewStore(clock)
	reader := NewSensorReader(dev, opts)
	m := New(reader, 5*time.Second, []Channel{
		NewTemperatureChannel(store, 5*time.Second, opts),
		NewCO2Channel(store, 5*time.Second, 0, opts),
		NewHumidityChannel(store, 5*time.Second, opts),
	}, opts)
	return m, store, clock
}

func TestMonitorRound(t *testing.T) {
	dev := &fakeMeasurer{results: []result{
		{co2: 650, temp: 23, hum: 45},
		{co2: 700, temp: 23.5, hum: 0},
	}}
	m, store, clock := newTestMonitor(dev)

	// Rounds within the first interval neither read nor publish.
	for i := 0; i < 5; i++ {
		m.Round(clock.Advance(time.Second))
	}
	if dev.calls != 0 {
		t.Fatalf("read %d times before the first interval", dev.calls)
	}

	// Read happens before the channels in the same round.
	snap := m.Round(clock.Advance(time.Second))
	if dev.calls != 1 || !snap.OK {
		t.Fatalf("calls=%d snapshot=%v", dev.calls, snap)
	}
	if v, at, set := store.Temperature.Get(); !set || v != 23 || !at.Equal(clock.Now()) {
		t.Errorf("temperature=%v at %s set=%t", v, at, set)
	}
	if v, _, _ := store.CO2Level.Get(); v != 650 {
		t.Errorf("co2=%d", v)
	}
	if v, _, _ := store.Humidity.Get(); v != 45 {
		t.Errorf("humidity=%f", v)
	}

	// Another round in the same interval does nothing.
	m.Round(clock.Advance(time.Second))
	if dev.calls != 1 {
		t.Errorf("calls=%d", dev.calls)
	}

	m.Round(clock.Advance(5 * time.Second))
	if v, _, _ := store.CO2Level.Get(); v != 700 {
		t.Errorf("co2=%d", v)
	}
	// Humidity sentinel: the previous value stays.
	if v, _, _ := store.Humidity.Get(); v != 45 {
		t.Errorf("humidity=%f", v)
	}
	if _, _, set := store.CO2Elevated.Get(); set {
		t.Error("elevated published without a transition")
	}
}

func TestMonitorReadFailureKeepsValues(t *testing.T) {
	dev := &fakeMeasurer{results: []result{
		{co2: 1200, temp: 24, hum: 50},
		{err: &codedError{code: 1}},
	}}
	m, store, clock := newTestMonitor(dev)
	m.Round(clock.Advance(6 * time.Second))

	type values struct {
		Temperature float32
		Humidity    float32
		CO2         uint16
		At          time.Time
	}
	get := func() values {
		tv, at, _ := store.Temperature.Get()
		hv, _, _ := store.Humidity.Get()
		cv, _, _ := store.CO2Level.Get()
		return values{tv, hv, cv, at}
	}
	before := get()
	snap := m.Round(clock.Advance(6 * time.Second))
	if snap.OK {
		t.Fatal("snapshot OK after failed read")
	}
	if diff := cmp.Diff(before, get()); diff != "" {
		t.Errorf("published values changed (-before +after):\n%s", diff)
	}
	var be *BusError
	if !errors.As(m.Reader().Err(), &be) || be.Code != 1 {
		t.Errorf("Err()=%v", m.Reader().Err())
	}
}

func TestMonitorRun(t *testing.T) {
	m, _, _ := newTestMonitor(&fakeMeasurer{})
	if err := m.Run(context.Background(), 0); err == nil {
		t.Error("expected error for zero period")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := m.Run(ctx, time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run()=%v", err)
	}
	if n := len(m.Channels()); n != 3 {
		t.Errorf("Channels()=%d", n)
	}
}

func TestMonitorSingleSampleNeverElevates(t *testing.T) {
	// Reads happen every 6s and CO2 fires every 2s, so each sample is
	// offered to the channel three times.
	dev := &fakeMeasurer{results: []result{
		{co2: 800, temp: 22, hum: 40},
		{co2: 1500, temp: 22, hum: 40},
		{co2: 800, temp: 22, hum: 40},
	}}
	opts, clock := testOpts()
	rec := &recorder{}
	co2 := NewCO2Channel(rec, time.Second, 0, opts)
	m := New(NewSensorReader(dev, opts), 5*time.Second, []Channel{co2}, opts)

	var levels []uint16
	for i := 0; i < 20; i++ {
		m.Round(clock.Advance(time.Second))
		for _, e := range rec.take() {
			if e.Kind == "elevated" {
				t.Fatalf("elevated published after %d samples", dev.calls)
			}
			levels = append(levels, e.Value.(uint16))
		}
	}
	if dev.calls != 3 {
		t.Fatalf("calls=%d expected 3", dev.calls)
	}
	if co2.State() != CO2Normal {
		t.Errorf("State()=%s", co2.State())
	}
	spikes := 0
	for _, l := range levels {
		if l == 1500 {
			spikes++
		}
	}
	if spikes < 2 {
		t.Errorf("1500 ppm republished %d times, expected the stale sample to be offered again", spikes)
	}
}
