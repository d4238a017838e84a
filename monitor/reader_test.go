// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSensorReader(t *testing.T) {
	opts, clock := testOpts()
	dev := &fakeMeasurer{results: []result{
		{co2: 612, temp: 22.25, hum: 41.5},
		{err: &codedError{code: 3}},
		{err: errors.New("i/o error")},
		{co2: 640, temp: 22.5, hum: 41},
	}}
	r := NewSensorReader(dev, opts)
	if r.Snapshot().OK {
		t.Fatal("snapshot OK before first read")
	}

	got, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := Reading{CO2: 612, Temperature: 22.25, Humidity: 41.5, OK: true, At: clock.Now()}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, r.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}

	clock.Advance(5e9)
	_, err = r.Read()
	var be *BusError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BusError, got %#v", err)
	}
	if be.Code != 3 || be.Message != "device failure" {
		t.Errorf("unexpected bus error %#v", be)
	}
	// Numeric values are kept but not trusted.
	stale := want
	stale.OK = false
	if diff := cmp.Diff(stale, r.Snapshot()); diff != "" {
		t.Errorf("Snapshot() after failure mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err()=%v", r.Err())
	}

	_, err = r.Read()
	if !errors.As(err, &be) || be.Code != UnknownErrorCode {
		t.Errorf("expected unknown code, got %v", err)
	}

	got, err = r.Read()
	if err != nil || !got.OK || got.CO2 != 640 {
		t.Errorf("Read()=%v, %v", got, err)
	}
	if r.Err() != nil {
		t.Errorf("Err() not cleared: %v", r.Err())
	}
	if dev.calls != 4 {
		t.Errorf("calls=%d", dev.calls)
	}
}

func TestReadingString(t *testing.T) {
	if s := (Reading{}).String(); s != "Reading{invalid}" {
		t.Errorf("String()=%q", s)
	}
	if s := ok(415).String(); s != "Reading{CO2: 415 ppm, Temperature: 21.50°C, Humidity: 40.00%}" {
		t.Errorf("String()=%q", s)
	}
}
