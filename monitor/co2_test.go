// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// feed ticks ch once per reading, each a full interval apart, and returns the
// events published on each tick. Readings without a sample time are stamped
// with their tick.
func feed(ch *CO2Channel, clock *fakeClock, readings ...Reading) [][]event {
	rec := ch.pub.(*recorder)
	var out [][]event
	for _, r := range readings {
		now := clock.Advance(2 * time.Second)
		if r.At.IsZero() {
			r.At = now
		}
		ch.Tick(now, r)
		out = append(out, rec.take())
	}
	return out
}

func newCO2(t *testing.T) (*CO2Channel, *fakeClock) {
	opts, clock := testOpts()
	return NewCO2Channel(&recorder{}, time.Second, 0, opts), clock
}

func TestCO2Scenario(t *testing.T) {
	ch, clock := newCO2(t)
	got := feed(ch, clock, ok(1200), ok(1300), ok(900))
	want := [][]event{
		{{"co2", uint16(1200)}},
		{{"elevated", true}, {"co2", uint16(1300)}},
		{{"elevated", false}, {"co2", uint16(900)}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if ch.State() != CO2Normal {
		t.Errorf("State()=%s", ch.State())
	}
}

func TestCO2SingleSpike(t *testing.T) {
	ch, clock := newCO2(t)
	feed(ch, clock, ok(800), ok(1500), ok(700))
	if ch.State() != CO2Normal {
		t.Errorf("single spike caused transition to %s", ch.State())
	}
	for _, seq := range [][]Reading{{ok(1000), ok(1001)}, {ok(1001), ok(1000)}} {
		ch, clock := newCO2(t)
		feed(ch, clock, seq...)
		if ch.State() != CO2Normal {
			t.Errorf("%v: threshold value caused transition", seq)
		}
	}
}

func TestCO2ExitImmediate(t *testing.T) {
	ch, clock := newCO2(t)
	feed(ch, clock, ok(1100), ok(1100))
	if ch.State() != CO2Elevated {
		t.Fatalf("State()=%s expected elevated", ch.State())
	}
	// At the threshold: not below, stays elevated.
	got := feed(ch, clock, ok(1000))
	if diff := cmp.Diff([][]event{{{"co2", uint16(1000)}}}, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if ch.State() != CO2Elevated {
		t.Fatalf("State()=%s expected elevated at threshold", ch.State())
	}
	feed(ch, clock, ok(999))
	if ch.State() != CO2Normal {
		t.Errorf("State()=%s expected normal", ch.State())
	}
}

func TestCO2InvalidReadings(t *testing.T) {
	invalid := []Reading{
		ok(0),
		ok(CO2Ceiling),
		ok(CO2Ceiling + 1),
		{CO2: 1500, OK: false},
	}
	for _, r := range invalid {
		ch, clock := newCO2(t)
		feed(ch, clock, ok(1200), ok(1300))
		if ch.State() != CO2Elevated {
			t.Fatal("setup failed")
		}
		got := feed(ch, clock, r)
		if len(got[0]) != 0 {
			t.Errorf("%v: published %v", r, got[0])
		}
		if ch.State() != CO2Elevated || ch.LastPublished() != 1300 {
			t.Errorf("%v: state changed to %s/%d", r, ch.State(), ch.LastPublished())
		}
		if err := checkCO2(r); !errors.Is(err, ErrInvalidReading) {
			t.Errorf("%v: checkCO2()=%v", r, err)
		}
	}
	if err := checkCO2(ok(CO2Ceiling - 1)); err != nil {
		t.Errorf("16299 ppm rejected: %v", err)
	}
}

func TestCO2DebounceUsesLastPublished(t *testing.T) {
	ch, clock := newCO2(t)
	// The invalid reading in between is not published, so the comparison
	// is against 1200.
	feed(ch, clock, ok(1200), ok(0), Reading{CO2: 400}, ok(1300))
	if ch.State() != CO2Elevated {
		t.Errorf("State()=%s expected elevated", ch.State())
	}
}

func TestCO2SameSampleDoesNotConfirm(t *testing.T) {
	ch, clock := newCO2(t)
	spike := ok(1500)
	spike.At = clock.Now()
	got := feed(ch, clock, spike, spike, spike)
	want := [][]event{
		{{"co2", uint16(1500)}},
		{{"co2", uint16(1500)}},
		{{"co2", uint16(1500)}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if ch.State() != CO2Normal {
		t.Fatalf("one sample caused transition to %s", ch.State())
	}
	// A newer sample confirms it.
	feed(ch, clock, ok(1400))
	if ch.State() != CO2Elevated {
		t.Errorf("State()=%s expected elevated", ch.State())
	}
}

func TestCO2GateConsumedOnInvalid(t *testing.T) {
	ch, clock := newCO2(t)
	if ch.Tick(clock.Advance(2*time.Second), ok(0)) {
		t.Fatal("published sentinel")
	}
	if ch.Tick(clock.Advance(500*time.Millisecond), ok(600)) {
		t.Error("invalid reading did not consume the gate")
	}
}

func TestCO2Threshold(t *testing.T) {
	opts, clock := testOpts()
	ch := NewCO2Channel(&recorder{}, time.Second, 800, opts)
	if ch.Threshold() != 800 {
		t.Fatalf("Threshold()=%d", ch.Threshold())
	}
	feed(ch, clock, ok(900), ok(850))
	if ch.State() != CO2Elevated {
		t.Errorf("State()=%s expected elevated", ch.State())
	}
}

func TestCO2Metrics(t *testing.T) {
	opts, clock := testOpts()
	opts.Metrics = NewMetrics(prometheus.NewRegistry())
	ch := NewCO2Channel(&recorder{}, time.Second, 0, opts)
	feed(ch, clock, ok(1200), ok(1300))
	if v := testutil.ToFloat64(opts.Metrics.elevated); v != 1 {
		t.Errorf("co2_elevated=%f", v)
	}
	feed(ch, clock, ok(0), ok(500))
	if v := testutil.ToFloat64(opts.Metrics.elevated); v != 0 {
		t.Errorf("co2_elevated=%f", v)
	}
	if v := testutil.ToFloat64(opts.Metrics.publishes.WithLabelValues(NameCO2)); v != 3 {
		t.Errorf("publishes=%f expected 3", v)
	}
	if v := testutil.ToFloat64(opts.Metrics.skips.WithLabelValues(NameCO2, skipRange)); v != 1 {
		t.Errorf("skips=%f expected 1", v)
	}
	if v := testutil.ToFloat64(opts.Metrics.transitions.WithLabelValues("elevated")); v != 1 {
		t.Errorf("transitions=%f expected 1", v)
	}
}

func TestCO2StateString(t *testing.T) {
	if CO2Normal.String() != "normal" || CO2Elevated.String() != "elevated" || CO2State(7).String() != "CO2State(7)" {
		t.Error("unexpected CO2State strings")
	}
}
