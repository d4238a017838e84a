// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments updated by the monitor. All
// methods are safe on a nil *Metrics.
type Metrics struct {
	reads       *prometheus.CounterVec
	publishes   *prometheus.CounterVec
	skips       *prometheus.CounterVec
	transitions *prometheus.CounterVec
	elevated    prometheus.Gauge
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airsense",
			Name:      "sensor_reads_total",
			Help:      "Sensor transactions by result and device error code.",
		}, []string{"result", "code"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airsense",
			Name:      "publishes_total",
			Help:      "Values published per channel.",
		}, []string{"channel"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airsense",
			Name:      "skips_total",
			Help:      "Channel fires that did not publish, by reason.",
		}, []string{"channel", "reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airsense",
			Name:      "co2_transitions_total",
			Help:      "CO2 hysteresis transitions by target state.",
		}, []string{"state"}),
		elevated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airsense",
			Name:      "co2_elevated",
			Help:      "1 while the CO2 channel is in the elevated state.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.reads, m.publishes, m.skips, m.transitions, m.elevated)
	}
	return m
}

func (m *Metrics) read(err *BusError) {
	if m == nil {
		return
	}
	if err == nil {
		m.reads.WithLabelValues("ok", "0").Inc()
		return
	}
	m.reads.WithLabelValues("error", strconv.Itoa(int(err.Code))).Inc()
}

func (m *Metrics) published(channel string) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(channel).Inc()
}

func (m *Metrics) skip(channel, reason string) {
	if m == nil {
		return
	}
	m.skips.WithLabelValues(channel, reason).Inc()
}

func (m *Metrics) transition(to CO2State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to.String()).Inc()
}

func (m *Metrics) co2State(s CO2State) {
	if m == nil {
		return
	}
	if s == CO2Elevated {
		m.elevated.Set(1)
	} else {
		m.elevated.Set(0)
	}
}
