// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package kafkapub streams monitor updates to a Kafka topic as JSON events
// keyed by the source name.
package kafkapub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/GermanBionicSystems/airsense/monitor"
)

// Event is the message value.
type Event struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements monitor.Publisher with an asynchronous kafka.Writer,
// so publishing never blocks a tick. Delivery failures are logged.
type Publisher struct {
	w      messageWriter
	source string
	clock  monitor.Clock
	log    *slog.Logger
}

// New returns a publisher writing to topic on brokers.
func New(brokers []string, topic, source string, logger *slog.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Error("kafka write failed", "topic", topic, "messages", len(msgs), "err", err)
			}
		},
	}
	return newPublisher(w, source, logger)
}

func newPublisher(w messageWriter, source string, logger *slog.Logger) *Publisher {
	return &Publisher{w: w, source: source, clock: monitor.SystemClock{}, log: logger}
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

func (p *Publisher) PublishTemperature(celsius float32) {
	p.publish(monitor.NameTemperature, celsius)
}

func (p *Publisher) PublishHumidity(percent float32) {
	p.publish(monitor.NameHumidity, percent)
}

func (p *Publisher) PublishCO2Level(ppm uint16) {
	p.publish(monitor.NameCO2, ppm)
}

func (p *Publisher) PublishCO2Elevated(elevated bool) {
	p.publish("co2_elevated", elevated)
}

func (p *Publisher) publish(kind string, value any) {
	now := p.clock.Now()
	b, err := json.Marshal(Event{ID: uuid.NewString(), Source: p.source, Kind: kind, Value: value, Timestamp: now})
	if err != nil {
		p.log.Error("kafka marshal failed", "err", err)
		return
	}
	if err := p.w.WriteMessages(context.Background(), kafka.Message{Key: []byte(p.source), Value: b, Time: now}); err != nil {
		p.log.Error("kafka write failed", "kind", kind, "err", err)
	}
}

var _ monitor.Publisher = &Publisher{}
