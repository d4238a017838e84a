// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mqttpub publishes monitor updates to an MQTT broker, one topic
// per endpoint under a common prefix.
package mqttpub

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/GermanBionicSystems/airsense/monitor"
)

// Config holds the broker connection settings.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

// Message is the JSON payload of every update.
type Message struct {
	ID        string    `json:"id"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Delivery limits. Publishes beyond maxPending unconfirmed messages are
// dropped.
const (
	maxPending     = 64
	publishTimeout = 10 * time.Second
)

type pending struct {
	topic string
	token mqtt.Token
}

// Publisher implements monitor.Publisher on top of an mqtt.Client. Publish
// calls never wait for the broker. A single goroutine waits for delivery
// confirmations.
type Publisher struct {
	client   mqtt.Client
	prefix   string
	qos      byte
	retained bool
	clock    monitor.Clock
	log      *slog.Logger

	pending   chan pending
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	dropped   atomic.Uint64
}

// New creates a publisher and its client. Call Connect before publishing.
func New(cfg Config, logger *slog.Logger) *Publisher {
	if cfg.ClientID == "" {
		cfg.ClientID = "airsense-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if strings.HasPrefix(cfg.Broker, "ssl://") || strings.HasPrefix(cfg.Broker, "wss://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "err", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		logger.Info("mqtt reconnecting", "broker", cfg.Broker)
	})
	return NewWithClient(mqtt.NewClient(opts), cfg, logger)
}

// NewWithClient wraps an existing client.
func NewWithClient(client mqtt.Client, cfg Config, logger *slog.Logger) *Publisher {
	p := &Publisher{
		client:   client,
		prefix:   strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:      cfg.QoS,
		retained: cfg.Retained,
		clock:    monitor.SystemClock{},
		log:      logger,
		pending:  make(chan pending, maxPending),
		done:     make(chan struct{}),
	}
	p.wg.Add(1)
	go p.confirm()
	return p
}

// Connect connects to the broker.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqttpub: connect: %w", token.Error())
	}
	return nil
}

// Close stops waiting for confirmations and disconnects, allowing 250ms for
// in-flight messages.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		p.client.Disconnect(250)
	})
}

// Dropped returns the number of messages not tracked to confirmation because
// too many were outstanding.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Topic returns the topic used for an endpoint.
func (p *Publisher) Topic(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "/" + name
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
	p.publish(monitor.NameCO2+"/elevated", elevated)
}

func (p *Publisher) publish(name string, value any) {
	b, err := json.Marshal(Message{ID: uuid.NewString(), Value: value, Timestamp: p.clock.Now()})
	if err != nil {
		p.log.Error("mqtt marshal failed", "err", err)
		return
	}
	topic := p.Topic(name)
	if len(p.pending) == cap(p.pending) {
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.log.Warn("mqtt backlog full, dropping message", "topic", topic, "dropped", n)
		}
		return
	}
	token := p.client.Publish(topic, p.qos, p.retained, b)
	select {
	case p.pending <- pending{topic, token}:
	default:
		// Lost a race for the last slot; the message is sent unconfirmed.
		p.dropped.Add(1)
	}
}

// confirm waits on publish tokens one at a time until Close.
func (p *Publisher) confirm() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case m := <-p.pending:
			if !m.token.WaitTimeout(publishTimeout) {
				p.log.Warn("mqtt publish unconfirmed", "topic", m.topic, "timeout", publishTimeout)
				continue
			}
			if err := m.token.Error(); err != nil {
				p.log.Error("mqtt publish failed", "topic", m.topic, "err", err)
			}
		}
	}
}

var _ monitor.Publisher = &Publisher{}
