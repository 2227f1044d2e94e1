package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to JetStream subjects and feeds raw events
// into the sequencer's intake channel. Each subject maps to one event
// kind; the single consumer of the channel parses and ingests, so all
// state mutation stays inside the serial region.
type NATSSubscriber struct {
	js        jetstream.JetStream
	eventChan chan<- RawEvent
	consumers []jetstream.ConsumeContext
}

// RawEvent is a delivered-but-untyped message, ready for the shell to
// dedup, parse, and hand to the engine.
type RawEvent struct {
	Kind    string
	Subject string
	Data    []byte
	AckFunc func() // ACK after successful processing
	NakFunc func() // NAK on failure (redelivered)
}

// SubjectConfig maps a NATS subject to an event kind.
type SubjectConfig struct {
	Subject      string
	Kind         string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns the standard subject layout: one subject per
// externally-produced event kind.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "risk.markets.init.>", Kind: "MarketInit", ConsumerName: "risk-market-init", StreamName: "RISK_ADMIN"},
		{Subject: "risk.deposits.>", Kind: "Deposit", ConsumerName: "risk-deposits", StreamName: "RISK_TRANSFERS"},
		{Subject: "risk.withdrawals.>", Kind: "Withdraw", ConsumerName: "risk-withdrawals", StreamName: "RISK_TRANSFERS"},
		{Subject: "risk.fills.>", Kind: "TradeFill", ConsumerName: "risk-fills", StreamName: "RISK_FILLS"},
		{Subject: "risk.prices.>", Kind: "MarkPriceUpdate", ConsumerName: "risk-prices", StreamName: "RISK_PRICES"},
		{Subject: "risk.funding.>", Kind: "FundingUpdate", ConsumerName: "risk-funding", StreamName: "RISK_FUNDING"},
	}
}

func NewNATSSubscriber(js jetstream.JetStream, eventChan chan<- RawEvent) *NATSSubscriber {
	return &NATSSubscriber{
		js:        js,
		eventChan: eventChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		cfg := cfg
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawEvent{
				Kind:    cfg.Kind,
				Subject: msg.Subject(),
				Data:    msg.Data(),
				AckFunc: func() { msg.Ack() },
				NakFunc: func() { msg.Nak() },
			}

			select {
			case ns.eventChan <- raw:
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.Subject, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
	}

	return nil
}

// Stop drains all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, c := range ns.consumers {
		c.Stop()
	}
}
