// rooted - farm-to-community marketplace backend
// Copyright (C) 2025  rooted contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

const (
	// Topic carries every domain event.
	Topic = "rooted-events"

	// DLQTopic receives events whose notification exhausted all attempts.
	DLQTopic = "rooted-events-dlq"

	maxAttempts = 3
)

// KafkaPublisher writes events keyed by entity id, so all events for one
// record land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = Topic
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.EntityID), Value: value}); err != nil {
		return fmt.Errorf("write %s: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads events and hands donation events to a Notifier. Offsets
// are committed after handling, so delivery is at-least-once. A message
// that fails maxAttempts times is copied to the dead-letter topic.
type Consumer struct {
	topic    string
	reader   messageReader
	dlq      messageWriter
	notifier Notifier
	backoff  time.Duration
}

// NewConsumer joins groupID on topic.
func NewConsumer(brokers []string, topic, groupID string, notifier Notifier) *Consumer {
	if topic == "" {
		topic = Topic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		CommitInterval: 0,
		StartOffset:    kafka.LastOffset,
	})
	dlq := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Consumer{topic: topic, reader: reader, dlq: dlq, notifier: notifier, backoff: 2 * time.Second}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	log.Printf("notifier: consuming from topic %q", c.topic)
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}

		if err := c.handle(ctx, m); err != nil {
			log.Printf("notifier: routed message key=%s to DLQ: %v", string(m.Key), err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("notifier: commit failed (message may be redelivered): %v", err)
		}
	}
}

// Close releases the reader and the dead-letter writer.
func (c *Consumer) Close() error {
	rerr := c.reader.Close()
	werr := c.dlq.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// handle notifies for one message with linear backoff between attempts.
// Non-donation events are acknowledged without notifying.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	var e Event
	if err := json.Unmarshal(m.Value, &e); err != nil {
		return c.deadLetter(ctx, m, fmt.Errorf("unmarshal: %w", err))
	}
	if !e.IsDonation() {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = c.notifier.Notify(ctx, e)
		if lastErr == nil {
			log.Printf("notifier: delivered %s id=%s (attempt %d)", e.Type, e.ID, attempt)
			return nil
		}
		log.Printf("notifier: attempt %d/%d failed for id=%s: %v", attempt, maxAttempts, e.ID, lastErr)

		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * c.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return c.deadLetter(ctx, m, lastErr)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, reason error) error {
	err := c.dlq.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value})
	if err != nil {
		log.Printf("notifier: CRITICAL could not write to DLQ: %v", err)
	}
	return reason
}
