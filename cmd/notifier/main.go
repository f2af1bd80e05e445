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

// notifier is a long-running Kafka consumer that reads domain events from
// the "rooted-events" topic and delivers donation notifications.
//
// Configuration comes from the same environment as the API server:
//
//	KAFKA_BROKERS       comma-separated broker list, e.g. "kafka:9092"
//	KAFKA_TOPIC         events topic (default "rooted-events")
//	KAFKA_GROUP_ID      consumer group (default "rooted-notifier")
//	NOTIFY_WEBHOOK_URL  where notifications are POSTed; empty logs them
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jredh-dev/rooted/config"
	"github.com/jredh-dev/rooted/internal/events"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rooted-notifier %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	cfg := config.Load()
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("notifier: required environment variable \"KAFKA_BROKERS\" is not set")
	}

	var notifier events.Notifier = events.LogNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = events.NewWebhookNotifier(cfg.Notify.WebhookURL)
	}

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, notifier)
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Printf("notifier: error closing consumer: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("notifier: starting (brokers=%v group=%s webhook=%t)", cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Notify.WebhookURL != "")
	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("notifier: fatal error: %v", err)
	}
	log.Println("notifier: shutdown complete")
}
