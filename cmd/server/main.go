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

// server runs the ROOTED REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"google.golang.org/api/option"

	"github.com/jredh-dev/rooted/config"
	"github.com/jredh-dev/rooted/internal/auth"
	"github.com/jredh-dev/rooted/internal/database"
	"github.com/jredh-dev/rooted/internal/docstore"
	"github.com/jredh-dev/rooted/internal/events"
	"github.com/jredh-dev/rooted/internal/handlers"
	"github.com/jredh-dev/rooted/internal/httpserver"
	"github.com/jredh-dev/rooted/internal/stats"
	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/internal/weather"
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
		fmt.Printf("rooted-server %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	cfg := config.Load()
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.Store.Backend, err)
	}
	log.Printf("store: using %s backend", cfg.Store.Backend)

	authService := newAuthService(ctx, cfg)
	weatherCache, cacheCloser := newWeatherCache(ctx, cfg)
	weatherClient := weather.New(cfg.Weather.APIKey, cfg.Weather.BaseURL, weatherCache, cfg.Weather.CacheTTL)
	if cfg.Weather.APIKey == "" {
		log.Println("WARNING: OPENWEATHER_API_KEY is empty; /api/weather will report not configured")
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Printf("events: publishing to %s on %v", cfg.Kafka.Topic, cfg.Kafka.Brokers)
	}

	aggregator := stats.New(st, cfg.Stats.RefreshInterval)

	srv := httpserver.New()
	h := handlers.New(st, weatherClient, authService, aggregator, publisher)
	h.Mount(srv.Router)

	srv.OnStop(aggregator.Stop)
	closeOnStop(srv, "events", publisher)
	if cacheCloser != nil {
		closeOnStop(srv, "weather", cacheCloser)
	}
	closeOnStop(srv, "store", st)

	log.Printf("rooted-server %s (env: %s)", version, cfg.Server.Env)
	if err := srv.ListenAndServe(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemory(), nil
	case "sqlite":
		return database.OpenSQLite(cfg.Store.SQLitePath)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		return database.OpenPostgres(cfg.Store.DatabaseURL)
	case "firestore":
		var opts []option.ClientOption
		if cfg.Firebase.CredentialsPath != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsPath))
		}
		return docstore.Open(ctx, cfg.Firebase.ProjectID, cfg.Firebase.FirestoreDatabase, opts...)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}
}

func newAuthService(ctx context.Context, cfg *config.Config) *auth.Service {
	key := cfg.JWT.SigningKey
	if key == "" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SIGNING_KEY must be set in production")
		}
		generated, err := auth.GenerateSigningKey()
		if err != nil {
			log.Fatalf("Failed to generate signing key: %v", err)
		}
		log.Println("WARNING: JWT_SIGNING_KEY is empty; using an ephemeral key (sessions end on restart)")
		key = generated
	}

	var verifier auth.IDTokenVerifier
	if cfg.Firebase.ProjectID != "" {
		client, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
		if err != nil {
			log.Printf("WARNING: Firebase auth unavailable: %v", err)
		} else {
			verifier = client
		}
	}
	return auth.New(key, cfg.JWT.Issuer, cfg.JWT.TTL, verifier)
}

func closeOnStop(srv *httpserver.Server, component string, c io.Closer) {
	srv.OnStop(func() {
		if err := c.Close(); err != nil {
			log.Printf("%s: close: %v", component, err)
		}
	})
}

// newWeatherCache returns the response cache and, for Redis, the closer
// for its connection pool.
func newWeatherCache(ctx context.Context, cfg *config.Config) (weather.Cache, io.Closer) {
	if cfg.Redis.Addr == "" {
		return weather.NewMemoryCache(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rc, err := weather.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("WARNING: %v; falling back to in-process weather cache", err)
		return weather.NewMemoryCache(), nil
	}
	log.Printf("weather: caching in redis at %s", cfg.Redis.Addr)
	return rc, rc
}
