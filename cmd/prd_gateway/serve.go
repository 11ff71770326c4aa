package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"prd_gateway/internal/adsb"
	"prd_gateway/internal/api"
	"prd_gateway/internal/forward"
	"prd_gateway/internal/icons"
	"prd_gateway/internal/ingest"
	"prd_gateway/internal/state"
	"prd_gateway/internal/storage"
)

func runServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "localhost", "Host to bind the UDP socket to")
	port := fs.Int("port", 5000, "Port to bind the UDP socket to")
	adsbHost := fs.String("adsb-host", "localhost", "Host to POST ADS-B states to")
	adsbPort := fs.Int("adsb-port", 80, "Port to POST ADS-B states to")
	callsign := fs.String("callsign", "", "Default callsign for frames that carry none")
	iconPath := fs.String("icons", "config/callsigns_to_icons.yaml", "Callsign-to-icon YAML document")
	dbPath := fs.String("db", "", "Tracker SQLite path (default: in-memory)")
	apiPort := fs.Int("api", 0, "Status API port (0: disabled)")
	workers := fs.Int("workers", 0, "Decode workers (0: one per CPU)")
	natsURL := fs.String("nats", "", "NATS server URL (empty: disabled)")
	natsSubject := fs.String("nats-subject", forward.DefaultSubject, "NATS subject for aircraft states")
	chAddr := fs.String("clickhouse", "", "ClickHouse host:port (empty: disabled)")
	chDB := fs.String("ch-db", "adsb", "ClickHouse database")
	chUser := fs.String("ch-user", "default", "ClickHouse user")
	chPass := fs.String("ch-pass", "", "ClickHouse password")
	pgAddr := fs.String("postgres", "", "PostgreSQL host:port (empty: disabled)")
	pgDB := fs.String("pg-db", "adsb_registry", "PostgreSQL database")
	pgUser := fs.String("pg-user", "adsb", "PostgreSQL user")
	pgPass := fs.String("pg-pass", "adsb", "PostgreSQL password")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := icons.Load(*iconPath)
	if err != nil {
		log.Fatalf("serve: %v", err)
	}
	if table.Len() == 0 {
		log.Printf("serve: no icon mappings loaded from %s, using default icon only", *iconPath)
	} else {
		log.Printf("serve: loaded %d icon mappings from %s", table.Len(), *iconPath)
	}

	tracker, err := state.NewTracker(*dbPath)
	if err != nil {
		log.Fatalf("serve: %v", err)
	}
	defer func() { _ = tracker.Close() }()

	fanout := forward.NewFanout(
		forward.NewHTTPSink(*adsbHost, *adsbPort),
		tracker,
	)

	if *natsURL != "" {
		sink, err := forward.NewNATSSink(*natsURL, *natsSubject)
		if err != nil {
			log.Fatalf("serve: %v", err)
		}
		defer sink.Close()
		fanout.Add(sink)
		log.Printf("serve: publishing aircraft states to %s on %s", *natsSubject, *natsURL)
	}

	if *chAddr != "" {
		cfg := storage.DefaultClickHouseConfig()
		cfg.Host, cfg.Port = splitHostPort(*chAddr, cfg.Port)
		cfg.Database, cfg.User, cfg.Password = *chDB, *chUser, *chPass
		ch, err := storage.OpenClickHouse(ctx, cfg)
		if err != nil {
			log.Fatalf("serve: %v", err)
		}
		defer func() { _ = ch.Close() }()
		if err := ch.CreateSchema(ctx); err != nil {
			log.Fatalf("serve: %v", err)
		}
		fanout.Add(ch)
		log.Printf("serve: recording positions to clickhouse at %s", *chAddr)
	}

	if *pgAddr != "" {
		cfg := storage.DefaultPostgresConfig()
		cfg.Host, cfg.Port = splitHostPort(*pgAddr, cfg.Port)
		cfg.Database, cfg.User, cfg.Password = *pgDB, *pgUser, *pgPass
		pg, err := storage.OpenPostgres(ctx, cfg)
		if err != nil {
			log.Fatalf("serve: %v", err)
		}
		defer pg.Close()
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("serve: %v", err)
		}
		fanout.Add(pg)
		log.Printf("serve: maintaining aircraft registry in postgres at %s", *pgAddr)
	}

	receiver := ingest.NewServer(ingest.Config{
		Host:            *host,
		Port:            *port,
		Workers:         *workers,
		DefaultCallsign: *callsign,
	}, adsb.NewNormalizer(table), fanout)

	if *apiPort > 0 {
		go func() {
			srv := api.NewServer(tracker, receiver, api.Config{Port: *apiPort})
			if err := srv.Run(); err != nil {
				log.Printf("serve: api: %v", err)
			}
		}()
	}

	log.Printf("serve: forwarding ADS-B states to http://%s:%d/adsb", *adsbHost, *adsbPort)
	if err := receiver.Run(ctx); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// splitHostPort parses "host:port", "host" or ":port", falling back to
// defaultPort when none is given.
func splitHostPort(s string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return s, defaultPort
	}
	if host == "" {
		host = "localhost"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return host, defaultPort
	}
	return host, port
}
