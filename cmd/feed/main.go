// Package main follows the entity change feed and prints each event as a
// JSON line on stdout.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swyw/swyw/internal/changefeed"
	"github.com/swyw/swyw/internal/config"
	"github.com/swyw/swyw/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFeed()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout carries only events.
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	client, err := changefeed.Connect(connectCtx, cfg.RedisURL)
	cancel()
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	sub := changefeed.NewSubscriber(client.Redis(), logger, cfg.From)
	if err := sub.Run(ctx, printEvents(os.Stdout)); err != nil {
		logger.Error("change feed stopped", "error", err, "last_id", sub.LastID())
		os.Exit(1)
	}
}

type line struct {
	StreamID string `json:"stream_id"`
	changefeed.Event
}

// printEvents writes one JSON object per event to w.
func printEvents(w io.Writer) changefeed.HandlerFunc {
	enc := json.NewEncoder(w)
	return func(_ context.Context, streamID string, event changefeed.Event) error {
		return enc.Encode(line{StreamID: streamID, Event: event})
	}
}
