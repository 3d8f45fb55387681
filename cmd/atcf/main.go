// Command atcf merges decoded tropical cyclone bulletins into ATCF track files.
//
// By default it consumes observations from Kafka and serves health, metrics
// and track queries over HTTP. With -in it processes JSON-lines files once
// and exits:
//
//	go run ./cmd/atcf -in data/mock/observations.jsonl
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/storm-atcf-tracker/internal/adapter/httpadapter"
	"github.com/couchcryptid/storm-atcf-tracker/internal/adapter/jsonl"
	kafkaadapter "github.com/couchcryptid/storm-atcf-tracker/internal/adapter/kafka"
	"github.com/couchcryptid/storm-atcf-tracker/internal/adapter/registry"
	"github.com/couchcryptid/storm-atcf-tracker/internal/archive"
	"github.com/couchcryptid/storm-atcf-tracker/internal/config"
	"github.com/couchcryptid/storm-atcf-tracker/internal/identity"
	"github.com/couchcryptid/storm-atcf-tracker/internal/notify"
	"github.com/couchcryptid/storm-atcf-tracker/internal/observability"
	"github.com/couchcryptid/storm-atcf-tracker/internal/pipeline"
	"github.com/couchcryptid/storm-atcf-tracker/internal/trackstore"
)

func main() {
	in := flag.String("in", "", "comma-separated JSON-lines observation files to process once (\"-\" for stdin)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, *in, logger)
	stop()
	os.Exit(code)
}

// run wires the service and blocks until the context is cancelled or, with
// input files, until they are processed. It returns the process exit code:
// 2 when a batch run skipped any bulletin or failed to announce an update.
func run(ctx context.Context, cfg *config.Config, in string, logger *slog.Logger) int {
	metrics := observability.NewMetrics()

	// Storm registry fallback (enabled via REGISTRY_URL).
	var matcher identity.Matcher
	if cfg.RegistryURL != "" {
		client := registry.NewClient(cfg.RegistryURL, cfg.RegistryTimeout, metrics, logger)
		matcher = registry.NewCachedMatcher(client, cfg.RegistryCacheSize, metrics)
		logger.Info("storm registry enabled", "url", cfg.RegistryURL, "cache_size", cfg.RegistryCacheSize)
	} else {
		logger.Info("storm registry disabled; unresolved bulletins will be skipped")
	}

	arch, err := archive.Open(ctx, cfg.ArchiveDSN)
	if err != nil {
		logger.Error("failed to open archive", "error", err)
		return 1
	}
	defer arch.Close()

	notifier, err := newNotifier(cfg, in != "", logger)
	if err != nil {
		logger.Error("failed to start notifications", "error", err)
		return 1
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Error("notifier close error", "error", err)
		}
	}()

	resolver := identity.NewResolver(cfg.XrefDir, cfg.LockTimeout, matcher, cfg.InvestThreshold, logger)
	repo := trackstore.NewRepository(cfg.ATCFDir, cfg.DefaultSuffix, cfg.LockTimeout, logger)
	processor := pipeline.NewProcessor(resolver, repo, arch, metrics, logger)

	if in != "" {
		reader := jsonl.NewReader(strings.Split(in, ",")...)
		defer reader.Close()

		p := pipeline.New(reader, processor, notifier, logger, metrics, cfg.BatchSize)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
			return 1
		}
		return batchExitCode(p.Stats())
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	p := pipeline.New(reader, processor, notifier, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, repo, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start track pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}

// batchExitCode maps the totals of a one-shot run onto the exit code.
func batchExitCode(s pipeline.Stats) int {
	if s.Failed > 0 || s.NotifyFailed > 0 {
		return 2
	}
	return 0
}

// kafkaSink reports whether updates are published to the Kafka sink topic.
// A one-shot batch run publishes only when KAFKA_ENABLED is set explicitly.
func kafkaSink(cfg *config.Config, batch bool) bool {
	if batch {
		return cfg.KafkaEnabled && cfg.KafkaEnabledSet
	}
	return cfg.KafkaEnabled
}

// newNotifier assembles the update sinks: the completion marker always, the
// Kafka sink topic when enabled, and NATS when NATS_URL is set.
func newNotifier(cfg *config.Config, batch bool, logger *slog.Logger) (notify.Multi, error) {
	sinks := notify.Multi{notify.NewFileMarker(cfg.MarkerDir, cfg.LockTimeout)}

	if kafkaSink(cfg, batch) {
		sinks = append(sinks, kafkaadapter.NewWriter(cfg, logger))
		logger.Info("kafka notifications enabled", "topic", cfg.KafkaSinkTopic)
	}

	if cfg.NATSURL != "" {
		nc, err := notify.NewNATS(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, nc)
		logger.Info("nats notifications enabled", "subject", cfg.NATSSubject)
	}
	return sinks, nil
}
