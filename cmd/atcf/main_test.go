package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-atcf-tracker/internal/config"
	"github.com/couchcryptid/storm-atcf-tracker/internal/pipeline"
)

func TestKafkaSink(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		set     bool
		batch   bool
		want    bool
	}{
		{"service default", true, false, false, true},
		{"service disabled", false, true, false, false},
		{"batch default", true, false, true, false},
		{"batch explicit", true, true, true, true},
		{"batch disabled", false, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{KafkaEnabled: tt.enabled, KafkaEnabledSet: tt.set}
			assert.Equal(t, tt.want, kafkaSink(cfg, tt.batch))
		})
	}
}

func TestNewNotifier_BatchDefaultIsMarkerOnly(t *testing.T) {
	cfg := &config.Config{
		KafkaEnabled: true,
		MarkerDir:    t.TempDir(),
	}
	sinks, err := newNotifier(cfg, true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sinks.Close() })
	assert.Len(t, sinks, 1)
}

func TestBatchExitCode(t *testing.T) {
	tests := []struct {
		name  string
		stats pipeline.Stats
		want  int
	}{
		{"clean", pipeline.Stats{Consumed: 3, Appended: 2, Duplicates: 1}, 0},
		{"skipped bulletin", pipeline.Stats{Consumed: 3, Appended: 2, Failed: 1}, 2},
		{"notification failed", pipeline.Stats{Consumed: 2, Appended: 2, NotifyFailed: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, batchExitCode(tt.stats))
		})
	}
}
