package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "tc-observations", cfg.KafkaSourceTopic)
	assert.Equal(t, "atcf-track-updates", cfg.KafkaSinkTopic)
	assert.Equal(t, "storm-atcf-tracker", cfg.KafkaGroupID)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.Equal(t, ".", cfg.ATCFDir)
	assert.Equal(t, "dat", cfg.DefaultSuffix)
	assert.Equal(t, ".", cfg.XrefDir)
	assert.Equal(t, ".", cfg.MarkerDir)
	assert.Equal(t, 70, cfg.InvestThreshold)
	assert.Equal(t, 10*time.Second, cfg.LockTimeout)

	assert.Empty(t, cfg.RegistryURL)
	assert.Equal(t, 5*time.Second, cfg.RegistryTimeout)
	assert.Equal(t, 1000, cfg.RegistryCacheSize)
	assert.Empty(t, cfg.ArchiveDSN)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, "atcf.track.updated", cfg.NATSSubject)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("ATCF_DIR", "/data/atcf")
	t.Setenv("ATCF_DEFAULT_SUFFIX", "jtwc")
	t.Setenv("XREF_DIR", "/data/xref")
	t.Setenv("INVEST_THRESHOLD", "80")
	t.Setenv("LOCK_TIMEOUT", "2s")
	t.Setenv("REGISTRY_URL", "http://registry:8081")
	t.Setenv("REGISTRY_TIMEOUT", "1s")
	t.Setenv("REGISTRY_CACHE_SIZE", "50")
	t.Setenv("ARCHIVE_DSN", "postgres://atcf@db/atcf")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("NATS_SUBJECT", "tc.updates")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)

	assert.Equal(t, "/data/atcf", cfg.ATCFDir)
	assert.Equal(t, "jtwc", cfg.DefaultSuffix)
	assert.Equal(t, "/data/xref", cfg.XrefDir)
	assert.Equal(t, "/data/atcf", cfg.MarkerDir, "marker dir follows ATCF_DIR")
	assert.Equal(t, 80, cfg.InvestThreshold)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)

	assert.Equal(t, "http://registry:8081", cfg.RegistryURL)
	assert.Equal(t, 1*time.Second, cfg.RegistryTimeout)
	assert.Equal(t, 50, cfg.RegistryCacheSize)
	assert.Equal(t, "postgres://atcf@db/atcf", cfg.ArchiveDSN)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.Equal(t, "tc.updates", cfg.NATSSubject)
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"BATCH_SIZE", "0"},
		{"BATCH_SIZE", "9999"},
		{"BATCH_FLUSH_INTERVAL", "not-a-duration"},
		{"LOCK_TIMEOUT", "forever"},
		{"LOCK_TIMEOUT", "0s"},
		{"REGISTRY_TIMEOUT", "bad"},
		{"INVEST_THRESHOLD", "abc"},
		{"INVEST_THRESHOLD", "0"},
		{"INVEST_THRESHOLD", "100"},
		{"REGISTRY_CACHE_SIZE", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_SinkTopicOptionalWhenKafkaDisabled(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("KAFKA_SINK_TOPIC", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaEnabledSet(t *testing.T) {
	tests := []struct {
		name    string
		value   *string
		enabled bool
		set     bool
	}{
		{"unset", nil, true, false},
		{"explicit true", strPtr("true"), true, true},
		{"explicit false", strPtr("false"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == nil {
				unsetEnv(t, "KAFKA_ENABLED")
			} else {
				t.Setenv("KAFKA_ENABLED", *tt.value)
			}

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, cfg.KafkaEnabled)
			assert.Equal(t, tt.set, cfg.KafkaEnabledSet)
		})
	}
}

func strPtr(s string) *string { return &s }

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
