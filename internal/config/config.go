package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	KafkaEnabled     bool
	KafkaEnabledSet  bool // KAFKA_ENABLED given explicitly
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Track store layout.
	ATCFDir         string
	DefaultSuffix   string
	XrefDir         string
	MarkerDir       string
	InvestThreshold int
	LockTimeout     time.Duration

	// Storm registry matcher.
	RegistryURL       string
	RegistryTimeout   time.Duration
	RegistryCacheSize int

	// Optional sinks.
	ArchiveDSN  string
	NATSURL     string
	NATSSubject string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	lockTimeout, err := parsePositiveDuration("LOCK_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	registryTimeout, err := parsePositiveDuration("REGISTRY_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	investThreshold, err := parsePositiveInt("INVEST_THRESHOLD", domain.DefaultInvestThreshold)
	if err != nil {
		return nil, err
	}
	if investThreshold > 99 {
		return nil, errors.New("INVEST_THRESHOLD must be at most 99")
	}

	registryCacheSize, err := parsePositiveInt("REGISTRY_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	atcfDir := sharedcfg.EnvOrDefault("ATCF_DIR", ".")
	_, kafkaEnabledSet := os.LookupEnv("KAFKA_ENABLED")

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "tc-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "atcf-track-updates"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-atcf-tracker"),
		KafkaEnabled:       sharedcfg.EnvOrDefault("KAFKA_ENABLED", "true") == "true",
		KafkaEnabledSet:    kafkaEnabledSet,
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ATCFDir:         atcfDir,
		DefaultSuffix:   sharedcfg.EnvOrDefault("ATCF_DEFAULT_SUFFIX", "dat"),
		XrefDir:         sharedcfg.EnvOrDefault("XREF_DIR", atcfDir),
		MarkerDir:       sharedcfg.EnvOrDefault("MARKER_DIR", atcfDir),
		InvestThreshold: investThreshold,
		LockTimeout:     lockTimeout,

		RegistryURL:       os.Getenv("REGISTRY_URL"),
		RegistryTimeout:   registryTimeout,
		RegistryCacheSize: registryCacheSize,

		ArchiveDSN:  os.Getenv("ARCHIVE_DSN"),
		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: sharedcfg.EnvOrDefault("NATS_SUBJECT", "atcf.track.updated"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.DefaultSuffix == "" {
		return nil, errors.New("ATCF_DEFAULT_SUFFIX is required")
	}
	if cfg.NATSURL != "" && cfg.NATSSubject == "" {
		return nil, errors.New("NATS_URL is set but NATS_SUBJECT is empty")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
