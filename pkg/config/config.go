package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"stayledger/pkg/client"
	"stayledger/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	StoreBackend string

	Port string

	SignatureSecret string
	SealerKey       string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BookingHorizonDays uint64
	LockTTL            time.Duration

	EventsBackend string
	KafkaBrokers  []string
	KafkaTopic    string
	AmqpURI       string
	AmqpQueue     string

	MemcachedAddr string
	CacheTTL      time.Duration
	CacheMaxSize  int

	PaymentsBackend      string
	PaymentsBaseURL      string
	PaymentsInitialGrant uint64

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		StoreBackend: getEnvStr(EnvStoreBackend, DefaultStoreBackend),

		Port: getEnvStr(EnvPort, DefaultPort),

		SignatureSecret: getEnvStr(EnvSignatureSecret, ""),
		SealerKey:       getEnvStr(EnvSealerKey, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		BookingHorizonDays: getEnvUint(EnvBookingHorizonDays, DefaultBookingHorizonDays),
		LockTTL:            getEnvDuration(EnvLockTTL, DefaultLockTTL),

		EventsBackend: getEnvStr(EnvEventsBackend, DefaultEventsBackend),
		KafkaBrokers:  splitList(getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers)),
		KafkaTopic:    getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),
		AmqpURI:       getEnvStr(EnvAmqpURI, DefaultAmqpURI),
		AmqpQueue:     getEnvStr(EnvAmqpQueue, DefaultAmqpQueue),

		MemcachedAddr: getEnvStr(EnvMemcachedAddr, ""),
		CacheTTL:      getEnvDuration(EnvCacheTTL, DefaultCacheTTL),
		CacheMaxSize:  getEnvNum(EnvCacheMaxSize, DefaultCacheMaxSize),

		PaymentsBackend:      getEnvStr(EnvPaymentsBackend, DefaultPaymentsBackend),
		PaymentsBaseURL:      getEnvStr(EnvPaymentsBaseURL, ""),
		PaymentsInitialGrant: getEnvUint(EnvPaymentsInitialGrant, DefaultPaymentsInitialGrant),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreBackend {
	case StoreMemory:
	case StoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty with the mongo store backend")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty with the mongo store backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreBackend must be %q or %q, got: %s", StoreMemory, StoreMongo, cfg.StoreBackend))
	}

	switch cfg.EventsBackend {
	case EventsNone:
	case EventsKafka:
		if len(cfg.KafkaBrokers) == 0 {
			errors = append(errors, "KafkaBrokers cannot be empty with the kafka events backend")
		}
		if cfg.KafkaTopic == "" {
			errors = append(errors, "KafkaTopic cannot be empty with the kafka events backend")
		}
	case EventsAmqp:
		if cfg.AmqpURI == "" {
			errors = append(errors, "AmqpURI cannot be empty with the amqp events backend")
		}
		if cfg.AmqpQueue == "" {
			errors = append(errors, "AmqpQueue cannot be empty with the amqp events backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("EventsBackend must be one of %q, %q, %q, got: %s", EventsNone, EventsKafka, EventsAmqp, cfg.EventsBackend))
	}

	switch cfg.PaymentsBackend {
	case PaymentsVault:
	case PaymentsHTTP:
		if cfg.PaymentsBaseURL == "" {
			errors = append(errors, "PaymentsBaseURL cannot be empty with the http payments backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("PaymentsBackend must be %q or %q, got: %s", PaymentsVault, PaymentsHTTP, cfg.PaymentsBackend))
	}

	if cfg.SealerKey != "" {
		if key, err := hex.DecodeString(cfg.SealerKey); err != nil || len(key) != 32 {
			errors = append(errors, "SealerKey must be 64 hex characters (a 32-byte AES-256 key)")
		}
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	}
	if cfg.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CacheTTL must be positive, got: %s", cfg.CacheTTL))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.CacheMaxSize <= 0 {
		errors = append(errors, fmt.Sprintf("CacheMaxSize must be positive, got: %d", cfg.CacheMaxSize))
	}
	if cfg.BookingHorizonDays == 0 {
		errors = append(errors, "BookingHorizonDays must be positive")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"store_backend", cfg.StoreBackend,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"signature_secret_set", cfg.SignatureSecret != "",
		"sealer_key_set", cfg.SealerKey != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"booking_horizon_days", cfg.BookingHorizonDays,
		"lock_ttl", cfg.LockTTL,
		"events_backend", cfg.EventsBackend,
		"kafka_brokers", strings.Join(cfg.KafkaBrokers, ","),
		"kafka_topic", cfg.KafkaTopic,
		"amqp_queue", cfg.AmqpQueue,
		"memcached_addr", cfg.MemcachedAddr,
		"cache_ttl", cfg.CacheTTL,
		"cache_max_size", cfg.CacheMaxSize,
		"payments_backend", cfg.PaymentsBackend,
		"payments_base_url", cfg.PaymentsBaseURL,
		"payments_initial_grant", cfg.PaymentsInitialGrant,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvUint(key string, fallback uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
