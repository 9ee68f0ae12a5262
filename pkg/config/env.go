package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvStoreBackend = "STORE_BACKEND"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvSignatureSecret = "SIGNATURE_SECRET"
	EnvSealerKey       = "SEALER_KEY"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvBookingHorizonDays = "BOOKING_HORIZON_DAYS"
	EnvLockTTL            = "LOCK_TTL"

	EnvEventsBackend = "EVENTS_BACKEND"
	EnvKafkaBrokers  = "KAFKA_BROKERS"
	EnvKafkaTopic    = "KAFKA_TOPIC"
	EnvAmqpURI       = "AMQP_URI"
	EnvAmqpQueue     = "AMQP_QUEUE"

	EnvMemcachedAddr = "MEMCACHED_ADDR"
	EnvCacheTTL      = "CACHE_TTL"
	EnvCacheMaxSize  = "CACHE_MAX_SIZE"

	EnvPaymentsBackend      = "PAYMENTS_BACKEND"
	EnvPaymentsBaseURL      = "PAYMENTS_BASE_URL"
	EnvPaymentsInitialGrant = "PAYMENTS_INITIAL_GRANT"
)
