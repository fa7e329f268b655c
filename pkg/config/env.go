package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvHoldTTL    = "HOLD_TTL"
	EnvMinHoldTTL = "MIN_HOLD_TTL"
	EnvMaxHoldTTL = "MAX_HOLD_TTL"

	EnvNoShowGrace        = "NO_SHOW_GRACE"
	EnvSweepInterval      = "SWEEP_INTERVAL"
	EnvEndOfDay           = "END_OF_DAY"
	EnvRecoveryWindowDays = "RECOVERY_WINDOW_DAYS"

	EnvDefaultSlotDurationMin = "DEFAULT_SLOT_DURATION_MIN"
)
