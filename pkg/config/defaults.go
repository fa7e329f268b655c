package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medicita"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 20
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// A hold survives the interactive booking form, not longer.
	DefaultHoldTTL    = 5 * time.Minute
	DefaultMinHoldTTL = 30 * time.Second
	DefaultMaxHoldTTL = 15 * time.Minute

	DefaultNoShowGrace        = 15 * time.Minute
	DefaultSweepInterval      = 1 * time.Hour
	DefaultEndOfDay           = "21:00"
	DefaultRecoveryWindowDays = 7

	DefaultDefaultSlotDurationMin = 30

	DefaultPaginationLimit = 100
)
