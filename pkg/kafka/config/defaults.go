package kafka_config

import "time"

const (
	// Default Kafka broker
	DefaultKafkaBrokers = "localhost:9092"

	// Producer defaults
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	// Topic defaults
	DefaultAppointmentTopic    = "appointment-events"
	DefaultAppointmentDLQTopic = "appointment-events-dlq"
	DefaultRecoveryTopic       = "recovery-queue"

	// Middleware defaults
	DefaultEnableMiddleware = true
)
