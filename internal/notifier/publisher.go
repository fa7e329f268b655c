// Package notifier publishes appointment lifecycle and no-show recovery
// events. Publishing is fire and forget from the caller's perspective: a
// failed publish is logged and never rolls back the state transition that
// produced it.
package notifier

import (
	"context"
	"time"

	"medicita/pkg/kafka"
	kafka_config "medicita/pkg/kafka/config"
	kafka_middleware "medicita/pkg/kafka/middleware"
	"medicita/pkg/logger"
	"medicita/pkg/model"

	"github.com/google/uuid"
)

const (
	EventAppointmentCreated     = "appointment_created"
	EventAppointmentConfirmed   = "appointment_confirmed"
	EventAppointmentArrived     = "appointment_arrived"
	EventAppointmentInAttention = "appointment_in_attention"
	EventAppointmentFinished    = "appointment_finished"
	EventAppointmentCancelled   = "appointment_cancelled"
	EventAppointmentRescheduled = "appointment_rescheduled"
	EventAppointmentNoShow      = "appointment_no_show"
	EventRecoveryWindowOpened   = "recovery_window_opened"
)

// AppointmentEvent is the payload for lifecycle topic messages.
type AppointmentEvent struct {
	EventType     string    `json:"event_type"`
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	BranchID      string    `json:"branch_id"`
	DoctorID      string    `json:"doctor_id,omitempty"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RecoveryEvent enqueues a patient into the follow-up window after a no-show.
type RecoveryEvent struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	BranchID      string    `json:"branch_id"`
	DoctorID      string    `json:"doctor_id,omitempty"`
	MissedDate    string    `json:"missed_date"`
	MissedTime    string    `json:"missed_time"`
	RecoveryUntil time.Time `json:"recovery_until"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher is the outbound event surface. The Kafka implementation below is
// the production one; tests substitute a recording double.
type Publisher interface {
	AppointmentEvent(ctx context.Context, eventType string, appt *model.Appointment)
	RecoveryEvent(ctx context.Context, appt *model.Appointment)
	Close() error
}

type kafkaPublisher struct {
	appointments *kafka.Producer
	recovery     *kafka.Producer
	service      string
	log          *logger.Logger
}

func NewKafkaPublisher(cfg *kafka_config.Config, serviceName string, log *logger.Logger) (Publisher, error) {
	appointments, err := kafka.NewProducer(cfg, cfg.AppointmentTopic, cfg.AppointmentDLQTopic)
	if err != nil {
		return nil, err
	}
	recovery, err := kafka.NewProducer(cfg, cfg.RecoveryTopic, "")
	if err != nil {
		appointments.Close()
		return nil, err
	}

	if cfg.EnableMiddleware {
		logging := kafka_middleware.LoggingProducerMiddleware(log)
		appointments.Use(logging)
		recovery.Use(logging)
	}

	return &kafkaPublisher{
		appointments: appointments,
		recovery:     recovery,
		service:      serviceName,
		log:          log,
	}, nil
}

func (p *kafkaPublisher) AppointmentEvent(ctx context.Context, eventType string, appt *model.Appointment) {
	event := AppointmentEvent{
		EventType:     eventType,
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		BranchID:      appt.BranchID,
		DoctorID:      appt.DoctorID,
		Date:          appt.Date,
		Time:          appt.Time,
		Status:        string(appt.Status),
		OccurredAt:    time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(appt.ID).
		WithValue(event).
		WithEventID(uuid.New().String()).
		WithEventType(eventType).
		WithSource(p.service).
		Build()

	if err := p.appointments.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish appointment event",
			"event_type", eventType,
			"appointment_id", appt.ID,
			"error", err,
		)
	}
}

func (p *kafkaPublisher) RecoveryEvent(ctx context.Context, appt *model.Appointment) {
	if appt.RecoveryUntil == nil {
		p.log.Warn("Recovery event without a recovery window, skipping",
			"appointment_id", appt.ID,
		)
		return
	}

	event := RecoveryEvent{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		BranchID:      appt.BranchID,
		DoctorID:      appt.DoctorID,
		MissedDate:    appt.Date,
		MissedTime:    appt.Time,
		RecoveryUntil: *appt.RecoveryUntil,
		OccurredAt:    time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(appt.PatientID).
		WithValue(event).
		WithEventID(uuid.New().String()).
		WithEventType(EventRecoveryWindowOpened).
		WithSource(p.service).
		Build()

	if err := p.recovery.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish recovery event",
			"appointment_id", appt.ID,
			"patient_id", appt.PatientID,
			"error", err,
		)
	}
}

func (p *kafkaPublisher) Close() error {
	errAppointments := p.appointments.Close()
	errRecovery := p.recovery.Close()
	if errAppointments != nil {
		return errAppointments
	}
	return errRecovery
}

// NopPublisher drops every event. Used where eventing is not wired, such as
// the migration command.
type NopPublisher struct{}

func (NopPublisher) AppointmentEvent(ctx context.Context, eventType string, appt *model.Appointment) {
}
func (NopPublisher) RecoveryEvent(ctx context.Context, appt *model.Appointment) {}
func (NopPublisher) Close() error                                              { return nil }
