package service

import (
	"context"
	"time"

	"medicita/internal/notifier"
	"medicita/pkg/config"
	apperrors "medicita/pkg/errors"
	"medicita/pkg/model"
	"medicita/pkg/timecal"
)

// SweepStore is the slice of the appointment repository the sweep needs.
// FindSweepCandidates covers every sweepable appointment dated through the
// given day, so backlog from days the sweeper missed is still picked up. All
// three operations re-check eligibility inside the database, so running two
// sweepers concurrently never double-transitions an appointment.
type SweepStore interface {
	FindSweepCandidates(ctx context.Context, throughDate string) ([]*model.Appointment, error)
	MarkAtRisk(ctx context.Context, ids []string) (int64, error)
	MarkNoShow(ctx context.Context, id string, noShowAt time.Time, recoveryUntil time.Time) (bool, error)
}

// SweeperService runs the two phases of the no-show protocol. SweepAtRisk
// flags appointments whose slot time plus grace period has passed without an
// arrival; SweepEndOfDay transitions flagged appointments to no-show and
// opens their recovery window. Today's appointments transition only once the
// configured end-of-day time has passed; prior days transition unconditionally.
type SweeperService interface {
	SweepAtRisk(ctx context.Context) (int64, error)
	SweepEndOfDay(ctx context.Context) (int, error)
}

type sweeperService struct {
	store     SweepStore
	publisher notifier.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewSweeperService(store SweepStore, publisher notifier.Publisher, cfg *config.Config) SweeperService {
	return &sweeperService{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *sweeperService) SweepAtRisk(ctx context.Context) (int64, error) {
	now := s.now()
	date := now.Format(timecal.DateLayout)

	candidates, err := s.store.FindSweepCandidates(ctx, date)
	if err != nil {
		s.cfg.Log.Error("Failed to load sweep candidates", "date", date, "error", err)
		return 0, apperrors.Internal("Failed to load sweep candidates", err)
	}

	var overdue []string
	for _, appt := range candidates {
		if appt.AtRisk {
			continue
		}
		slotAt, err := timecal.At(appt.Date, appt.Time, nil)
		if err != nil {
			s.cfg.Log.Warn("Skipping appointment with unparseable slot",
				"id", appt.ID,
				"date", appt.Date,
				"time", appt.Time,
				"error", err,
			)
			continue
		}
		if !now.Before(slotAt.Add(s.cfg.NoShowGrace)) {
			overdue = append(overdue, appt.ID)
		}
	}

	if len(overdue) == 0 {
		return 0, nil
	}

	flagged, err := s.store.MarkAtRisk(ctx, overdue)
	if err != nil {
		s.cfg.Log.Error("Failed to flag overdue appointments", "date", date, "error", err)
		return 0, apperrors.Internal("Failed to flag overdue appointments", err)
	}

	if flagged > 0 {
		s.cfg.Log.Info("Appointments flagged as at risk",
			"date", date,
			"candidates", len(overdue),
			"flagged", flagged,
		)
	}
	return flagged, nil
}

func (s *sweeperService) SweepEndOfDay(ctx context.Context) (int, error) {
	now := s.now()
	today := now.Format(timecal.DateLayout)
	endOfDayReached := now.Format(timecal.TimeLayout) >= s.cfg.EndOfDay

	candidates, err := s.store.FindSweepCandidates(ctx, today)
	if err != nil {
		s.cfg.Log.Error("Failed to load sweep candidates", "date", today, "error", err)
		return 0, apperrors.Internal("Failed to load sweep candidates", err)
	}

	recoveryUntil := now.Add(time.Duration(s.cfg.RecoveryWindowDays) * 24 * time.Hour)

	marked := 0
	for _, appt := range candidates {
		if !appt.AtRisk {
			continue
		}
		if appt.Date == today && !endOfDayReached {
			continue
		}

		ok, err := s.store.MarkNoShow(ctx, appt.ID, now, recoveryUntil)
		if err != nil {
			s.cfg.Log.Error("Failed to mark appointment as no-show", "id", appt.ID, "error", err)
			continue
		}
		if !ok {
			// The patient arrived, or another sweep already got it.
			continue
		}

		marked++
		appt.Status = model.StatusNoShow
		appt.NoShowAt = &now
		appt.RecoveryUntil = &recoveryUntil
		s.publisher.AppointmentEvent(ctx, notifier.EventAppointmentNoShow, appt)
		s.publisher.RecoveryEvent(ctx, appt)
	}

	if marked > 0 {
		s.cfg.Log.Info("No-show sweep completed",
			"date", today,
			"marked", marked,
			"recovery_until", recoveryUntil,
		)
	}
	return marked, nil
}
