package service

import (
	"context"
	"errors"
	"time"

	reserrors "medicita/internal/reservations/errors"
	"medicita/internal/reservations/repository"
	"medicita/pkg/config"
	apperrors "medicita/pkg/errors"
	"medicita/pkg/model"
	"medicita/pkg/timecal"
)

// OccupancyChecker answers whether a slot is already taken by a live
// appointment. The appointments repository implements it; the indirection
// keeps this package free of a dependency on the appointments domain.
type OccupancyChecker interface {
	SlotOccupied(ctx context.Context, key model.SlotKey) (bool, error)
}

// ReservationService runs the two-phase slot claim protocol. A hold is an
// exclusive, expiring claim on one slot; committing it freezes the claim for
// the booking write, and releasing or expiring it frees the slot.
type ReservationService interface {
	Hold(ctx context.Context, key model.SlotKey, sessionID string, ttl time.Duration) (*model.SlotHold, error)
	Commit(ctx context.Context, key model.SlotKey, sessionID string) (*model.SlotHold, error)
	Release(ctx context.Context, key model.SlotKey, sessionID string) error
	FinalizeCommitted(ctx context.Context, key model.SlotKey) error
	ActiveHolds(ctx context.Context, doctorID string, date string) ([]*model.SlotHold, error)
	ExpireStale(ctx context.Context) (int64, error)
}

type reservationService struct {
	repo      repository.SlotHoldRepository
	occupancy OccupancyChecker
	cfg       *config.Config
	now       func() time.Time
}

func NewReservationService(
	repo repository.SlotHoldRepository,
	occupancy OccupancyChecker,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		occupancy: occupancy,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Hold claims the slot for the session. The losing side of any race gets
// SLOT_UNAVAILABLE; re-holding a slot the same session already holds is
// idempotent and returns the live hold.
func (s *reservationService) Hold(ctx context.Context, key model.SlotKey, sessionID string, ttl time.Duration) (*model.SlotHold, error) {
	if err := s.validateKey(key); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	occupied, err := s.occupancy.SlotOccupied(ctx, key)
	if err != nil {
		s.cfg.Log.Error("Failed to check slot occupancy",
			"slot_key", key.String(),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to check slot availability", err)
	}
	if occupied {
		return nil, apperrors.SlotUnavailable(key.String())
	}

	ttl = s.clampTTL(ttl)
	now := s.now()
	expiresAt := now.Add(ttl)
	hold := &model.SlotHold{
		ID:        key.String(),
		BranchID:  key.BranchID,
		DoctorID:  key.DoctorID,
		Date:      key.Date,
		Time:      key.Time,
		SessionID: sessionID,
		State:     model.HoldStateHeld,
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}

	err = s.repo.Insert(ctx, hold)
	if err == nil {
		s.cfg.Log.Info("Slot hold acquired",
			"slot_key", hold.ID,
			"session_id", sessionID,
			"expires_at", expiresAt,
		)
		return hold, nil
	}
	if !errors.Is(err, reserrors.ErrDuplicateHold) {
		s.cfg.Log.Error("Failed to insert slot hold", "slot_key", hold.ID, "error", err)
		return nil, apperrors.Internal("Failed to acquire slot hold", err)
	}

	// Lost the primary-key race, or an earlier hold is still in place.
	// An expired leftover is cleared and the claim retried exactly once.
	existing, err := s.repo.FindByKey(ctx, hold.ID)
	if err != nil {
		if errors.Is(err, reserrors.ErrHoldNotFound) {
			// Deleted between our insert and lookup; the slot is contested.
			return nil, apperrors.SlotUnavailable(hold.ID)
		}
		return nil, apperrors.Internal("Failed to inspect existing slot hold", err)
	}

	if existing.State == model.HoldStateHeld && existing.SessionID == sessionID && !existing.Expired(now) {
		return existing, nil
	}

	if existing.Expired(now) {
		removed, err := s.repo.DeleteExpired(ctx, hold.ID, now)
		if err != nil {
			return nil, apperrors.Internal("Failed to clear expired slot hold", err)
		}
		if removed {
			if err := s.repo.Insert(ctx, hold); err == nil {
				s.cfg.Log.Info("Slot hold acquired after clearing expired hold",
					"slot_key", hold.ID,
					"session_id", sessionID,
				)
				return hold, nil
			}
		}
	}

	return nil, apperrors.SlotUnavailable(hold.ID)
}

// Commit freezes a live hold for the booking write. Only the owning session
// can commit, and only while the hold has not expired. Committing a hold the
// session already committed is idempotent.
func (s *reservationService) Commit(ctx context.Context, key model.SlotKey, sessionID string) (*model.SlotHold, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}
	keyStr := key.String()

	now := s.now()
	hold, err := s.repo.Commit(ctx, keyStr, sessionID, now)
	if err == nil {
		s.cfg.Log.Info("Slot hold committed", "slot_key", keyStr, "session_id", sessionID)
		return hold, nil
	}
	if !errors.Is(err, reserrors.ErrHoldNotFound) {
		s.cfg.Log.Error("Failed to commit slot hold", "slot_key", keyStr, "error", err)
		return nil, apperrors.Internal("Failed to commit slot hold", err)
	}

	// The atomic commit matched nothing. Classify why.
	existing, err := s.repo.FindByKey(ctx, keyStr)
	if err != nil {
		if errors.Is(err, reserrors.ErrHoldNotFound) {
			return nil, apperrors.HoldExpired(keyStr)
		}
		return nil, apperrors.Internal("Failed to inspect slot hold", err)
	}

	if existing.SessionID != sessionID {
		return nil, apperrors.NotOwner(keyStr)
	}
	if existing.State == model.HoldStateCommitted {
		return existing, nil
	}
	return nil, apperrors.HoldExpired(keyStr)
}

// Release drops the session's live hold. Releasing a gone or expired hold is
// a no-op; releasing someone else's live hold is refused.
func (s *reservationService) Release(ctx context.Context, key model.SlotKey, sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("Session ID cannot be empty")
	}
	keyStr := key.String()

	released, err := s.repo.Release(ctx, keyStr, sessionID)
	if err != nil {
		s.cfg.Log.Error("Failed to release slot hold", "slot_key", keyStr, "error", err)
		return apperrors.Internal("Failed to release slot hold", err)
	}
	if released {
		s.cfg.Log.Info("Slot hold released", "slot_key", keyStr, "session_id", sessionID)
		return nil
	}

	existing, err := s.repo.FindByKey(ctx, keyStr)
	if err != nil {
		if errors.Is(err, reserrors.ErrHoldNotFound) {
			// Already expired or released; releasing twice is fine.
			return nil
		}
		return apperrors.Internal("Failed to inspect slot hold", err)
	}
	if existing.Expired(s.now()) {
		// A dead hold claims nothing, whoever owned it. The sweeps reclaim it.
		return nil
	}
	if existing.SessionID != sessionID {
		return apperrors.NotOwner(keyStr)
	}
	// Committed holds are finalized by the booking flow, not released.
	return apperrors.Conflict("Slot hold is already committed to a booking")
}

// FinalizeCommitted removes a committed hold once its appointment is durable.
// By then the appointment itself blocks the slot, so the hold is redundant.
func (s *reservationService) FinalizeCommitted(ctx context.Context, key model.SlotKey) error {
	if err := s.repo.DeleteCommitted(ctx, key.String()); err != nil {
		s.cfg.Log.Error("Failed to finalize committed slot hold",
			"slot_key", key.String(),
			"error", err,
		)
		return apperrors.Internal("Failed to finalize slot hold", err)
	}
	return nil
}

func (s *reservationService) ActiveHolds(ctx context.Context, doctorID string, date string) ([]*model.SlotHold, error) {
	holds, err := s.repo.FindActiveByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to list active slot holds",
			"doctor_id", doctorID,
			"date", date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to list active slot holds", err)
	}
	return holds, nil
}

func (s *reservationService) ExpireStale(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteStale(ctx, s.now())
	if err != nil {
		s.cfg.Log.Error("Failed to sweep stale slot holds", "error", err)
		return 0, apperrors.Internal("Failed to sweep stale slot holds", err)
	}
	if removed > 0 {
		s.cfg.Log.Info("Stale slot holds swept", "removed", removed)
	}
	return removed, nil
}

func (s *reservationService) validateKey(key model.SlotKey) error {
	if key.BranchID == "" {
		return apperrors.InvalidInput("Branch ID cannot be empty")
	}
	if _, err := timecal.ParseDate(key.Date); err != nil {
		return apperrors.InvalidInput("Date must be in YYYY-MM-DD format")
	}
	if _, err := timecal.ParseTimeOfDay(key.Time); err != nil {
		return apperrors.InvalidInput("Time must be in HH:MM 24-hour format")
	}
	return nil
}

func (s *reservationService) clampTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return s.cfg.HoldTTL
	}
	if ttl < s.cfg.MinHoldTTL {
		return s.cfg.MinHoldTTL
	}
	if ttl > s.cfg.MaxHoldTTL {
		return s.cfg.MaxHoldTTL
	}
	return ttl
}
