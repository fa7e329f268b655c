package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	appterrors "medicita/internal/appointments/errors"
	"medicita/pkg/config"
	mongodb "medicita/pkg/db/mongo"
	"medicita/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	AppointmentCollectionName = "Appointments"
)

// occupyingStatuses are the wire values that keep a slot claimed. Kept in
// sync with model.AppointmentStatus.Occupying.
var occupyingStatuses = bson.A{
	string(model.StatusScheduled),
	string(model.StatusPendingConfirmation),
	string(model.StatusConfirmed),
	string(model.StatusArrived),
	string(model.StatusWaiting),
	string(model.StatusInAttention),
	string(model.StatusFinished),
	string(model.StatusRescheduled),
}

// sweepableStatuses are the states the no-show protocol may touch.
var sweepableStatuses = bson.A{
	string(model.StatusScheduled),
	string(model.StatusConfirmed),
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	Update(ctx context.Context, id string, appt *model.Appointment) error
	FindOccupyingByDoctorAndDate(ctx context.Context, doctorID string, date string) ([]*model.Appointment, error)
	FindByDateRange(ctx context.Context, branchID string, fromDate string, toDate string, limit int, offset int64) ([]*model.Appointment, error)
	CountByDateRange(ctx context.Context, branchID string, fromDate string, toDate string) (int64, error)
	FindSweepCandidates(ctx context.Context, throughDate string) ([]*model.Appointment, error)
	MarkAtRisk(ctx context.Context, ids []string) (int64, error)
	MarkNoShow(ctx context.Context, id string, noShowAt time.Time, recoveryUntil time.Time) (bool, error)
	SlotOccupied(ctx context.Context, key model.SlotKey) (bool, error)
	ExecuteTransaction(ctx context.Context, fn mongodb.TransactionFunc) error
}

type mongoAppointmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongodb.TransactionManager
}

func NewAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		collection: db.Collection(AppointmentCollectionName),
		txManager:  mongodb.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	appt.CreatedAt = now
	appt.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, appt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		appt.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appterrors.ErrInvalidID, id)
	}

	var appt model.Appointment
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	return &appt, nil
}

func (r *mongoAppointmentRepository) Update(ctx context.Context, id string, appt *model.Appointment) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", appterrors.ErrInvalidID, id)
	}

	appt.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"date":                 appt.Date,
			"time":                 appt.Time,
			"duration_min":         appt.DurationMin,
			"service_type":         appt.ServiceType,
			"status":               appt.Status,
			"reschedule_count":     appt.RescheduleCount,
			"is_promotion":         appt.IsPromotion,
			"cancellation_reason":  appt.CancellationReason,
			"arrival_time":         appt.ArrivalTime,
			"attention_start_time": appt.AttentionStartTime,
			"attention_end_time":   appt.AttentionEndTime,
			"cost":                 appt.Cost,
			"amount_paid":          appt.AmountPaid,
			"balance_due":          appt.BalanceDue,
			"at_risk":              appt.AtRisk,
			"no_show_at":           appt.NoShowAt,
			"recovery_until":       appt.RecoveryUntil,
			"updated_at":           appt.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if result.MatchedCount == 0 {
		return appterrors.ErrNotFound
	}

	return nil
}

func (r *mongoAppointmentRepository) FindOccupyingByDoctorAndDate(ctx context.Context, doctorID string, date string) ([]*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"doctor_id": doctorID,
		"date":      date,
		"status":    bson.M{"$in": occupyingStatuses},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find occupying appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []*model.Appointment
	if err = cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appts, nil
}

func (r *mongoAppointmentRepository) FindByDateRange(ctx context.Context, branchID string, fromDate string, toDate string, limit int, offset int64) ([]*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, r.dateRangeFilter(branchID, fromDate, toDate), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments by date range: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []*model.Appointment
	if err = cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appts, nil
}

func (r *mongoAppointmentRepository) CountByDateRange(ctx context.Context, branchID string, fromDate string, toDate string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, r.dateRangeFilter(branchID, fromDate, toDate))
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments by date range: %w", err)
	}
	return count, nil
}

func (r *mongoAppointmentRepository) dateRangeFilter(branchID string, fromDate string, toDate string) bson.M {
	filter := bson.M{
		"date": bson.M{"$gte": fromDate, "$lte": toDate},
	}
	if branchID != "" {
		filter["branch_id"] = branchID
	}
	return filter
}

// FindSweepCandidates returns the appointments the no-show protocol may still
// act on, dated up to and including throughDate: sweepable status, no recorded
// arrival. The range lets a sweeper that was down over an end-of-day boundary
// pick up the backlog on restart.
func (r *mongoAppointmentRepository) FindSweepCandidates(ctx context.Context, throughDate string) ([]*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"date":         bson.M{"$lte": throughDate},
		"status":       bson.M{"$in": sweepableStatuses},
		"arrival_time": nil,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find sweep candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []*model.Appointment
	if err = cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appts, nil
}

// MarkAtRisk flags appointments still eligible for the no-show protocol. The
// filter re-checks status and arrival so a patient who arrived between scan
// and write is never flagged.
func (r *mongoAppointmentRepository) MarkAtRisk(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", appterrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, objectID)
	}

	filter := bson.M{
		"_id":          bson.M{"$in": objectIDs},
		"status":       bson.M{"$in": sweepableStatuses},
		"arrival_time": nil,
		"at_risk":      false,
	}
	update := bson.M{
		"$set": bson.M{
			"at_risk":    true,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark appointments at risk: %w", err)
	}
	return result.ModifiedCount, nil
}

// MarkNoShow performs the guarded terminal transition for one appointment.
// The filter repeats every eligibility condition, so concurrent sweeps and a
// late arrival both make this a no-op rather than a double transition.
func (r *mongoAppointmentRepository) MarkNoShow(ctx context.Context, id string, noShowAt time.Time, recoveryUntil time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", appterrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":          objectID,
		"status":       bson.M{"$in": sweepableStatuses},
		"arrival_time": nil,
		"at_risk":      true,
	}
	update := bson.M{
		"$set": bson.M{
			"status":         model.StatusNoShow,
			"no_show_at":     noShowAt,
			"recovery_until": recoveryUntil,
			"updated_at":     time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark appointment as no-show: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// SlotOccupied reports whether a live appointment claims the slot key. It is
// the occupancy side of the reservation protocol's availability check.
func (r *mongoAppointmentRepository) SlotOccupied(ctx context.Context, key model.SlotKey) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"branch_id": key.BranchID,
		"date":      key.Date,
		"time":      key.Time,
		"status":    bson.M{"$in": occupyingStatuses},
	}
	if key.DoctorID != "" {
		filter["doctor_id"] = key.DoctorID
	} else {
		// Branch-level slots store no doctor_id at all.
		filter["doctor_id"] = bson.M{"$in": bson.A{nil, ""}}
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check slot occupancy: %w", err)
	}
	return count > 0, nil
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongodb.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
