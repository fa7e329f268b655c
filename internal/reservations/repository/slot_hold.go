package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reserrors "medicita/internal/reservations/errors"
	"medicita/pkg/config"
	"medicita/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	HoldCollectionName = "Slot_holds"
)

// SlotHoldRepository stores ephemeral slot claims. The document _id is the
// canonical slot key string, so two concurrent claims on the same slot race
// on the primary key and exactly one InsertOne wins.
type SlotHoldRepository interface {
	Insert(ctx context.Context, hold *model.SlotHold) error
	FindByKey(ctx context.Context, key string) (*model.SlotHold, error)
	FindActiveByDoctorAndDate(ctx context.Context, doctorID string, date string) ([]*model.SlotHold, error)
	Commit(ctx context.Context, key string, sessionID string, now time.Time) (*model.SlotHold, error)
	Release(ctx context.Context, key string, sessionID string) (bool, error)
	DeleteCommitted(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, key string, now time.Time) (bool, error)
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

type mongoSlotHoldRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewSlotHoldRepository(cfg *config.Config) SlotHoldRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotHoldRepository{
		cfg:        cfg,
		collection: db.Collection(HoldCollectionName),
	}
}

func (r *mongoSlotHoldRepository) Insert(ctx context.Context, hold *model.SlotHold) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, hold)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", reserrors.ErrDuplicateHold, hold.ID)
		}
		return fmt.Errorf("failed to insert slot hold: %w", err)
	}
	return nil
}

func (r *mongoSlotHoldRepository) FindByKey(ctx context.Context, key string) (*model.SlotHold, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var hold model.SlotHold
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&hold)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to find slot hold: %w", err)
	}

	return &hold, nil
}

// FindActiveByDoctorAndDate returns holds that still block slots for the
// doctor on the date: live held holds plus committed holds whose appointment
// insert is in flight. Expired held holds are filtered out here rather than
// deleted; the sweep and the insert path clean them up.
func (r *mongoSlotHoldRepository) FindActiveByDoctorAndDate(ctx context.Context, doctorID string, date string) ([]*model.SlotHold, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{
		"doctor_id": doctorID,
		"date":      date,
		"$or": bson.A{
			bson.M{"state": model.HoldStateCommitted},
			bson.M{"state": model.HoldStateHeld, "expires_at": bson.M{"$gt": now}},
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find active slot holds: %w", err)
	}
	defer cursor.Close(ctx)

	var holds []*model.SlotHold
	if err = cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("failed to decode slot holds: %w", err)
	}

	return holds, nil
}

// Commit promotes a live held hold to committed and strips its expiry so the
// TTL monitor cannot reap it mid-booking. The filter pins the owner session
// and the live state, so a stale or stolen key cannot be committed.
func (r *mongoSlotHoldRepository) Commit(ctx context.Context, key string, sessionID string, now time.Time) (*model.SlotHold, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":        key,
		"session_id": sessionID,
		"state":      model.HoldStateHeld,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"state": model.HoldStateCommitted},
		"$unset": bson.M{"expires_at": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var hold model.SlotHold
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&hold)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to commit slot hold: %w", err)
	}

	return &hold, nil
}

// Release removes a held hold owned by the session. It reports whether a
// document was actually deleted so the service can tell a successful release
// from a no-op on a foreign or missing hold.
func (r *mongoSlotHoldRepository) Release(ctx context.Context, key string, sessionID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":        key,
		"session_id": sessionID,
		"state":      model.HoldStateHeld,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to release slot hold: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoSlotHoldRepository) DeleteCommitted(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "state": model.HoldStateCommitted})
	if err != nil {
		return fmt.Errorf("failed to delete committed slot hold: %w", err)
	}
	return nil
}

// DeleteExpired removes a held hold only if it is already past its expiry at
// the given instant. The guard keeps a racing fresh hold safe.
func (r *mongoSlotHoldRepository) DeleteExpired(ctx context.Context, key string, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":        key,
		"state":      model.HoldStateHeld,
		"expires_at": bson.M{"$lte": now},
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete expired slot hold: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// DeleteStale bulk-removes every expired held hold. It backs the periodic
// sweep; the Mongo TTL index on expires_at is the second line of defense.
func (r *mongoSlotHoldRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"state":      model.HoldStateHeld,
		"expires_at": bson.M{"$lte": now},
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale slot holds: %w", err)
	}
	return result.DeletedCount, nil
}
