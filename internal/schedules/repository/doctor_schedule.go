package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	schederrors "medicita/internal/schedules/errors"
	"medicita/pkg/config"
	"medicita/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ScheduleCollectionName = "Doctor_schedules"
)

type DoctorScheduleRepository interface {
	Create(ctx context.Context, schedule *model.DoctorSchedule) error
	FindByID(ctx context.Context, id string) (*model.DoctorSchedule, error)
	FindByDoctor(ctx context.Context, doctorID string) ([]*model.DoctorSchedule, error)
	FindActiveByDoctorAndDay(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.DoctorSchedule, error)
	Update(ctx context.Context, id string, schedule *model.DoctorSchedule) error
	Delete(ctx context.Context, id string) error
}

type mongoDoctorScheduleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewDoctorScheduleRepository(cfg *config.Config) DoctorScheduleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDoctorScheduleRepository{
		cfg:        cfg,
		collection: db.Collection(ScheduleCollectionName),
	}
}

func (r *mongoDoctorScheduleRepository) Create(ctx context.Context, schedule *model.DoctorSchedule) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	schedule.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, schedule)
	if err != nil {
		return fmt.Errorf("failed to create schedule rule: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		schedule.ID = oid.Hex()
	}
	return nil
}

func (r *mongoDoctorScheduleRepository) FindByID(ctx context.Context, id string) (*model.DoctorSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", schederrors.ErrInvalidID, id)
	}

	var schedule model.DoctorSchedule
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&schedule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schederrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find schedule rule: %w", err)
	}

	return &schedule, nil
}

func (r *mongoDoctorScheduleRepository) FindByDoctor(ctx context.Context, doctorID string) ([]*model.DoctorSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "day_of_week", Value: 1}, {Key: "start_time", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"doctor_id": doctorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find schedule rules: %w", err)
	}
	defer cursor.Close(ctx)

	var schedules []*model.DoctorSchedule
	if err = cursor.All(ctx, &schedules); err != nil {
		return nil, fmt.Errorf("failed to decode schedule rules: %w", err)
	}

	return schedules, nil
}

func (r *mongoDoctorScheduleRepository) FindActiveByDoctorAndDay(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.DoctorSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"doctor_id":   doctorID,
		"day_of_week": dayOfWeek,
		"active":      true,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find active schedule rules: %w", err)
	}
	defer cursor.Close(ctx)

	var schedules []*model.DoctorSchedule
	if err = cursor.All(ctx, &schedules); err != nil {
		return nil, fmt.Errorf("failed to decode schedule rules: %w", err)
	}

	return schedules, nil
}

func (r *mongoDoctorScheduleRepository) Update(ctx context.Context, id string, schedule *model.DoctorSchedule) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schederrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"start_time":        schedule.StartTime,
			"end_time":          schedule.EndTime,
			"slot_duration_min": schedule.SlotDurationMin,
			"break_start":       schedule.BreakStart,
			"break_end":         schedule.BreakEnd,
			"active":            schedule.Active,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update schedule rule: %w", err)
	}
	if result.MatchedCount == 0 {
		return schederrors.ErrNotFound
	}

	return nil
}

func (r *mongoDoctorScheduleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schederrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete schedule rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return schederrors.ErrNotFound
	}

	return nil
}
