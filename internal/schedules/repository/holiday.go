package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	schederrors "medicita/internal/schedules/errors"
	"medicita/pkg/config"
	"medicita/pkg/model"
	"medicita/pkg/timecal"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	HolidayCollectionName = "Holidays"
)

type HolidayRepository interface {
	Create(ctx context.Context, holiday *model.Holiday) error
	FindByID(ctx context.Context, id string) (*model.Holiday, error)
	FindAll(ctx context.Context, limit int, offset int) ([]*model.Holiday, error)
	Count(ctx context.Context) (int64, error)
	FindOnDate(ctx context.Context, date string) ([]*model.Holiday, error)
	Delete(ctx context.Context, id string) error
}

type mongoHolidayRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewHolidayRepository(cfg *config.Config) HolidayRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoHolidayRepository{
		cfg:        cfg,
		collection: db.Collection(HolidayCollectionName),
	}
}

func (r *mongoHolidayRepository) Create(ctx context.Context, holiday *model.Holiday) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	monthDay, err := timecal.MonthDay(holiday.Date)
	if err != nil {
		return fmt.Errorf("failed to derive holiday month_day: %w", err)
	}
	holiday.MonthDay = monthDay
	holiday.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, holiday)
	if err != nil {
		return fmt.Errorf("failed to create holiday: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		holiday.ID = oid.Hex()
	}
	return nil
}

func (r *mongoHolidayRepository) FindByID(ctx context.Context, id string) (*model.Holiday, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", schederrors.ErrInvalidID, id)
	}

	var holiday model.Holiday
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&holiday)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schederrors.ErrHolidayNotFound
		}
		return nil, fmt.Errorf("failed to find holiday: %w", err)
	}

	return &holiday, nil
}

func (r *mongoHolidayRepository) FindAll(ctx context.Context, limit int, offset int) ([]*model.Holiday, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find holidays: %w", err)
	}
	defer cursor.Close(ctx)

	var holidays []*model.Holiday
	if err = cursor.All(ctx, &holidays); err != nil {
		return nil, fmt.Errorf("failed to decode holidays: %w", err)
	}

	return holidays, nil
}

func (r *mongoHolidayRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count holidays: %w", err)
	}
	return count, nil
}

// FindOnDate matches holidays against a calendar date: exact-date entries plus
// recurring entries whose month_day matches, regardless of the stored year.
func (r *mongoHolidayRepository) FindOnDate(ctx context.Context, date string) ([]*model.Holiday, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	monthDay, err := timecal.MonthDay(date)
	if err != nil {
		return nil, fmt.Errorf("failed to derive month_day from date: %w", err)
	}

	filter := bson.M{
		"$or": bson.A{
			bson.M{"date": date},
			bson.M{"recurring": true, "month_day": monthDay},
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find holidays on date: %w", err)
	}
	defer cursor.Close(ctx)

	var holidays []*model.Holiday
	if err = cursor.All(ctx, &holidays); err != nil {
		return nil, fmt.Errorf("failed to decode holidays: %w", err)
	}

	return holidays, nil
}

func (r *mongoHolidayRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schederrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	if result.DeletedCount == 0 {
		return schederrors.ErrHolidayNotFound
	}

	return nil
}
