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
	AbsenceCollectionName = "Absences"
)

type AbsenceRepository interface {
	Create(ctx context.Context, absence *model.Absence) error
	FindByID(ctx context.Context, id string) (*model.Absence, error)
	FindByDoctor(ctx context.Context, doctorID string) ([]*model.Absence, error)
	FindApprovedOnDate(ctx context.Context, doctorID string, date string) (*model.Absence, error)
	SetApproved(ctx context.Context, id string, approved bool) error
	Delete(ctx context.Context, id string) error
}

type mongoAbsenceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewAbsenceRepository(cfg *config.Config) AbsenceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAbsenceRepository{
		cfg:        cfg,
		collection: db.Collection(AbsenceCollectionName),
	}
}

func (r *mongoAbsenceRepository) Create(ctx context.Context, absence *model.Absence) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	absence.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, absence)
	if err != nil {
		return fmt.Errorf("failed to create absence: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		absence.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAbsenceRepository) FindByID(ctx context.Context, id string) (*model.Absence, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", schederrors.ErrInvalidID, id)
	}

	var absence model.Absence
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&absence)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schederrors.ErrAbsenceNotFound
		}
		return nil, fmt.Errorf("failed to find absence: %w", err)
	}

	return &absence, nil
}

func (r *mongoAbsenceRepository) FindByDoctor(ctx context.Context, doctorID string) ([]*model.Absence, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"doctor_id": doctorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find absences: %w", err)
	}
	defer cursor.Close(ctx)

	var absences []*model.Absence
	if err = cursor.All(ctx, &absences); err != nil {
		return nil, fmt.Errorf("failed to decode absences: %w", err)
	}

	return absences, nil
}

// FindApprovedOnDate returns one approved absence covering the date, or nil
// when the doctor has none. Inclusive range endpoints; ISO dates compare as
// strings.
func (r *mongoAbsenceRepository) FindApprovedOnDate(ctx context.Context, doctorID string, date string) (*model.Absence, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"doctor_id":  doctorID,
		"approved":   true,
		"start_date": bson.M{"$lte": date},
		"end_date":   bson.M{"$gte": date},
	}

	var absence model.Absence
	err := r.collection.FindOne(ctx, filter).Decode(&absence)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find approved absence: %w", err)
	}

	return &absence, nil
}

func (r *mongoAbsenceRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schederrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{"approved": approved}})
	if err != nil {
		return fmt.Errorf("failed to update absence approval: %w", err)
	}
	if result.MatchedCount == 0 {
		return schederrors.ErrAbsenceNotFound
	}

	return nil
}

func (r *mongoAbsenceRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schederrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete absence: %w", err)
	}
	if result.DeletedCount == 0 {
		return schederrors.ErrAbsenceNotFound
	}

	return nil
}
