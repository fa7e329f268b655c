package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medicita/internal/migrations/mongo/validators"
)

var (
	DoctorSchedulesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "doctor_id", Value: 1},
			{Key: "day_of_week", Value: 1},
			{Key: "active", Value: 1},
		}},
	}

	AbsencesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "doctor_id", Value: 1},
			{Key: "approved", Value: 1},
			{Key: "start_date", Value: 1},
			{Key: "end_date", Value: 1},
		}},
	}

	HolidaysIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}}},
		{Keys: bson.D{
			{Key: "recurring", Value: 1},
			{Key: "month_day", Value: 1},
		}},
	}

	// The TTL index is a backstop: the reservation service reclaims expired
	// holds lazily, and the monitor deletes whatever is left. ExpireAfterSeconds
	// of zero means expires_at is the deletion instant itself. Committed holds
	// have no expires_at and are never reaped.
	SlotHoldsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{Keys: bson.D{
			{Key: "doctor_id", Value: 1},
			{Key: "date", Value: 1},
		}},
	}

	AppointmentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "branch_id", Value: 1},
			{Key: "doctor_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "time", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "date", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "patient_id", Value: 1},
			{Key: "date", Value: 1},
		}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("Running Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Doctor_schedules": {
			Indexes:   DoctorSchedulesIndexes,
			Validator: validators.DoctorScheduleValidator,
		},
		"Absences": {
			Indexes:   AbsencesIndexes,
			Validator: validators.AbsenceValidator,
		},
		"Holidays": {
			Indexes:   HolidaysIndexes,
			Validator: validators.HolidayValidator,
		},
		"Slot_holds": {
			Indexes:   SlotHoldsIndexes,
			Validator: validators.SlotHoldValidator,
		},
		"Appointments": {
			Indexes:   AppointmentsIndexes,
			Validator: validators.AppointmentValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("Collection %s already exists, updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("Ensured indexes for %s\n", name)
	return nil
}
