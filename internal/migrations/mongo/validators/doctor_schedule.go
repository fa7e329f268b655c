package validators

import "go.mongodb.org/mongo-driver/bson"

var DoctorScheduleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"doctor_id",
			"branch_id",
			"day_of_week",
			"start_time",
			"end_time",
			"slot_duration_min",
			"active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"doctor_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"branch_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"day_of_week": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  6,
			},

			"start_time": bson.M{
				"bsonType":  "string",
				"minLength": 5,
				"maxLength": 5,
			},

			"end_time": bson.M{
				"bsonType":  "string",
				"minLength": 5,
				"maxLength": 5,
			},

			"slot_duration_min": bson.M{
				"bsonType": "int",
				"minimum":  5,
				"maximum":  480,
			},

			"break_start": bson.M{
				"bsonType":  "string",
				"minLength": 5,
				"maxLength": 5,
			},

			"break_end": bson.M{
				"bsonType":  "string",
				"minLength": 5,
				"maxLength": 5,
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
