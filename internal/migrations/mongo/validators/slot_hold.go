package validators

import "go.mongodb.org/mongo-driver/bson"

// Slot hold _id is the slot key string, not an ObjectID. Committed holds
// carry no expires_at, so it is not in the required list.
var SlotHoldValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"branch_id",
			"date",
			"time",
			"session_id",
			"state",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"branch_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"doctor_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"date": bson.M{
				"bsonType":  "string",
				"minLength": 10,
				"maxLength": 10,
			},

			"time": bson.M{
				"bsonType":  "string",
				"minLength": 5,
				"maxLength": 5,
			},

			"session_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"state": bson.M{
				"enum": []string{"held", "committed"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
