package validators

import "go.mongodb.org/mongo-driver/bson"

var HolidayValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"date",
			"month_day",
			"name",
			"type",
			"recurring",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"date": bson.M{
				"bsonType":  "string",
				"minLength": 10,
				"maxLength": 10,
			},

			"month_day": bson.M{
				"bsonType":  "string",
				"minLength": 5,
				"maxLength": 5,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"type": bson.M{
				"enum": []string{"mandatory", "optional", "religious"},
			},

			"recurring": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
