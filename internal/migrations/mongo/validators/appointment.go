package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"patient_id",
			"branch_id",
			"date",
			"time",
			"duration_min",
			"service_type",
			"status",
			"cost",
			"amount_paid",
			"balance_due",
			"at_risk",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"patient_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
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

			"duration_min": bson.M{
				"bsonType": "int",
				"minimum":  5,
				"maximum":  480,
			},

			"service_type": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"status": bson.M{
				"enum": []string{
					"agendada",
					"pendiente_confirmacion",
					"confirmada",
					"llego",
					"en_espera",
					"en_atencion",
					"finalizada",
					"reagendada",
					"cancelada",
					"no_asistio",
					"perdido",
				},
			},

			"reschedule_count": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"is_promotion": bson.M{
				"bsonType": "bool",
			},

			"cancellation_reason": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"cost": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"amount_paid": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"balance_due": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
			},

			"at_risk": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
