package validators

import "go.mongodb.org/mongo-driver/bson"

var PropertyValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"owner",
			"name",
			"price_per_day",
			"active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"owner": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"price_per_day": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"calendar": bson.M{
				"bsonType": "binData",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"deactivated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
