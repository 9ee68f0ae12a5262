package validators

import "go.mongodb.org/mongo-driver/bson"

var CounterValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"next",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
				"enum": []string{
					"properties",
					"bookings",
				},
			},

			"next": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},
		},
	},
}
