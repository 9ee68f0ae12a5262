package validators

import "go.mongodb.org/mongo-driver/bson"

// Reference is absent here on purpose: the sealed confirmation code is
// written by a second update inside the creating transaction, and the
// schema is checked per write.
var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"property_id",
			"check_in",
			"checkout",
			"renter",
			"price",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"property_id": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"check_in": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"checkout": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"renter": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"price": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"reference": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
