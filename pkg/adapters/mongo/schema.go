package mongo

import "go.mongodb.org/mongo-driver/v2/bson"

// validators are the $jsonSchema rules applied to each collection.
var validators = map[string]bson.M{
	"categories": jsonSchema(bson.A{"id", "name"}, bson.M{
		"id":   field("int", "Unique identifier for the category"),
		"name": field("string", "Name of the category"),
	}),
	"products": jsonSchema(bson.A{"id", "name", "category_id"}, bson.M{
		"id":          field("int", "Unique identifier for the product"),
		"name":        field("string", "Name of the product"),
		"category_id": field("int", "Reference to the category id"),
	}),
	"orders": jsonSchema(bson.A{"id", "customer_id", "date", "products"}, bson.M{
		"id":          field("int", "Unique identifier for the order"),
		"customer_id": field("int", "Reference to the customer id"),
		"date":        field("date", "Date of the order"),
		"products": bson.M{
			"bsonType":    "array",
			"description": "List of products in the order",
			"minItems":    1,
			"items": bson.M{
				"bsonType": "object",
				"required": bson.A{"product_id", "product_quantity", "product_unit_value"},
				"properties": bson.M{
					"product_id": field("int", "Unique identifier of the product"),
					"product_quantity": bson.M{
						"bsonType":    "int",
						"minimum":     1,
						"description": "Quantity of the product",
					},
					"product_unit_value": bson.M{
						"bsonType":    "decimal",
						"minimum":     0,
						"description": "Unit price of the product",
					},
				},
			},
		},
	}),
}

// fields lists the document fields reported by Describe.
var fields = map[string][]string{
	"categories": {"id", "name"},
	"products":   {"id", "name", "category_id"},
	"orders":     {"id", "customer_id", "date", "products"},
}

func jsonSchema(required bson.A, properties bson.M) bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   required,
		"properties": properties,
	}}
}

func field(bsonType, description string) bson.M {
	return bson.M{"bsonType": bsonType, "description": description}
}
