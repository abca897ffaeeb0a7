package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// stage returns the value of the first stage named op, or nil.
func stage(p bson.A, op string) any {
	for _, s := range p {
		d := s.(bson.D)
		if d[0].Key == op {
			return d[0].Value
		}
	}
	return nil
}

func stageNames(p bson.A) []string {
	names := make([]string, 0, len(p))
	for _, s := range p {
		names = append(names, s.(bson.D)[0].Key)
	}
	return names
}

func TestTopCustomersPipeline(t *testing.T) {
	p := topCustomersPipeline(2024, 5)

	assert.Equal(t, []string{"$unwind", "$addFields", "$match", "$group", "$set", "$sort", "$limit"}, stageNames(p))
	assert.Equal(t, bson.D{{Key: "year", Value: 2024}}, stage(p, "$match"))
	assert.Equal(t, 5, stage(p, "$limit"))

	group := stage(p, "$group").(bson.D)
	assert.Equal(t, "$customer_id", group[0].Value)

	// Ties on total are broken by customer id.
	assert.Equal(t, bson.D{{Key: "total_sales", Value: -1}, {Key: "_id", Value: 1}}, stage(p, "$sort"))
}

func TestSalesPipelines(t *testing.T) {
	byYear := salesByYearPipeline()
	assert.Nil(t, stage(byYear, "$match"))
	assert.Equal(t, "$year", stage(byYear, "$group").(bson.D)[0].Value)

	byMonth := salesByMonthPipeline(2023)
	assert.Equal(t, bson.D{{Key: "year", Value: 2023}}, stage(byMonth, "$match"))
	assert.Equal(t, "$month", stage(byMonth, "$group").(bson.D)[0].Value)
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, stage(byMonth, "$sort"))
}

func TestTopProductsPipeline(t *testing.T) {
	p := topProductsPipeline(3)

	assert.Equal(t, []string{
		"$unwind",
		"$lookup", "$unwind",
		"$lookup", "$unwind",
		"$group", "$setWindowFields", "$match", "$project", "$sort",
	}, stageNames(p))

	match := stage(p, "$match").(bson.D)
	assert.Equal(t, bson.D{{Key: "rank", Value: bson.D{{Key: "$lte", Value: 3}}}}, match)

	window := stage(p, "$setWindowFields").(bson.D)
	assert.Equal(t, "$_id.category_id", window[0].Value)
}

func TestValidators(t *testing.T) {
	for _, name := range []string{"categories", "products", "orders"} {
		require.Contains(t, validators, name)
		require.Contains(t, fields, name)
		schema := validators[name]["$jsonSchema"].(bson.M)
		assert.Equal(t, len(fields[name]), len(schema["required"].(bson.A)), name)
	}

	orders := validators["orders"]["$jsonSchema"].(bson.M)
	products := orders["properties"].(bson.M)["products"].(bson.M)
	items := products["items"].(bson.M)["properties"].(bson.M)
	assert.Equal(t, 1, items["product_quantity"].(bson.M)["minimum"])
	assert.Equal(t, "decimal", items["product_unit_value"].(bson.M)["bsonType"])
}
