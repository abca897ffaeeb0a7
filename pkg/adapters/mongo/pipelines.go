package mongo

import "go.mongodb.org/mongo-driver/v2/bson"

// lineValueStages unwinds the embedded products and computes the value of
// each line together with the order year and month.
func lineValueStages() bson.A {
	return bson.A{
		bson.D{{Key: "$unwind", Value: "$products"}},
		bson.D{{Key: "$addFields", Value: bson.D{
			{Key: "total_value", Value: bson.D{{Key: "$multiply", Value: bson.A{
				"$products.product_quantity",
				"$products.product_unit_value",
			}}}},
			{Key: "year", Value: bson.D{{Key: "$year", Value: "$date"}}},
			{Key: "month", Value: bson.D{{Key: "$month", Value: "$date"}}},
		}}},
	}
}

// totalsStages groups by key and converts the decimal sum to a double.
func totalsStages(key string) bson.A {
	return bson.A{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: key},
			{Key: "total_sales", Value: bson.D{{Key: "$sum", Value: "$total_value"}}},
		}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "total_sales", Value: bson.D{{Key: "$toDouble", Value: "$total_sales"}}},
		}}},
	}
}

func matchYear(year int) bson.D {
	return bson.D{{Key: "$match", Value: bson.D{{Key: "year", Value: year}}}}
}

func topCustomersPipeline(year, limit int) bson.A {
	p := lineValueStages()
	p = append(p, matchYear(year))
	p = append(p, totalsStages("$customer_id")...)
	return append(p,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "total_sales", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	)
}

func salesByYearPipeline() bson.A {
	p := lineValueStages()
	p = append(p, totalsStages("$year")...)
	return append(p, bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}})
}

func salesByMonthPipeline(year int) bson.A {
	p := lineValueStages()
	p = append(p, matchYear(year))
	p = append(p, totalsStages("$month")...)
	return append(p, bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}})
}

func lookup(from, localField, as string) bson.A {
	return bson.A{
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "localField", Value: localField},
			{Key: "foreignField", Value: "id"},
			{Key: "as", Value: as},
		}}},
		bson.D{{Key: "$unwind", Value: "$" + as}},
	}
}

func topProductsPipeline(perCategory int) bson.A {
	p := bson.A{bson.D{{Key: "$unwind", Value: "$products"}}}
	p = append(p, lookup("products", "products.product_id", "product_info")...)
	p = append(p, lookup("categories", "product_info.category_id", "category_info")...)
	return append(p,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "product_id", Value: "$products.product_id"},
				{Key: "category_id", Value: "$product_info.category_id"},
			}},
			{Key: "total_quantity", Value: bson.D{{Key: "$sum", Value: "$products.product_quantity"}}},
			{Key: "product_name", Value: bson.D{{Key: "$first", Value: "$product_info.name"}}},
			{Key: "category_name", Value: bson.D{{Key: "$first", Value: "$category_info.name"}}},
		}}},
		bson.D{{Key: "$setWindowFields", Value: bson.D{
			{Key: "partitionBy", Value: "$_id.category_id"},
			{Key: "sortBy", Value: bson.D{{Key: "total_quantity", Value: -1}}},
			{Key: "output", Value: bson.D{{Key: "rank", Value: bson.D{{Key: "$rank", Value: bson.D{}}}}}},
		}}},
		bson.D{{Key: "$match", Value: bson.D{{Key: "rank", Value: bson.D{{Key: "$lte", Value: perCategory}}}}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "rank", Value: 1},
			{Key: "category_name", Value: 1},
			{Key: "product_name", Value: 1},
			{Key: "total_quantity", Value: bson.D{{Key: "$toLong", Value: "$total_quantity"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "category_name", Value: 1},
			{Key: "rank", Value: 1},
			{Key: "product_name", Value: 1},
		}}},
	)
}
