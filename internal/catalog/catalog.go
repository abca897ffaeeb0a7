// Package catalog holds the fixed category and product catalogue of the
// online store together with the order types shared by every pipeline step.
package catalog

import (
	"fmt"
	"time"
)

// Category is a product category.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Product is a sellable item with its list price.
type Product struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	CategoryID int    `json:"category_id"`
	Price      Money  `json:"price"`
}

// OrderLine is a single product within an order, as stored in the orders CSV.
type OrderLine struct {
	OrderID    int
	CustomerID int
	Date       time.Time
	ProductID  int
	Quantity   int
	UnitValue  Money
}

// LineItem is a product entry embedded in an Order.
type LineItem struct {
	ProductID int   `json:"product_id"`
	Quantity  int   `json:"product_quantity"`
	UnitValue Money `json:"product_unit_value"`
}

// Order groups the lines that share an order id.
type Order struct {
	ID         int        `json:"id"`
	CustomerID int        `json:"customer_id"`
	Date       time.Time  `json:"date"`
	Lines      []LineItem `json:"products"`
}

// Total returns the order value (sum of quantity times unit value).
func (o Order) Total() Money {
	var total Money
	for _, l := range o.Lines {
		total += l.UnitValue * Money(l.Quantity)
	}
	return total
}

var categories = []Category{
	{ID: 1, Name: "Electronics"},
	{ID: 2, Name: "Books"},
	{ID: 3, Name: "Home & Kitchen"},
	{ID: 4, Name: "Sports"},
	{ID: 5, Name: "Clothing"},
}

var products = []Product{
	{ID: 1, Name: "Laptop", CategoryID: 1, Price: 179999},
	{ID: 2, Name: "Smartphone", CategoryID: 1, Price: 15067},
	{ID: 3, Name: "Headphones", CategoryID: 1, Price: 4912},
	{ID: 4, Name: "Tablet", CategoryID: 1, Price: 29934},
	{ID: 5, Name: "Camera", CategoryID: 1, Price: 39956},
	{ID: 6, Name: "E-book Reader", CategoryID: 2, Price: 11978},
	{ID: 7, Name: "Cookbook", CategoryID: 2, Price: 2434},
	{ID: 8, Name: "Novel", CategoryID: 2, Price: 1467},
	{ID: 9, Name: "Textbook", CategoryID: 2, Price: 7923},
	{ID: 10, Name: "Blender", CategoryID: 3, Price: 5945},
	{ID: 11, Name: "Coffee Maker", CategoryID: 3, Price: 9978},
	{ID: 12, Name: "Microwave", CategoryID: 3, Price: 14934},
	{ID: 13, Name: "Vacuum Cleaner", CategoryID: 3, Price: 19956},
	{ID: 14, Name: "Soccer Ball", CategoryID: 4, Price: 2912},
	{ID: 15, Name: "Tennis Racket", CategoryID: 4, Price: 6934},
	{ID: 16, Name: "Basketball", CategoryID: 4, Price: 2456},
	{ID: 17, Name: "Yoga Mat", CategoryID: 4, Price: 1978},
	{ID: 18, Name: "Running Shoes", CategoryID: 4, Price: 8923},
	{ID: 19, Name: "T-shirt", CategoryID: 5, Price: 1445},
	{ID: 20, Name: "Jeans", CategoryID: 5, Price: 3978},
	{ID: 21, Name: "Jacket", CategoryID: 5, Price: 5934},
	{ID: 22, Name: "Sneakers", CategoryID: 5, Price: 4956},
	{ID: 23, Name: "Dress", CategoryID: 5, Price: 6912},
	{ID: 24, Name: "Smartwatch", CategoryID: 1, Price: 24934},
	{ID: 25, Name: "Monitor", CategoryID: 1, Price: 17956},
	{ID: 26, Name: "Keyboard", CategoryID: 1, Price: 3912},
	{ID: 27, Name: "Mouse", CategoryID: 1, Price: 1934},
	{ID: 28, Name: "Printer", CategoryID: 1, Price: 11956},
	{ID: 29, Name: "Fiction Book", CategoryID: 2, Price: 978},
	{ID: 30, Name: "Non-fiction Book", CategoryID: 2, Price: 1923},
	{ID: 31, Name: "Mystery Book", CategoryID: 2, Price: 1445},
	{ID: 32, Name: "Science Book", CategoryID: 2, Price: 2978},
	{ID: 33, Name: "Toaster", CategoryID: 3, Price: 2434},
	{ID: 34, Name: "Mixer", CategoryID: 3, Price: 4456},
	{ID: 35, Name: "Air Fryer", CategoryID: 3, Price: 9912},
	{ID: 36, Name: "Grill", CategoryID: 3, Price: 14978},
	{ID: 37, Name: "Dumbbells", CategoryID: 4, Price: 4934},
	{ID: 38, Name: "Treadmill", CategoryID: 4, Price: 49956},
	{ID: 39, Name: "Exercise Bike", CategoryID: 4, Price: 29912},
	{ID: 40, Name: "Golf Clubs", CategoryID: 4, Price: 39934},
	{ID: 41, Name: "Hat", CategoryID: 5, Price: 1956},
	{ID: 42, Name: "Scarf", CategoryID: 5, Price: 2412},
	{ID: 43, Name: "Gloves", CategoryID: 5, Price: 1434},
	{ID: 44, Name: "Socks", CategoryID: 5, Price: 956},
	{ID: 45, Name: "Belt", CategoryID: 5, Price: 2912},
	{ID: 46, Name: "Smart TV", CategoryID: 1, Price: 59934},
	{ID: 47, Name: "Gaming Console", CategoryID: 1, Price: 39956},
	{ID: 48, Name: "Router", CategoryID: 1, Price: 7912},
	{ID: 49, Name: "External Hard Drive", CategoryID: 1, Price: 9934},
	{ID: 50, Name: "Webcam", CategoryID: 1, Price: 6956},
}

// Categories returns a copy of the category catalogue.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Products returns a copy of the product catalogue, ordered by id.
func Products() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// ProductByID looks up a product. Ids are dense and start at 1.
func ProductByID(id int) (Product, bool) {
	if id < 1 || id > len(products) {
		return Product{}, false
	}
	return products[id-1], true
}

// Validate checks the catalogue for duplicate ids, dangling category
// references and negative prices.
func Validate(cats []Category, prods []Product) error {
	seenCat := make(map[int]bool, len(cats))
	for _, c := range cats {
		if c.ID <= 0 {
			return fmt.Errorf("category %q: id must be positive, got %d", c.Name, c.ID)
		}
		if seenCat[c.ID] {
			return fmt.Errorf("duplicate category id %d", c.ID)
		}
		seenCat[c.ID] = true
	}

	seenProd := make(map[int]bool, len(prods))
	for _, p := range prods {
		if p.ID <= 0 {
			return fmt.Errorf("product %q: id must be positive, got %d", p.Name, p.ID)
		}
		if seenProd[p.ID] {
			return fmt.Errorf("duplicate product id %d", p.ID)
		}
		seenProd[p.ID] = true
		if !seenCat[p.CategoryID] {
			return fmt.Errorf("product %d references unknown category %d", p.ID, p.CategoryID)
		}
		if p.Price < 0 {
			return fmt.Errorf("product %d has negative price %s", p.ID, p.Price)
		}
	}
	return nil
}
