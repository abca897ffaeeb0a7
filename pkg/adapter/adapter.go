// Package adapter defines the warehouse contract that every orderlake
// backend implements: schema creation, bulk loading and the sales reports.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves with the registry from their init() functions.
package adapter

import (
	"context"
	"errors"

	"github.com/leapstack-labs/orderlake/internal/catalog"
)

// ErrNotConnected is returned when an adapter is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// Config holds the configuration for connecting to a warehouse.
type Config struct {
	// Type selects the adapter (e.g., "duckdb", "postgres", "mongo")
	Type string

	// Path is the file path for file-based databases (DuckDB).
	// Use ":memory:" for an in-memory database.
	Path string

	// URI is a full connection string (MongoDB).
	URI string

	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Schema is the default schema to use
	Schema string

	// Options contains additional driver-specific options (e.g., sslmode)
	Options map[string]string

	// Params holds adapter-specific structured settings, decoded by the
	// adapter itself.
	Params map[string]any
}

// TableInfo describes a loaded table or collection.
type TableInfo struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns,omitempty"`
	RowCount int64    `json:"row_count"`
}

// CustomerSales is a customer's total purchase value.
type CustomerSales struct {
	CustomerID int     `json:"customer_id"`
	Total      float64 `json:"total_sales"`
}

// RankedProduct is a product ranked by quantity sold within its category.
// Products with equal quantities share a rank.
type RankedProduct struct {
	Rank         int    `json:"rank"`
	CategoryName string `json:"category_name"`
	ProductName  string `json:"product_name"`
	Quantity     int64  `json:"total_quantity"`
}

// PeriodSales is the sales total of a year or a month.
type PeriodSales struct {
	Period int     `json:"period"`
	Total  float64 `json:"total_sales"`
}

// Reporter runs the sales reports.
type Reporter interface {
	// TopCustomers returns the customers with the highest purchase value in
	// year, highest first. Ties are broken by ascending customer id.
	TopCustomers(ctx context.Context, year, limit int) ([]CustomerSales, error)

	// TopProductsByCategory returns, for each category, the products whose
	// rank by quantity sold is at most perCategory. Results are ordered by
	// category name, rank and product name.
	TopProductsByCategory(ctx context.Context, perCategory int) ([]RankedProduct, error)

	// SalesByYear returns total sales per calendar year, ascending.
	SalesByYear(ctx context.Context) ([]PeriodSales, error)

	// SalesByMonth returns total sales per month (1-12) of year, ascending.
	SalesByMonth(ctx context.Context, year int) ([]PeriodSales, error)
}

// Adapter defines the interface that all warehouse adapters must implement.
type Adapter interface {
	Reporter

	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Name returns the adapter type name (e.g., "duckdb").
	Name() string

	// CreateSchema drops and recreates the categories, products and orders
	// storage together with its validation rules.
	CreateSchema(ctx context.Context) error

	// LoadCategories inserts categories and returns the number written.
	LoadCategories(ctx context.Context, cats []catalog.Category) (int, error)

	// LoadProducts inserts products and returns the number written.
	LoadProducts(ctx context.Context, prods []catalog.Product) (int, error)

	// LoadOrders inserts orders with their line items and returns the number
	// of orders written.
	LoadOrders(ctx context.Context, orders []catalog.Order) (int, error)

	// Describe lists the pipeline tables with their row counts.
	Describe(ctx context.Context) ([]TableInfo, error)
}

// Tables are the pipeline storage names, in load order.
var Tables = []string{"categories", "products", "orders"}
