// Package adaptertest provides a shared behaviour suite for warehouse
// adapters. Each adapter package runs it against a live connection.
package adaptertest

import (
	"context"
	"testing"
	"time"

	"github.com/leapstack-labs/orderlake/internal/catalog"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d, hour int) time.Time {
	return time.Date(year, month, d, hour, 0, 0, 0, time.UTC)
}

// Orders is a small hand-checked dataset. Expected report values below are
// derived from it and the catalogue prices.
func Orders() []catalog.Order {
	return []catalog.Order{
		{ID: 0, CustomerID: 1001, Date: day(2024, time.January, 15, 10), Lines: []catalog.LineItem{
			{ProductID: 1, Quantity: 1, UnitValue: 179999}, // Laptop
			{ProductID: 44, Quantity: 2, UnitValue: 956},   // Socks
		}},
		{ID: 1, CustomerID: 1002, Date: day(2024, time.March, 2, 9), Lines: []catalog.LineItem{
			{ProductID: 38, Quantity: 2, UnitValue: 49956}, // Treadmill
		}},
		{ID: 2, CustomerID: 1001, Date: day(2023, time.July, 9, 18), Lines: []catalog.LineItem{
			{ProductID: 8, Quantity: 2, UnitValue: 1467}, // Novel
		}},
		{ID: 3, CustomerID: 1003, Date: day(2024, time.March, 20, 12), Lines: []catalog.LineItem{
			{ProductID: 8, Quantity: 1, UnitValue: 1467}, // Novel
			{ProductID: 7, Quantity: 1, UnitValue: 2434}, // Cookbook
		}},
		{ID: 4, CustomerID: 1002, Date: time.Date(2022, time.December, 31, 23, 59, 59, 0, time.UTC), Lines: []catalog.LineItem{
			{ProductID: 19, Quantity: 1, UnitValue: 1445}, // T-shirt
		}},
	}
}

// Expected report results for Orders.
var (
	ExpectedTopCustomers2024 = []adapter.CustomerSales{
		{CustomerID: 1001, Total: 1819.11},
		{CustomerID: 1002, Total: 999.12},
		{CustomerID: 1003, Total: 39.01},
	}

	ExpectedSalesByYear = []adapter.PeriodSales{
		{Period: 2022, Total: 14.45},
		{Period: 2023, Total: 29.34},
		{Period: 2024, Total: 2857.24},
	}

	ExpectedSalesByMonth2024 = []adapter.PeriodSales{
		{Period: 1, Total: 1819.11},
		{Period: 3, Total: 1038.13},
	}

	ExpectedTopProducts = []adapter.RankedProduct{
		{Rank: 1, CategoryName: "Books", ProductName: "Novel", Quantity: 3},
		{Rank: 2, CategoryName: "Books", ProductName: "Cookbook", Quantity: 1},
		{Rank: 1, CategoryName: "Clothing", ProductName: "Socks", Quantity: 2},
		{Rank: 2, CategoryName: "Clothing", ProductName: "T-shirt", Quantity: 1},
		{Rank: 1, CategoryName: "Electronics", ProductName: "Laptop", Quantity: 1},
		{Rank: 1, CategoryName: "Sports", ProductName: "Treadmill", Quantity: 2},
	}
)

// TieOrders holds 2025 orders where two customers spend the same amount
// and two Books products sell the same quantity.
func TieOrders() []catalog.Order {
	books := []catalog.LineItem{
		{ProductID: 7, Quantity: 2, UnitValue: 2434}, // Cookbook
		{ProductID: 8, Quantity: 2, UnitValue: 1467}, // Novel
	}
	return []catalog.Order{
		{ID: 10, CustomerID: 2000, Date: day(2025, time.February, 1, 8), Lines: books},
		{ID: 11, CustomerID: 1500, Date: day(2025, time.March, 1, 8), Lines: books},
		{ID: 12, CustomerID: 1800, Date: day(2025, time.April, 1, 8), Lines: []catalog.LineItem{
			{ProductID: 6, Quantity: 1, UnitValue: 11978}, // E-book Reader
		}},
		{ID: 13, CustomerID: 1200, Date: day(2024, time.May, 1, 8), Lines: []catalog.LineItem{
			{ProductID: 9, Quantity: 1, UnitValue: 7923}, // Textbook
		}},
	}
}

// Expected report results for TieOrders.
var (
	ExpectedTieCustomers2025 = []adapter.CustomerSales{
		{CustomerID: 1800, Total: 119.78},
		{CustomerID: 1500, Total: 78.02},
		{CustomerID: 2000, Total: 78.02},
	}

	ExpectedTieProducts = []adapter.RankedProduct{
		{Rank: 1, CategoryName: "Books", ProductName: "Cookbook", Quantity: 4},
		{Rank: 1, CategoryName: "Books", ProductName: "Novel", Quantity: 4},
		{Rank: 3, CategoryName: "Books", ProductName: "E-book Reader", Quantity: 1},
		{Rank: 3, CategoryName: "Books", ProductName: "Textbook", Quantity: 1},
	}
)

// Load creates the schema and loads the catalogue and Orders.
func Load(t *testing.T, adp adapter.Adapter) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, adp.CreateSchema(ctx))

	n, err := adp.LoadCategories(ctx, catalog.Categories())
	require.NoError(t, err)
	require.Equal(t, 5, n)

	n, err = adp.LoadProducts(ctx, catalog.Products())
	require.NoError(t, err)
	require.Equal(t, 50, n)

	n, err = adp.LoadOrders(ctx, Orders())
	require.NoError(t, err)
	require.Equal(t, len(Orders()), n)
}

// loadTies recreates the schema with the catalogue and TieOrders.
func loadTies(t *testing.T, adp adapter.Adapter) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, adp.CreateSchema(ctx))
	_, err := adp.LoadCategories(ctx, catalog.Categories())
	require.NoError(t, err)
	_, err = adp.LoadProducts(ctx, catalog.Products())
	require.NoError(t, err)
	n, err := adp.LoadOrders(ctx, TieOrders())
	require.NoError(t, err)
	require.Equal(t, len(TieOrders()), n)
}

// Run exercises every adapter operation against a connected adapter.
func Run(t *testing.T, adp adapter.Adapter) {
	t.Helper()
	ctx := context.Background()

	Load(t, adp)

	t.Run("describe", func(t *testing.T) {
		tables, err := adp.Describe(ctx)
		require.NoError(t, err)

		counts := make(map[string]int64)
		for _, tbl := range tables {
			counts[tbl.Name] = tbl.RowCount
		}
		assert.Equal(t, int64(5), counts["categories"])
		assert.Equal(t, int64(50), counts["products"])
		assert.Equal(t, int64(5), counts["orders"])
	})

	t.Run("top customers", func(t *testing.T) {
		got, err := adp.TopCustomers(ctx, 2024, 5)
		require.NoError(t, err)
		assertCustomers(t, ExpectedTopCustomers2024, got)

		got, err = adp.TopCustomers(ctx, 2024, 1)
		require.NoError(t, err)
		assertCustomers(t, ExpectedTopCustomers2024[:1], got)

		got, err = adp.TopCustomers(ctx, 1999, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("top products by category", func(t *testing.T) {
		got, err := adp.TopProductsByCategory(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, ExpectedTopProducts, got)

		got, err = adp.TopProductsByCategory(ctx, 1)
		require.NoError(t, err)
		for _, p := range got {
			assert.Equal(t, 1, p.Rank)
		}
		assert.Len(t, got, 4)
	})

	t.Run("sales by year", func(t *testing.T) {
		got, err := adp.SalesByYear(ctx)
		require.NoError(t, err)
		assertPeriods(t, ExpectedSalesByYear, got)
	})

	t.Run("sales by month", func(t *testing.T) {
		got, err := adp.SalesByMonth(ctx, 2024)
		require.NoError(t, err)
		assertPeriods(t, ExpectedSalesByMonth2024, got)
	})

	t.Run("recreate empties storage", func(t *testing.T) {
		require.NoError(t, adp.CreateSchema(ctx))
		got, err := adp.SalesByYear(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid line is rejected", func(t *testing.T) {
		require.NoError(t, adp.CreateSchema(ctx))
		_, err := adp.LoadOrders(ctx, []catalog.Order{{
			ID: 1, CustomerID: 1001, Date: day(2024, time.May, 1, 0),
			Lines: []catalog.LineItem{{ProductID: 1, Quantity: 0, UnitValue: 100}},
		}})
		assert.Error(t, err)
	})

	t.Run("ties", func(t *testing.T) {
		loadTies(t, adp)

		got, err := adp.TopCustomers(ctx, 2025, 5)
		require.NoError(t, err)
		assertCustomers(t, ExpectedTieCustomers2025, got)

		got, err = adp.TopCustomers(ctx, 2025, 2)
		require.NoError(t, err)
		assertCustomers(t, ExpectedTieCustomers2025[:2], got)

		products, err := adp.TopProductsByCategory(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, ExpectedTieProducts, products, "tied products share a rank and the next rank is skipped")

		products, err = adp.TopProductsByCategory(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, ExpectedTieProducts[:2], products)
	})
}

func assertCustomers(t *testing.T, want, got []adapter.CustomerSales) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].CustomerID, got[i].CustomerID, "row %d", i)
		assert.InDelta(t, want[i].Total, got[i].Total, 0.001, "row %d", i)
	}
}

func assertPeriods(t *testing.T, want, got []adapter.PeriodSales) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Period, got[i].Period, "row %d", i)
		assert.InDelta(t, want[i].Total, got[i].Total, 0.001, "row %d", i)
	}
}
