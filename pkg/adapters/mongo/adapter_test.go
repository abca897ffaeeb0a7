package mongo

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/leapstack-labs/orderlake/internal/catalog"
	"github.com/leapstack-labs/orderlake/internal/testutil"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"github.com/leapstack-labs/orderlake/pkg/adapter/adaptertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderDocs(t *testing.T) {
	orders := []catalog.Order{{
		ID: 7, CustomerID: 1234,
		Date: time.Date(2024, time.May, 3, 8, 30, 0, 0, time.FixedZone("CET", 3600)),
		Lines: []catalog.LineItem{
			{ProductID: 1, Quantity: 2, UnitValue: 179999},
			{ProductID: 8, Quantity: 1, UnitValue: 5},
		},
	}}

	docs, err := orderDocs(orders)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, int32(7), doc.ID)
	assert.Equal(t, int32(1234), doc.CustomerID)
	assert.Equal(t, time.UTC, doc.Date.Location())
	assert.Equal(t, 7, doc.Date.Hour())
	require.Len(t, doc.Products, 2)
	assert.Equal(t, "1799.99", doc.Products[0].UnitValue.String())
	assert.Equal(t, "0.05", doc.Products[1].UnitValue.String())
	assert.Equal(t, int32(2), doc.Products[0].Quantity)
}

func TestOrderDocs_NoLines(t *testing.T) {
	_, err := orderDocs([]catalog.Order{{ID: 3, CustomerID: 1000}})
	assert.EqualError(t, err, "order 3 has no lines")
}

func TestDocs_RejectOutOfRangeIntegers(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	line := catalog.LineItem{ProductID: 1, Quantity: 1, UnitValue: 1999}

	tests := []struct {
		name  string
		order catalog.Order
		want  string
	}{
		{"order id", catalog.Order{ID: 1<<32 + 7, CustomerID: 1000, Date: date, Lines: []catalog.LineItem{line}}, "order id 4294967303"},
		{"customer id", catalog.Order{ID: 1, CustomerID: 1<<31 + 1, Date: date, Lines: []catalog.LineItem{line}}, "customer id 2147483649"},
		{"quantity", catalog.Order{ID: 1, CustomerID: 1000, Date: date, Lines: []catalog.LineItem{{ProductID: 1, Quantity: 1<<32 + 1, UnitValue: 1999}}}, "quantity 4294967297"},
		{"product id", catalog.Order{ID: 1, CustomerID: 1000, Date: date, Lines: []catalog.LineItem{{ProductID: -1 << 40, Quantity: 1}}}, "product id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := orderDocs([]catalog.Order{tt.order})
			require.Error(t, err)
			assert.Nil(t, docs)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "32-bit")
		})
	}

	_, err := categoryDocs([]catalog.Category{{ID: 1 << 33, Name: "Huge"}})
	assert.ErrorContains(t, err, "category id 8589934592")

	_, err = productDocs([]catalog.Product{{ID: 1, Name: "Pen", CategoryID: 1 << 33}})
	assert.ErrorContains(t, err, "product 1: category id")

	prods, err := productDocs([]catalog.Product{{ID: math.MaxInt32, Name: "Pen", CategoryID: 1}})
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), prods[0].ID)
}

func TestAdapter_NotConnected(t *testing.T) {
	adp := New(nil)
	ctx := context.Background()

	_, err := adp.LoadCategories(ctx, catalog.Categories())
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	_, err = adp.Describe(ctx)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	_, err = adp.SalesByYear(ctx)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	_, err = adp.TopCustomers(ctx, 2024, 0)
	assert.Error(t, err)

	assert.NoError(t, adp.Close())
}

// TestAdapter_Conformance runs against a live server when
// ORDERLAKE_TEST_MONGO_URI is set.
func TestAdapter_Conformance(t *testing.T) {
	uri := os.Getenv("ORDERLAKE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ORDERLAKE_TEST_MONGO_URI not set")
	}

	adp := New(testutil.NewTestLogger(t))
	cfg := adapter.Config{URI: uri, Database: "orderlake_test_" + time.Now().UTC().Format("20060102150405")}
	require.NoError(t, adp.Connect(context.Background(), cfg))
	t.Cleanup(func() {
		_ = adp.db.Drop(context.Background())
		_ = adp.Close()
	})

	adaptertest.Run(t, adp)
}
