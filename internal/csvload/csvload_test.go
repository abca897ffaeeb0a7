package csvload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/orderlake/internal/catalog"
	"github.com/leapstack-labs/orderlake/internal/generate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newReader(t *testing.T, delimiter string) *Reader {
	t.Helper()
	r, err := NewReader(delimiter)
	require.NoError(t, err)
	return r
}

func TestReadCategories(t *testing.T) {
	path := writeFile(t, "categories.csv", "id;name\n1;Electronics\n3;Home & Kitchen\n")

	cats, err := newReader(t, ";").ReadCategories(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Category{
		{ID: 1, Name: "Electronics"},
		{ID: 3, Name: "Home & Kitchen"},
	}, cats)
}

func TestReadProducts_ColumnOrderIsFree(t *testing.T) {
	path := writeFile(t, "products.csv", "category_id,name,id\n1,Laptop,1\n9,Gadget,99\n")

	prods, err := newReader(t, ",").ReadProducts(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, prods, 2)

	assert.Equal(t, catalog.Product{ID: 1, Name: "Laptop", CategoryID: 1, Price: 179999}, prods[0])
	assert.Equal(t, catalog.Product{ID: 99, Name: "Gadget", CategoryID: 9}, prods[1])
}

func TestReadOrderLines(t *testing.T) {
	content := "id;customer_id;date;product_id;product_quantity;product_unit_value\n" +
		"0;1500;2024-02-03T10:11:12Z;1;2;1799.99\n" +
		"0;1500;2024-02-03T10:11:12Z;44;1;9,56\n"
	path := writeFile(t, "orders.csv", content)

	lines, err := newReader(t, ";").ReadOrderLines(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	want := time.Date(2024, 2, 3, 10, 11, 12, 0, time.UTC)
	assert.Equal(t, catalog.OrderLine{
		OrderID: 0, CustomerID: 1500, Date: want, ProductID: 1, Quantity: 2, UnitValue: 179999,
	}, lines[0])
	assert.Equal(t, catalog.Money(956), lines[1].UnitValue)
}

func TestReadOrderLines_Errors(t *testing.T) {
	header := "id;customer_id;date;product_id;product_quantity;product_unit_value\n"

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "empty file",
			content: "",
			errMsg:  "file is empty",
		},
		{
			name:    "missing column",
			content: "id;customer_id;date;product_id;product_quantity\n",
			errMsg:  `column "product_unit_value": missing column`,
		},
		{
			name:    "bad integer",
			content: header + "x;1500;2024-02-03T10:11:12Z;1;2;1.00\n",
			errMsg:  `:2: column "id": invalid integer "x"`,
		},
		{
			name:    "bad date",
			content: header + "1;1500;yesterday;1;2;1.00\n",
			errMsg:  `column "date": invalid timestamp`,
		},
		{
			name:    "zero quantity",
			content: header + "1;1500;2024-02-03;1;0;1.00\n",
			errMsg:  "must be positive",
		},
		{
			name:    "bad money",
			content: header + "1;1500;2024-02-03;1;1;1.001\n",
			errMsg:  "more than two decimals",
		},
		{
			name:    "empty value",
			content: header + "1;;2024-02-03;1;1;1.00\n",
			errMsg:  "value is empty",
		},
		{
			name:    "wrong field count",
			content: header + "1;1500\n",
			errMsg:  "wrong number of fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "orders.csv", tt.content)
			_, err := newReader(t, ";").ReadOrderLines(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := newReader(t, ";").ReadCategories(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGroupOrders(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	lines := []catalog.OrderLine{
		{OrderID: 2, CustomerID: 1001, Date: d1, ProductID: 1, Quantity: 1, UnitValue: 100},
		{OrderID: 1, CustomerID: 1002, Date: d2, ProductID: 2, Quantity: 2, UnitValue: 200},
		{OrderID: 2, CustomerID: 1001, Date: d1, ProductID: 3, Quantity: 1, UnitValue: 300},
	}

	orders, err := GroupOrders(lines)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, 2, orders[0].ID)
	assert.Equal(t, 1001, orders[0].CustomerID)
	assert.Equal(t, []catalog.LineItem{
		{ProductID: 1, Quantity: 1, UnitValue: 100},
		{ProductID: 3, Quantity: 1, UnitValue: 300},
	}, orders[0].Lines)

	assert.Equal(t, 1, orders[1].ID)
	assert.Len(t, orders[1].Lines, 1)
}

func TestGroupOrders_Inconsistent(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := GroupOrders([]catalog.OrderLine{
		{OrderID: 5, CustomerID: 1001, Date: d, ProductID: 1, Quantity: 1},
		{OrderID: 5, CustomerID: 1002, Date: d, ProductID: 2, Quantity: 1},
	})
	var inconsistent *InconsistentOrderError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, 5, inconsistent.OrderID)
	assert.Equal(t, "customer_id", inconsistent.Field)

	_, err = GroupOrders([]catalog.OrderLine{
		{OrderID: 5, CustomerID: 1001, Date: d, ProductID: 1, Quantity: 1},
		{OrderID: 5, CustomerID: 1001, Date: d.Add(time.Hour), ProductID: 2, Quantity: 1},
	})
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, "date", inconsistent.Field)
}

func TestRoundTripWithGenerator(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	g, err := generate.New(generate.Options{
		Delimiter: "|",
		Seed:      3,
		Now:       func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	catPath := filepath.Join(dir, "categories.csv")
	prodPath := filepath.Join(dir, "products.csv")
	orderPath := filepath.Join(dir, "orders.csv")

	_, err = g.Categories(ctx, catPath)
	require.NoError(t, err)
	_, err = g.Products(ctx, prodPath)
	require.NoError(t, err)
	lines, err := g.Orders(ctx, orderPath, 100)
	require.NoError(t, err)

	r := newReader(t, "|")

	cats, err := r.ReadCategories(ctx, catPath)
	require.NoError(t, err)
	assert.Equal(t, catalog.Categories(), cats)

	prods, err := r.ReadProducts(ctx, prodPath)
	require.NoError(t, err)
	assert.Equal(t, catalog.Products(), prods)

	orders, err := r.ReadOrders(ctx, orderPath)
	require.NoError(t, err)
	assert.Len(t, orders, 100)

	total := 0
	for i, o := range orders {
		assert.Equal(t, i, o.ID)
		total += len(o.Lines)
	}
	assert.Equal(t, lines, total)
}
