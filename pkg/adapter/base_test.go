package adapter

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/orderlake/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBase(t *testing.T, numbered bool) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &BaseSQLAdapter{
		DB:      db,
		Dialect: Dialect{Name: "test", DefaultSchema: "main", NumberedPlaceholders: numbered},
	}, mock
}

func TestBaseSQLAdapter_Close(t *testing.T) {
	base := &BaseSQLAdapter{}
	assert.NoError(t, base.Close())

	base, mock := newMockBase(t, false)
	mock.ExpectClose()
	assert.NoError(t, base.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	base := &BaseSQLAdapter{}

	assert.False(t, base.IsConnected())
	assert.ErrorIs(t, base.Exec(ctx, "SELECT 1"), ErrNotConnected)
	assert.ErrorIs(t, base.CreateSchema(ctx), ErrNotConnected)

	_, err := base.LoadCategories(ctx, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = base.SalesByYear(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = base.Describe(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBaseSQLAdapter_CreateSchema(t *testing.T) {
	base, mock := newMockBase(t, false)

	for _, table := range []string{"order_lines", "orders", "products", "categories"} {
		mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS " + table)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for _, table := range []string{"categories", "products", "orders", "order_lines"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE " + table + " (")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, base.CreateSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_CreateSchemaError(t *testing.T) {
	base, mock := newMockBase(t, false)
	mock.ExpectExec("DROP TABLE IF EXISTS order_lines").WillReturnError(assert.AnError)

	err := base.CreateSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to drop order_lines")
}

func TestBaseSQLAdapter_LoadCategories(t *testing.T) {
	base, mock := newMockBase(t, true)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO categories (id, name) VALUES ($1, $2)"))
	prep.ExpectExec().WithArgs(1, "Electronics").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(2, "Books").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := base.LoadCategories(context.Background(), []catalog.Category{
		{ID: 1, Name: "Electronics"},
		{ID: 2, Name: "Books"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_LoadOrders(t *testing.T) {
	base, mock := newMockBase(t, false)
	date := time.Date(2024, 4, 5, 6, 7, 8, 0, time.UTC)

	mock.ExpectBegin()
	orderPrep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO orders (id, customer_id, order_date)"))
	linePrep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO order_lines"))
	orderPrep.ExpectExec().WithArgs(7, 1234, date).WillReturnResult(sqlmock.NewResult(0, 1))
	linePrep.ExpectExec().WithArgs(7, 1, 1, 2, "1799.99").WillReturnResult(sqlmock.NewResult(0, 1))
	linePrep.ExpectExec().WithArgs(7, 2, 44, 1, "9.56").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := base.LoadOrders(context.Background(), []catalog.Order{{
		ID:         7,
		CustomerID: 1234,
		Date:       date,
		Lines: []catalog.LineItem{
			{ProductID: 1, Quantity: 2, UnitValue: 179999},
			{ProductID: 44, Quantity: 1, UnitValue: 956},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_LoadOrdersRollsBack(t *testing.T) {
	base, mock := newMockBase(t, false)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO orders")
	mock.ExpectPrepare("INSERT INTO order_lines")
	mock.ExpectRollback()

	_, err := base.LoadOrders(context.Background(), []catalog.Order{{ID: 3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order 3 has no lines")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_TopCustomers(t *testing.T) {
	base, mock := newMockBase(t, true)

	rows := sqlmock.NewRows([]string{"customer_id", "total_sales"}).
		AddRow(4200, 9876.5).
		AddRow(1001, 1234.25)
	mock.ExpectQuery(`(?s)SELECT o\.customer_id.*= \$1.*LIMIT 5`).WithArgs(2024).WillReturnRows(rows)

	got, err := base.TopCustomers(context.Background(), 2024, 5)
	require.NoError(t, err)
	assert.Equal(t, []CustomerSales{
		{CustomerID: 4200, Total: 9876.5},
		{CustomerID: 1001, Total: 1234.25},
	}, got)

	_, err = base.TopCustomers(context.Background(), 2024, 0)
	assert.ErrorContains(t, err, "limit must be positive")
}

func TestBaseSQLAdapter_TopProductsByCategory(t *testing.T) {
	base, mock := newMockBase(t, false)

	rows := sqlmock.NewRows([]string{"rank", "category_name", "product_name", "total_quantity"}).
		AddRow(1, "Books", "Novel", 40).
		AddRow(1, "Books", "Textbook", 40).
		AddRow(3, "Books", "Cookbook", 12)
	mock.ExpectQuery(`(?s)RANK\(\) OVER.*product_rank <= 3`).WillReturnRows(rows)

	got, err := base.TopProductsByCategory(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, RankedProduct{Rank: 1, CategoryName: "Books", ProductName: "Textbook", Quantity: 40}, got[1])
}

func TestBaseSQLAdapter_SalesQueries(t *testing.T) {
	base, mock := newMockBase(t, false)

	mock.ExpectQuery(`(?s)EXTRACT\(YEAR FROM o\.order_date\).*GROUP BY 1`).
		WillReturnRows(sqlmock.NewRows([]string{"period", "total_sales"}).AddRow(2022, 10.5).AddRow(2023, 20.0))
	mock.ExpectQuery(`(?s)EXTRACT\(MONTH FROM o\.order_date\).*= \?`).WithArgs(2024).
		WillReturnRows(sqlmock.NewRows([]string{"period", "total_sales"}).AddRow(1, 1.5))

	years, err := base.SalesByYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []PeriodSales{{Period: 2022, Total: 10.5}, {Period: 2023, Total: 20}}, years)

	months, err := base.SalesByMonth(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, []PeriodSales{{Period: 1, Total: 1.5}}, months)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_QueryError(t *testing.T) {
	base, mock := newMockBase(t, false)
	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	_, err := base.SalesByYear(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sales by year: failed to execute query")
}

func TestBaseSQLAdapter_Describe(t *testing.T) {
	base, mock := newMockBase(t, false)

	colQuery := regexp.QuoteMeta("FROM information_schema.columns")
	mock.ExpectQuery(colQuery).WithArgs("main", "categories").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("name"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM categories")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(colQuery).WithArgs("main", "products").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
	mock.ExpectQuery(colQuery).WithArgs("main", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
	mock.ExpectQuery(colQuery).WithArgs("main", "order_lines").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))

	tables, err := base.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TableInfo{{Name: "categories", Columns: []string{"id", "name"}, RowCount: 5}}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}
