package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/orderlake/internal/catalog"
)

// BaseSQLAdapter provides the database/sql implementation shared by the
// relational adapters. Embed it in a concrete adapter and set Dialect; the
// concrete adapter only needs to implement Connect and Name.
type BaseSQLAdapter struct {
	DB      *sql.DB
	Cfg     Config
	Logger  *slog.Logger
	Dialect Dialect
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection", slog.String("dialect", b.Dialect.Name))
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// CreateSchema drops the pipeline tables and creates them again.
func (b *BaseSQLAdapter) CreateSchema(ctx context.Context) error {
	if b.DB == nil {
		return ErrNotConnected
	}

	for _, table := range dropOrder {
		b.logger().Debug("dropping table", slog.String("table", table))
		if err := b.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	for _, ddl := range schemaDDL {
		if err := b.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	b.logger().Info("schema created", slog.String("dialect", b.Dialect.Name))
	return nil
}

// LoadCategories inserts categories in one transaction.
func (b *BaseSQLAdapter) LoadCategories(ctx context.Context, cats []catalog.Category) (int, error) {
	query := insertSQL(b.Dialect, "categories", "id", "name")
	n, err := b.inTx(ctx, func(tx *sql.Tx) (int, error) {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return 0, err
		}
		defer func() { _ = stmt.Close() }()

		for _, c := range cats {
			if _, err := stmt.ExecContext(ctx, c.ID, c.Name); err != nil {
				return 0, fmt.Errorf("category %d: %w", c.ID, err)
			}
		}
		return len(cats), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}
	b.logger().Info("loaded table", slog.String("table", "categories"), slog.Int("rows", n))
	return n, nil
}

// LoadProducts inserts products in one transaction.
func (b *BaseSQLAdapter) LoadProducts(ctx context.Context, prods []catalog.Product) (int, error) {
	query := insertSQL(b.Dialect, "products", "id", "name", "category_id")
	n, err := b.inTx(ctx, func(tx *sql.Tx) (int, error) {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return 0, err
		}
		defer func() { _ = stmt.Close() }()

		for _, p := range prods {
			if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.CategoryID); err != nil {
				return 0, fmt.Errorf("product %d: %w", p.ID, err)
			}
		}
		return len(prods), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load products: %w", err)
	}
	b.logger().Info("loaded table", slog.String("table", "products"), slog.Int("rows", n))
	return n, nil
}

// LoadOrders inserts order headers and their lines in one transaction.
func (b *BaseSQLAdapter) LoadOrders(ctx context.Context, orders []catalog.Order) (int, error) {
	orderQuery := insertSQL(b.Dialect, "orders", "id", "customer_id", "order_date")
	lineQuery := insertSQL(b.Dialect, "order_lines",
		"order_id", "line_no", "product_id", "product_quantity", "product_unit_value")

	lines := 0
	n, err := b.inTx(ctx, func(tx *sql.Tx) (int, error) {
		orderStmt, err := tx.PrepareContext(ctx, orderQuery)
		if err != nil {
			return 0, err
		}
		defer func() { _ = orderStmt.Close() }()

		lineStmt, err := tx.PrepareContext(ctx, lineQuery)
		if err != nil {
			return 0, err
		}
		defer func() { _ = lineStmt.Close() }()

		for _, o := range orders {
			if len(o.Lines) == 0 {
				return 0, fmt.Errorf("order %d has no lines", o.ID)
			}
			if _, err := orderStmt.ExecContext(ctx, o.ID, o.CustomerID, o.Date.UTC()); err != nil {
				return 0, fmt.Errorf("order %d: %w", o.ID, err)
			}
			for i, l := range o.Lines {
				if _, err := lineStmt.ExecContext(ctx, o.ID, i+1, l.ProductID, l.Quantity, l.UnitValue.String()); err != nil {
					return 0, fmt.Errorf("order %d line %d: %w", o.ID, i+1, err)
				}
				lines++
			}
		}
		return len(orders), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load orders: %w", err)
	}
	b.logger().Info("loaded table", slog.String("table", "orders"), slog.Int("rows", n), slog.Int("lines", lines))
	return n, nil
}

// Describe reports the columns and row count of each pipeline table.
// Missing tables are skipped.
func (b *BaseSQLAdapter) Describe(ctx context.Context) ([]TableInfo, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	//nolint:gosec // Placeholders are safe - they come from the dialect
	query := fmt.Sprintf(`
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position`, b.Dialect.Placeholder(1), b.Dialect.Placeholder(2))

	schema := b.Cfg.Schema
	if schema == "" {
		schema = b.Dialect.DefaultSchema
	}

	var out []TableInfo
	for _, table := range sqlTables {
		cols, err := b.columns(ctx, query, schema, table)
		if err != nil {
			return nil, err
		}
		if len(cols) == 0 {
			continue
		}

		info := TableInfo{Name: table, Columns: cols}
		countQuery := "SELECT COUNT(*) FROM " + table //nolint:gosec // Table names are constants
		if err := b.DB.QueryRowContext(ctx, countQuery).Scan(&info.RowCount); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		out = append(out, info)
	}
	return out, nil
}

func (b *BaseSQLAdapter) columns(ctx context.Context, query, schema, table string) ([]string, error) {
	rows, err := b.DB.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return cols, nil
}

// TopCustomers implements Reporter.
func (b *BaseSQLAdapter) TopCustomers(ctx context.Context, year, limit int) ([]CustomerSales, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	var out []CustomerSales
	err := b.query(ctx, topCustomersSQL(b.Dialect, limit), []any{year}, func(rows *sql.Rows) error {
		var r CustomerSales
		if err := rows.Scan(&r.CustomerID, &r.Total); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	return out, nil
}

// TopProductsByCategory implements Reporter.
func (b *BaseSQLAdapter) TopProductsByCategory(ctx context.Context, perCategory int) ([]RankedProduct, error) {
	if perCategory <= 0 {
		return nil, fmt.Errorf("products per category must be positive, got %d", perCategory)
	}
	var out []RankedProduct
	err := b.query(ctx, topProductsSQL(perCategory), nil, func(rows *sql.Rows) error {
		var r RankedProduct
		if err := rows.Scan(&r.Rank, &r.CategoryName, &r.ProductName, &r.Quantity); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("top products by category: %w", err)
	}
	return out, nil
}

// SalesByYear implements Reporter.
func (b *BaseSQLAdapter) SalesByYear(ctx context.Context) ([]PeriodSales, error) {
	out, err := b.periods(ctx, salesByYearSQL(), nil)
	if err != nil {
		return nil, fmt.Errorf("sales by year: %w", err)
	}
	return out, nil
}

// SalesByMonth implements Reporter.
func (b *BaseSQLAdapter) SalesByMonth(ctx context.Context, year int) ([]PeriodSales, error) {
	out, err := b.periods(ctx, salesByMonthSQL(b.Dialect), []any{year})
	if err != nil {
		return nil, fmt.Errorf("sales by month: %w", err)
	}
	return out, nil
}

func (b *BaseSQLAdapter) periods(ctx context.Context, query string, args []any) ([]PeriodSales, error) {
	var out []PeriodSales
	err := b.query(ctx, query, args, func(rows *sql.Rows) error {
		var r PeriodSales
		if err := rows.Scan(&r.Period, &r.Total); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func (b *BaseSQLAdapter) query(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	if b.DB == nil {
		return ErrNotConnected
	}

	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
	}
	return rows.Err()
}

func (b *BaseSQLAdapter) inTx(ctx context.Context, fn func(*sql.Tx) (int, error)) (int, error) {
	if b.DB == nil {
		return 0, ErrNotConnected
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	n, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return n, nil
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}
