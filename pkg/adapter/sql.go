package adapter

import (
	"fmt"
	"strings"
)

// schemaDDL creates the relational layout. Orders are split into a header
// table and a line table; the CHECK constraints mirror the document
// validators of the mongo adapter.
var schemaDDL = []string{
	`CREATE TABLE categories (
		id INTEGER PRIMARY KEY,
		name VARCHAR NOT NULL CHECK (length(name) > 0)
	)`,
	`CREATE TABLE products (
		id INTEGER PRIMARY KEY,
		name VARCHAR NOT NULL CHECK (length(name) > 0),
		category_id INTEGER NOT NULL REFERENCES categories (id)
	)`,
	`CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		customer_id INTEGER NOT NULL,
		order_date TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE order_lines (
		order_id INTEGER NOT NULL REFERENCES orders (id),
		line_no INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		product_quantity INTEGER NOT NULL CHECK (product_quantity > 0),
		product_unit_value DECIMAL(10, 2) NOT NULL CHECK (product_unit_value >= 0),
		PRIMARY KEY (order_id, line_no)
	)`,
}

// dropOrder lists tables children first so foreign keys never block a drop.
var dropOrder = []string{"order_lines", "orders", "products", "categories"}

// sqlTables are the tables reported by Describe.
var sqlTables = []string{"categories", "products", "orders", "order_lines"}

func insertSQL(d Dialect, table string, columns ...string) string {
	values := d.Placeholders(len(columns))
	for i, col := range columns {
		if col == "product_unit_value" {
			values[i] = fmt.Sprintf("CAST(%s AS DECIMAL(10, 2))", values[i])
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(values, ", "))
}

const lineValue = "l.product_quantity * l.product_unit_value"

func topCustomersSQL(d Dialect, limit int) string {
	return fmt.Sprintf(`
		SELECT o.customer_id, CAST(SUM(%s) AS FLOAT8) AS total_sales
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		WHERE CAST(EXTRACT(YEAR FROM o.order_date) AS INTEGER) = %s
		GROUP BY o.customer_id
		ORDER BY total_sales DESC, o.customer_id
		LIMIT %d`, lineValue, d.Placeholder(1), limit)
}

func topProductsSQL(perCategory int) string {
	return fmt.Sprintf(`
		WITH product_totals AS (
			SELECT p.category_id, c.name AS category_name, p.name AS product_name,
				SUM(l.product_quantity) AS total_quantity
			FROM order_lines l
			JOIN products p ON p.id = l.product_id
			JOIN categories c ON c.id = p.category_id
			GROUP BY p.category_id, c.name, p.id, p.name
		), ranked AS (
			SELECT category_name, product_name, total_quantity,
				RANK() OVER (PARTITION BY category_id ORDER BY total_quantity DESC) AS product_rank
			FROM product_totals
		)
		SELECT CAST(product_rank AS BIGINT), category_name, product_name, CAST(total_quantity AS BIGINT)
		FROM ranked
		WHERE product_rank <= %d
		ORDER BY category_name, product_rank, product_name`, perCategory)
}

func salesByYearSQL() string {
	return fmt.Sprintf(`
		SELECT CAST(EXTRACT(YEAR FROM o.order_date) AS INTEGER) AS period,
			CAST(SUM(%s) AS FLOAT8) AS total_sales
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		GROUP BY 1
		ORDER BY 1`, lineValue)
}

func salesByMonthSQL(d Dialect) string {
	return fmt.Sprintf(`
		SELECT CAST(EXTRACT(MONTH FROM o.order_date) AS INTEGER) AS period,
			CAST(SUM(%s) AS FLOAT8) AS total_sales
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		WHERE CAST(EXTRACT(YEAR FROM o.order_date) AS INTEGER) = %s
		GROUP BY 1
		ORDER BY 1`, lineValue, d.Placeholder(1))
}
