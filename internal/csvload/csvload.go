// Package csvload reads the pipeline CSV files back into catalogue types and
// assembles order lines into orders.
package csvload

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/orderlake/internal/catalog"
	"github.com/leapstack-labs/orderlake/internal/generate"
)

// ParseError reports a malformed value in a CSV file.
type ParseError struct {
	File   string
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: column %q: %v", e.File, e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InconsistentOrderError is returned when lines of the same order disagree on
// the customer or the order date.
type InconsistentOrderError struct {
	OrderID int
	Field   string
	First   string
	Other   string
}

func (e *InconsistentOrderError) Error() string {
	return fmt.Sprintf("order %d has inconsistent %s: %s vs %s", e.OrderID, e.Field, e.First, e.Other)
}

// Reader parses pipeline CSV files with a fixed delimiter.
type Reader struct {
	comma rune
}

// NewReader creates a Reader. An empty delimiter means ';'.
func NewReader(delimiter string) (*Reader, error) {
	comma, err := generate.ParseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}
	return &Reader{comma: comma}, nil
}

// ReadCategories reads a categories file.
func (r *Reader) ReadCategories(ctx context.Context, path string) ([]catalog.Category, error) {
	var out []catalog.Category
	err := r.each(ctx, path, generate.CategoriesHeader, func(row record) error {
		id, err := row.int("id")
		if err != nil {
			return err
		}
		name, err := row.str("name")
		if err != nil {
			return err
		}
		out = append(out, catalog.Category{ID: id, Name: name})
		return nil
	})
	return out, err
}

// ReadProducts reads a products file. Prices are filled from the catalogue
// when the product is known.
func (r *Reader) ReadProducts(ctx context.Context, path string) ([]catalog.Product, error) {
	var out []catalog.Product
	err := r.each(ctx, path, generate.ProductsHeader, func(row record) error {
		id, err := row.int("id")
		if err != nil {
			return err
		}
		name, err := row.str("name")
		if err != nil {
			return err
		}
		categoryID, err := row.int("category_id")
		if err != nil {
			return err
		}
		p := catalog.Product{ID: id, Name: name, CategoryID: categoryID}
		if known, ok := catalog.ProductByID(id); ok {
			p.Price = known.Price
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// ReadOrderLines reads an orders file, one OrderLine per row.
func (r *Reader) ReadOrderLines(ctx context.Context, path string) ([]catalog.OrderLine, error) {
	var out []catalog.OrderLine
	err := r.each(ctx, path, generate.OrdersHeader, func(row record) error {
		var (
			l   catalog.OrderLine
			err error
		)
		if l.OrderID, err = row.int("id"); err != nil {
			return err
		}
		if l.CustomerID, err = row.int("customer_id"); err != nil {
			return err
		}
		if l.Date, err = row.time("date"); err != nil {
			return err
		}
		if l.ProductID, err = row.int("product_id"); err != nil {
			return err
		}
		if l.Quantity, err = row.int("product_quantity"); err != nil {
			return err
		}
		if l.Quantity <= 0 {
			return row.fail("product_quantity", fmt.Errorf("must be positive, got %d", l.Quantity))
		}
		if l.UnitValue, err = row.money("product_unit_value"); err != nil {
			return err
		}
		if l.UnitValue < 0 {
			return row.fail("product_unit_value", fmt.Errorf("must not be negative, got %s", l.UnitValue))
		}
		out = append(out, l)
		return nil
	})
	return out, err
}

// ReadOrders reads an orders file and groups its lines into orders.
func (r *Reader) ReadOrders(ctx context.Context, path string) ([]catalog.Order, error) {
	lines, err := r.ReadOrderLines(ctx, path)
	if err != nil {
		return nil, err
	}
	return GroupOrders(lines)
}

// GroupOrders assembles lines into orders keyed by order id. Orders keep the
// order in which their id first appears.
func GroupOrders(lines []catalog.OrderLine) ([]catalog.Order, error) {
	index := make(map[int]int)
	var orders []catalog.Order

	for _, l := range lines {
		item := catalog.LineItem{ProductID: l.ProductID, Quantity: l.Quantity, UnitValue: l.UnitValue}

		i, ok := index[l.OrderID]
		if !ok {
			index[l.OrderID] = len(orders)
			orders = append(orders, catalog.Order{
				ID:         l.OrderID,
				CustomerID: l.CustomerID,
				Date:       l.Date,
				Lines:      []catalog.LineItem{item},
			})
			continue
		}

		o := &orders[i]
		if o.CustomerID != l.CustomerID {
			return nil, &InconsistentOrderError{
				OrderID: l.OrderID,
				Field:   "customer_id",
				First:   strconv.Itoa(o.CustomerID),
				Other:   strconv.Itoa(l.CustomerID),
			}
		}
		if !o.Date.Equal(l.Date) {
			return nil, &InconsistentOrderError{
				OrderID: l.OrderID,
				Field:   "date",
				First:   o.Date.Format(time.RFC3339),
				Other:   l.Date.Format(time.RFC3339),
			}
		}
		o.Lines = append(o.Lines, item)
	}
	return orders, nil
}

// record is one parsed CSV row with header-based column access.
type record struct {
	file    string
	line    int
	columns map[string]int
	values  []string
}

func (r record) fail(column string, err error) error {
	return &ParseError{File: r.file, Line: r.line, Column: column, Err: err}
}

func (r record) str(column string) (string, error) {
	v := strings.TrimSpace(r.values[r.columns[column]])
	if v == "" {
		return "", r.fail(column, errors.New("value is empty"))
	}
	return v, nil
}

func (r record) int(column string) (int, error) {
	v, err := r.str(column)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, r.fail(column, fmt.Errorf("invalid integer %q", v))
	}
	return n, nil
}

func (r record) money(column string) (catalog.Money, error) {
	v, err := r.str(column)
	if err != nil {
		return 0, err
	}
	m, err := catalog.ParseMoney(v)
	if err != nil {
		return 0, r.fail(column, err)
	}
	return m, nil
}

func (r record) time(column string) (time.Time, error) {
	v, err := r.str(column)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, r.fail(column, fmt.Errorf("invalid timestamp %q", v))
}

// each streams the rows of a CSV file, resolving required columns by header
// name so that column order in the file does not matter.
func (r *Reader) each(ctx context.Context, path string, required []string, fn func(record) error) error {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cr := csv.NewReader(f)
	cr.Comma = r.comma
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &ParseError{File: path, Line: 1, Err: errors.New("file is empty")}
	}
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return &ParseError{File: path, Line: 1, Column: name, Err: errors.New("missing column")}
		}
	}

	for {
		values, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return &ParseError{File: path, Line: csvErr.Line, Err: csvErr.Err}
			}
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		line, _ := cr.FieldPos(0)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(record{file: path, line: line, columns: columns, values: values}); err != nil {
			return err
		}
	}
}
