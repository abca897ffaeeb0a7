// Package generate writes the synthetic categories, products and orders CSV
// files that feed the rest of the pipeline.
package generate

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/renameio/v2"
	"github.com/leapstack-labs/orderlake/internal/catalog"
)

// Column headers of the generated files.
var (
	CategoriesHeader = []string{"id", "name"}
	ProductsHeader   = []string{"id", "name", "category_id"}
	OrdersHeader     = []string{"id", "customer_id", "date", "product_id", "product_quantity", "product_unit_value"}
)

// Order generation bounds.
const (
	MinCustomerID    = 1000
	MaxCustomerID    = 6000
	MinLinesPerOrder = 1
	MaxLinesPerOrder = 3
	MinQuantity      = 1
	MaxQuantity      = 2
)

// Epoch is the earliest order date.
var Epoch = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

// DateLayout is the order date format: RFC3339 in UTC with second precision.
const DateLayout = "2006-01-02T15:04:05Z"

// Options configures a Generator.
type Options struct {
	// Delimiter separates CSV fields. Defaults to ';'.
	Delimiter string

	// Seed makes order generation deterministic when non-zero.
	Seed uint64

	// Now bounds the latest order date. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Generator produces the pipeline CSV files.
type Generator struct {
	comma  rune
	faker  *gofakeit.Faker
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Generator. The delimiter must be a single character.
func New(opts Options) (*Generator, error) {
	comma, err := ParseDelimiter(opts.Delimiter)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Generator{
		comma:  comma,
		faker:  gofakeit.New(opts.Seed),
		now:    now,
		logger: logger,
	}, nil
}

// ParseDelimiter validates a delimiter string. Empty means ';'.
func ParseDelimiter(s string) (rune, error) {
	if s == "" {
		return ';', nil
	}
	if s == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// Categories writes the category catalogue to path.
func (g *Generator) Categories(ctx context.Context, path string) (int, error) {
	g.logger.Info("generating categories", slog.String("file", path))

	cats := catalog.Categories()
	err := g.writeFile(ctx, path, func(w *csv.Writer) error {
		if err := w.Write(CategoriesHeader); err != nil {
			return err
		}
		for _, c := range cats {
			if err := w.Write([]string{strconv.Itoa(c.ID), c.Name}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(cats), nil
}

// Products writes the product catalogue to path. Prices are not part of the
// products file; they travel with each order line.
func (g *Generator) Products(ctx context.Context, path string) (int, error) {
	g.logger.Info("generating products", slog.String("file", path))

	prods := catalog.Products()
	err := g.writeFile(ctx, path, func(w *csv.Writer) error {
		if err := w.Write(ProductsHeader); err != nil {
			return err
		}
		for _, p := range prods {
			if err := w.Write([]string{strconv.Itoa(p.ID), p.Name, strconv.Itoa(p.CategoryID)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(prods), nil
}

// Orders writes n random orders to path and returns the number of lines
// written. Order ids run from 0 to n-1.
func (g *Generator) Orders(ctx context.Context, path string, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("order count must not be negative, got %d", n)
	}
	g.logger.Info("generating orders", slog.String("file", path), slog.Int("orders", n))

	end := g.now().UTC()
	if end.Before(Epoch) {
		return 0, fmt.Errorf("current time %s is before %s", end.Format(time.RFC3339), Epoch.Format(time.RFC3339))
	}

	lines := 0
	err := g.writeFile(ctx, path, func(w *csv.Writer) error {
		if err := w.Write(OrdersHeader); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if i%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			for _, l := range g.order(i, end) {
				if err := w.Write(formatLine(l)); err != nil {
					return err
				}
				lines++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	g.logger.Debug("orders generated", slog.Int("orders", n), slog.Int("lines", lines))
	return lines, nil
}

func (g *Generator) order(id int, end time.Time) []catalog.OrderLine {
	customer := g.faker.IntRange(MinCustomerID, MaxCustomerID)
	date := g.faker.DateRange(Epoch, end).UTC().Truncate(time.Second)

	count := g.faker.IntRange(MinLinesPerOrder, MaxLinesPerOrder)
	lines := make([]catalog.OrderLine, 0, count)
	for j := 0; j < count; j++ {
		productID := g.faker.IntRange(1, len(catalog.Products()))
		product, _ := catalog.ProductByID(productID)
		lines = append(lines, catalog.OrderLine{
			OrderID:    id,
			CustomerID: customer,
			Date:       date,
			ProductID:  productID,
			Quantity:   g.faker.IntRange(MinQuantity, MaxQuantity),
			UnitValue:  product.Price,
		})
	}
	return lines
}

func formatLine(l catalog.OrderLine) []string {
	return []string{
		strconv.Itoa(l.OrderID),
		strconv.Itoa(l.CustomerID),
		l.Date.UTC().Format(DateLayout),
		strconv.Itoa(l.ProductID),
		strconv.Itoa(l.Quantity),
		l.UnitValue.String(),
	}
}

// writeFile writes a CSV file atomically: the target is only replaced once
// every row has been flushed and synced.
func (g *Generator) writeFile(ctx context.Context, path string, fill func(*csv.Writer) error) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			g.logger.Debug("cleanup pending file", slog.String("file", path), slog.Any("error", err))
		}
	}()

	if err := g.encode(pending, fill); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (g *Generator) encode(out io.Writer, fill func(*csv.Writer) error) error {
	w := csv.NewWriter(out)
	w.Comma = g.comma
	if err := fill(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
