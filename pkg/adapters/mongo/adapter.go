package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/leapstack-labs/orderlake/internal/catalog"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Defaults used when the config leaves the connection unset.
const (
	DefaultURI      = "mongodb://localhost:27017"
	DefaultDatabase = "online_orders"
)

const disconnectTimeout = 5 * time.Second

// Adapter stores the pipeline data as MongoDB collections with orders
// embedding their product lines.
type Adapter struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    adapter.Config
	logger *slog.Logger
}

// New creates a new MongoDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{logger: logger}
}

// Name returns the adapter type name.
func (a *Adapter) Name() string {
	return "mongo"
}

// Connect opens a client for cfg.URI and selects cfg.Database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	uri := cfg.URI
	if uri == "" {
		uri = DefaultURI
	}
	name := cfg.Database
	if name == "" {
		name = DefaultDatabase
	}

	a.logger.Debug("connecting to mongo", slog.String("database", name))

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("failed to open mongo connection: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping mongo: %w", err)
	}

	a.client = client
	a.db = client.Database(name)
	a.cfg = cfg
	return nil
}

// Close disconnects the client. It is a no-op before Connect.
func (a *Adapter) Close() error {
	if a.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	err := a.client.Disconnect(ctx)
	a.client, a.db = nil, nil
	return err
}

func (a *Adapter) database() (*mongo.Database, error) {
	if a.db == nil {
		return nil, adapter.ErrNotConnected
	}
	return a.db, nil
}

// CreateSchema drops and recreates every collection with its validator.
func (a *Adapter) CreateSchema(ctx context.Context) error {
	db, err := a.database()
	if err != nil {
		return err
	}

	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, name := range adapter.Tables {
		if present[name] {
			a.logger.Debug("dropping existing collection", slog.String("collection", name))
			if err := db.Collection(name).Drop(ctx); err != nil {
				return fmt.Errorf("failed to drop collection %s: %w", name, err)
			}
		}
		opts := options.CreateCollection().SetValidator(validators[name])
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		a.logger.Info("collection setup completed", slog.String("collection", name))
	}
	return nil
}

type categoryDoc struct {
	ID   int32  `bson:"id"`
	Name string `bson:"name"`
}

type productDoc struct {
	ID         int32  `bson:"id"`
	Name       string `bson:"name"`
	CategoryID int32  `bson:"category_id"`
}

type lineDoc struct {
	ProductID int32           `bson:"product_id"`
	Quantity  int32           `bson:"product_quantity"`
	UnitValue bson.Decimal128 `bson:"product_unit_value"`
}

type orderDoc struct {
	ID         int32     `bson:"id"`
	CustomerID int32     `bson:"customer_id"`
	Date       time.Time `bson:"date"`
	Products   []lineDoc `bson:"products"`
}

// int32Field converts v for an int-typed document field.
func int32Field(field string, v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%s %d does not fit in a 32-bit integer", field, v)
	}
	return int32(v), nil
}

func categoryDocs(cats []catalog.Category) ([]categoryDoc, error) {
	docs := make([]categoryDoc, 0, len(cats))
	for _, c := range cats {
		id, err := int32Field("category id", c.ID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, categoryDoc{ID: id, Name: c.Name})
	}
	return docs, nil
}

func productDocs(prods []catalog.Product) ([]productDoc, error) {
	docs := make([]productDoc, 0, len(prods))
	for _, p := range prods {
		id, err := int32Field("product id", p.ID)
		if err != nil {
			return nil, err
		}
		catID, err := int32Field("category id", p.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", p.ID, err)
		}
		docs = append(docs, productDoc{ID: id, Name: p.Name, CategoryID: catID})
	}
	return docs, nil
}

func lineDocFor(l catalog.LineItem) (lineDoc, error) {
	productID, err := int32Field("product id", l.ProductID)
	if err != nil {
		return lineDoc{}, err
	}
	qty, err := int32Field("quantity", l.Quantity)
	if err != nil {
		return lineDoc{}, fmt.Errorf("product %d: %w", l.ProductID, err)
	}
	value, err := bson.ParseDecimal128(l.UnitValue.String())
	if err != nil {
		return lineDoc{}, fmt.Errorf("product %d: %w", l.ProductID, err)
	}
	return lineDoc{ProductID: productID, Quantity: qty, UnitValue: value}, nil
}

func orderDocs(orders []catalog.Order) ([]orderDoc, error) {
	docs := make([]orderDoc, 0, len(orders))
	for _, o := range orders {
		if len(o.Lines) == 0 {
			return nil, fmt.Errorf("order %d has no lines", o.ID)
		}
		id, err := int32Field("order id", o.ID)
		if err != nil {
			return nil, err
		}
		customer, err := int32Field("customer id", o.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", o.ID, err)
		}
		lines := make([]lineDoc, 0, len(o.Lines))
		for _, l := range o.Lines {
			line, err := lineDocFor(l)
			if err != nil {
				return nil, fmt.Errorf("order %d: %w", o.ID, err)
			}
			lines = append(lines, line)
		}
		docs = append(docs, orderDoc{
			ID:         id,
			CustomerID: customer,
			Date:       o.Date.UTC(),
			Products:   lines,
		})
	}
	return docs, nil
}

// LoadCategories inserts the categories collection.
func (a *Adapter) LoadCategories(ctx context.Context, cats []catalog.Category) (int, error) {
	docs, err := categoryDocs(cats)
	if err != nil {
		return 0, err
	}
	return insertMany(ctx, a, "categories", docs)
}

// LoadProducts inserts the products collection.
func (a *Adapter) LoadProducts(ctx context.Context, prods []catalog.Product) (int, error) {
	docs, err := productDocs(prods)
	if err != nil {
		return 0, err
	}
	return insertMany(ctx, a, "products", docs)
}

// LoadOrders inserts one document per order with its lines embedded.
func (a *Adapter) LoadOrders(ctx context.Context, orders []catalog.Order) (int, error) {
	docs, err := orderDocs(orders)
	if err != nil {
		return 0, err
	}
	return insertMany(ctx, a, "orders", docs)
}

func insertMany[T any](ctx context.Context, a *Adapter, collection string, docs []T) (int, error) {
	db, err := a.database()
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	res, err := db.Collection(collection).InsertMany(ctx, docs)
	if err != nil {
		if isValidationError(err) {
			return 0, fmt.Errorf("%s rejected by collection validator: %w", collection, err)
		}
		return 0, fmt.Errorf("failed to load %s: %w", collection, err)
	}
	a.logger.Info("loading data completed",
		slog.String("collection", collection),
		slog.Int("documents", len(res.InsertedIDs)))
	return len(res.InsertedIDs), nil
}

// Describe counts the documents in each pipeline collection.
func (a *Adapter) Describe(ctx context.Context) ([]adapter.TableInfo, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}

	tables := make([]adapter.TableInfo, 0, len(adapter.Tables))
	for _, name := range adapter.Tables {
		n, err := db.Collection(name).CountDocuments(ctx, bson.D{})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		tables = append(tables, adapter.TableInfo{Name: name, Columns: fields[name], RowCount: n})
	}
	return tables, nil
}

type totalDoc struct {
	Key   int     `bson:"_id"`
	Total float64 `bson:"total_sales"`
}

type rankedDoc struct {
	Rank         int    `bson:"rank"`
	CategoryName string `bson:"category_name"`
	ProductName  string `bson:"product_name"`
	Quantity     int64  `bson:"total_quantity"`
}

// TopCustomers returns the customers with the highest purchase value in year.
func (a *Adapter) TopCustomers(ctx context.Context, year, limit int) ([]adapter.CustomerSales, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	docs, err := aggregate[totalDoc](ctx, a, topCustomersPipeline(year, limit))
	if err != nil {
		return nil, err
	}
	out := make([]adapter.CustomerSales, 0, len(docs))
	for _, d := range docs {
		out = append(out, adapter.CustomerSales{CustomerID: d.Key, Total: d.Total})
	}
	return out, nil
}

// TopProductsByCategory ranks products by quantity sold within each category.
func (a *Adapter) TopProductsByCategory(ctx context.Context, perCategory int) ([]adapter.RankedProduct, error) {
	if perCategory <= 0 {
		return nil, fmt.Errorf("products per category must be positive, got %d", perCategory)
	}
	docs, err := aggregate[rankedDoc](ctx, a, topProductsPipeline(perCategory))
	if err != nil {
		return nil, err
	}
	out := make([]adapter.RankedProduct, 0, len(docs))
	for _, d := range docs {
		out = append(out, adapter.RankedProduct(d))
	}
	return out, nil
}

// SalesByYear returns total sales per calendar year.
func (a *Adapter) SalesByYear(ctx context.Context) ([]adapter.PeriodSales, error) {
	return a.periods(ctx, salesByYearPipeline())
}

// SalesByMonth returns total sales per month of year.
func (a *Adapter) SalesByMonth(ctx context.Context, year int) ([]adapter.PeriodSales, error) {
	return a.periods(ctx, salesByMonthPipeline(year))
}

func (a *Adapter) periods(ctx context.Context, pipeline bson.A) ([]adapter.PeriodSales, error) {
	docs, err := aggregate[totalDoc](ctx, a, pipeline)
	if err != nil {
		return nil, err
	}
	out := make([]adapter.PeriodSales, 0, len(docs))
	for _, d := range docs {
		out = append(out, adapter.PeriodSales{Period: d.Key, Total: d.Total})
	}
	return out, nil
}

func aggregate[T any](ctx context.Context, a *Adapter, pipeline bson.A) ([]T, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}

	cursor, err := db.Collection("orders").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation results: %w", err)
	}
	return docs, nil
}

// isValidationError reports whether err came from a collection validator.
func isValidationError(err error) bool {
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, we := range bwe.WriteErrors {
			if we.Code == documentValidationFailure {
				return true
			}
		}
	}
	return false
}

const documentValidationFailure = 121

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
