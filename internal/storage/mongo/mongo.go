// Package mongo stores the dataset in a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"txreport/internal/core"
	"txreport/internal/ports"
)

var (
	_ ports.ReportStore     = (*Store)(nil)
	_ ports.DatasetReplacer = (*Store)(nil)
	_ ports.Pinger          = (*Store)(nil)
)

// document is the stored shape of a transaction. SaleMonth is derived at
// insert time from the offset the sale was recorded with, 0 when undated;
// Seq keeps insertion order.
type document struct {
	Seq         int64               `bson:"seq"`
	ID          int64               `bson:"id"`
	Title       string              `bson:"title"`
	Description string              `bson:"description"`
	Price       float64             `bson:"price"`
	Category    string              `bson:"category"`
	Image       string              `bson:"image,omitempty"`
	Sold        bool                `bson:"sold"`
	DateOfSale  *primitive.DateTime `bson:"dateOfSale,omitempty"`
	SaleMonth   int                 `bson:"saleMonth"`
}

func toDocument(seq int, t core.Transaction) document {
	var date *primitive.DateTime
	if t.Dated() {
		d := primitive.NewDateTimeFromTime(t.DateOfSale)
		date = &d
	}
	return document{
		Seq:         int64(seq),
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Price:       t.Price,
		Category:    t.Category,
		Image:       t.Image,
		Sold:        t.Sold,
		DateOfSale:  date,
		SaleMonth:   int(t.SaleMonth()),
	}
}

func (d document) transaction() core.Transaction {
	t := core.Transaction{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		Image:       d.Image,
		Sold:        d.Sold,
	}
	if d.DateOfSale != nil {
		t.DateOfSale = d.DateOfSale.Time().UTC()
	}
	return t
}

type Store struct {
	client     *mongo.Client
	database   string
	collection string
}

// Open connects to uri and verifies the primary is reachable.
func Open(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &Store{client: client, database: database, collection: collection}
	if err := s.ensureIndexes(ctx, s.coll()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) coll() *mongo.Collection {
	return s.client.Database(s.database).Collection(s.collection)
}

func (s *Store) ensureIndexes(ctx context.Context, c *mongo.Collection) error {
	_, err := c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "saleMonth", Value: 1}, {Key: "sold", Value: 1}}},
		{Keys: bson.D{{Key: "seq", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// ReplaceAll writes the new dataset to a staging collection and renames it
// over the live one. The rename is atomic, so readers never see a mix.
func (s *Store) ReplaceAll(ctx context.Context, items []core.Transaction) error {
	db := s.client.Database(s.database)
	stagingName := fmt.Sprintf("%s_staging_%d", s.collection, time.Now().UnixNano())
	staging := db.Collection(stagingName)

	docs := make([]interface{}, len(items))
	for i, t := range items {
		docs[i] = toDocument(i, t)
	}
	if len(docs) > 0 {
		if _, err := staging.InsertMany(ctx, docs); err != nil {
			_ = staging.Drop(context.Background())
			return fmt.Errorf("insert staging documents: %w", err)
		}
	}
	if err := s.ensureIndexes(ctx, staging); err != nil {
		_ = staging.Drop(context.Background())
		return err
	}

	cmd := bson.D{
		{Key: "renameCollection", Value: s.database + "." + stagingName},
		{Key: "to", Value: s.database + "." + s.collection},
		{Key: "dropTarget", Value: true},
	}
	if err := s.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		_ = staging.Drop(context.Background())
		return fmt.Errorf("swap collections: %w", err)
	}

	slog.InfoContext(ctx, "Dataset replaced in MongoDB", "count", len(items), "collection", s.collection)
	return nil
}

// buildFilter translates a core.Filter into a query document. The caller
// handles filters that match nothing.
func buildFilter(f core.Filter) bson.D {
	q := bson.D{}
	if f.Month.Constrained() {
		q = append(q, bson.E{Key: "saleMonth", Value: int(f.Month.Month())})
	}
	if f.Sold != nil {
		q = append(q, bson.E{Key: "sold", Value: *f.Sold})
	}
	if r := f.Price; r != nil {
		op := "$gt"
		if r.FloorInclusive {
			op = "$gte"
		}
		bounds := bson.D{{Key: op, Value: r.Floor}}
		if r.Ceiling < 1e300 {
			bounds = append(bounds, bson.E{Key: "$lte", Value: r.Ceiling})
		}
		q = append(q, bson.E{Key: "price", Value: bounds})
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		alts := bson.A{
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "description", Value: re}},
		}
		if v, ok := f.SearchPrice(); ok {
			alts = append(alts, bson.D{{Key: "price", Value: v}})
		}
		q = append(q, bson.E{Key: "$or", Value: alts})
	}
	return q
}

func (s *Store) Find(ctx context.Context, f core.Filter, page core.Page) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, page.Size)
	if f.MatchesNothing() {
		return out, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Size))
	cur, err := s.coll().Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var d document
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		out = append(out, d.transaction())
	}
	return out, cur.Err()
}

func (s *Store) Count(ctx context.Context, f core.Filter) (int64, error) {
	if f.MatchesNothing() {
		return 0, nil
	}
	n, err := s.coll().CountDocuments(ctx, buildFilter(f))
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// SumPrice sums as Decimal128 on the server.
func (s *Store) SumPrice(ctx context.Context, f core.Filter) (float64, error) {
	if f.MatchesNothing() {
		return 0, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildFilter(f)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$toDecimal", Value: "$price"}}}}},
		}}},
	}
	cur, err := s.coll().Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("sum prices: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total primitive.Decimal128 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode sum: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	d, err := decimal.NewFromString(rows[0].Total.String())
	if err != nil {
		return 0, fmt.Errorf("parse sum: %w", err)
	}
	return d.InexactFloat64(), nil
}

func (s *Store) CountByCategory(ctx context.Context, f core.Filter) ([]core.CategoryCount, error) {
	out := []core.CategoryCount{}
	if f.MatchesNothing() {
		return out, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildFilter(f)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := s.coll().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("group by category: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID    *string `bson:"_id"`
			Count int64   `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode category count: %w", err)
		}
		c := core.CategoryCount{Count: row.Count}
		if row.ID != nil {
			c.Category = *row.ID
		}
		out = append(out, c)
	}
	return out, cur.Err()
}
