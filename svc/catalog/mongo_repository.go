package catalog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names shared with the rest of the store.
const (
	ProductsCollection = "products"
	OrdersCollection   = "orders"
)

// MongoRepository implements Repository on top of a Mongo database.
type MongoRepository struct {
	products *mongo.Collection
	orders   *mongo.Collection
}

var _ Repository = (*MongoRepository)(nil)

// NewMongoRepository binds the repository to db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		products: db.Collection(ProductsCollection),
		orders:   db.Collection(OrdersCollection),
	}
}

type productDoc struct {
	ID         bson.ObjectID `bson:"_id"`
	CategoryID bson.ObjectID `bson:"category_id"`
	Product    `bson:",inline"`
}

func (d productDoc) product() Product {
	p := d.Product
	p.ID = d.ID.Hex()
	p.CategoryID = d.CategoryID.Hex()
	return p
}

func (r *MongoRepository) InsertProduct(ctx context.Context, p *Product) error {
	categoryID, err := bson.ObjectIDFromHex(p.CategoryID)
	if err != nil {
		return fmt.Errorf("%w: category_id %q", ErrInvalidID, p.CategoryID)
	}

	doc := productDoc{ID: bson.NewObjectID(), CategoryID: categoryID, Product: *p}
	if _, err := r.products.InsertOne(ctx, doc); err != nil {
		return err
	}
	p.ID = doc.ID.Hex()
	return nil
}

func (r *MongoRepository) BestSellingProductIDs(ctx context.Context, from, to time.Time, limit int) ([]string, error) {
	cur, err := r.orders.Aggregate(ctx, bestSellersPipeline(from, to, limit))
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID       bson.ObjectID `bson:"_id"`
		Quantity int64         `bson:"total_quantity"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID.Hex())
	}
	return ids, nil
}

func (r *MongoRepository) ActiveProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}
	return r.findProducts(ctx, bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}},
		{Key: "is_active", Value: 1},
	}, options.Find())
}

func (r *MongoRepository) NewestActiveProducts(ctx context.Context, exclude []string, limit int) ([]Product, error) {
	if limit <= 0 {
		return nil, nil
	}
	filter := bson.D{{Key: "is_active", Value: 1}}
	if oids := objectIDs(exclude); len(oids) > 0 {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$nin", Value: oids}}})
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return r.findProducts(ctx, filter, opts)
}

func (r *MongoRepository) findProducts(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]Product, error) {
	cur, err := r.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.product())
	}
	return out, nil
}

// bestSellersPipeline sums item quantities of paid, active orders created
// within [from, to] and ranks product ids by that sum.
func bestSellersPipeline(from, to time.Time, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "created_at", Value: bson.D{
				{Key: "$gte", Value: from.Unix()},
				{Key: "$lte", Value: to.Unix()},
			}},
			{Key: "is_active", Value: 1},
			{Key: "payment_status", Value: "paid"},
		}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$match", Value: bson.D{
			{Key: "items.product_id", Value: bson.D{{Key: "$type", Value: "objectId"}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$items.product_id"},
			{Key: "total_quantity", Value: bson.D{{Key: "$sum", Value: "$items.quantity"}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "total_quantity", Value: -1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$limit", Value: int64(max(limit, 1))}},
	}
}

// objectIDs converts hex ids, dropping the malformed ones.
func objectIDs(ids []string) []bson.ObjectID {
	out := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}
