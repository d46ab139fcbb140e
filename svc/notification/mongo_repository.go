package notification

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	UsersCollection    = "users"
	ProductsCollection = "products"
	OrdersCollection   = "orders"
	SettingsCollection = "notification_settings"
)

// MongoRepository implements Repository. Timestamps are stored as unix seconds.
type MongoRepository struct {
	users    *mongo.Collection
	products *mongo.Collection
	orders   *mongo.Collection
	settings *mongo.Collection
}

var _ Repository = (*MongoRepository)(nil)

// NewMongoRepository binds the repository to db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		users:    db.Collection(UsersCollection),
		products: db.Collection(ProductsCollection),
		orders:   db.Collection(OrdersCollection),
		settings: db.Collection(SettingsCollection),
	}
}

type userDoc struct {
	ID    bson.ObjectID `bson:"_id"`
	Name  string        `bson:"name"`
	Email string        `bson:"email,omitempty"`
}

type productDoc struct {
	ID            bson.ObjectID `bson:"_id"`
	Name          string        `bson:"name"`
	Description   string        `bson:"description,omitempty"`
	Price         float64       `bson:"price"`
	OriginalPrice *float64      `bson:"original_price,omitempty"`
	CreatedAt     int64         `bson:"created_at"`
}

func (d productDoc) product() Product {
	return Product{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		OriginalPrice: d.OriginalPrice,
		CreatedAt:     time.Unix(d.CreatedAt, 0).UTC(),
	}
}

type orderDoc struct {
	ID     bson.ObjectID `bson:"_id"`
	UserID bson.ObjectID `bson:"user_id"`
	Items  []struct {
		ProductID bson.ObjectID `bson:"product_id"`
		Name      string        `bson:"name"`
		Price     float64       `bson:"price"`
		Quantity  int           `bson:"quantity"`
	} `bson:"items"`
	Total     float64 `bson:"total"`
	CreatedAt int64   `bson:"created_at"`
}

func (d orderDoc) order() Order {
	o := Order{
		ID:        d.ID.Hex(),
		UserID:    d.UserID.Hex(),
		Total:     d.Total,
		CreatedAt: time.Unix(d.CreatedAt, 0).UTC(),
		Items:     make([]OrderItem, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, OrderItem{
			ProductID: it.ProductID.Hex(),
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return o
}

type settingsDoc struct {
	UserID   bson.ObjectID `bson:"user_id"`
	Settings `bson:",inline"`
}

func (d settingsDoc) settings() *Settings {
	s := d.Settings
	s.UserID = d.UserID.Hex()
	return &s
}

func (r *MongoRepository) RecipientsWithEnabled(ctx context.Context, category, subtype string) ([]Recipient, error) {
	pipeline, err := recipientsPipeline(category, subtype)
	if err != nil {
		return nil, err
	}

	cur, err := r.settings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		UserID bson.ObjectID `bson:"user_id"`
		Name   string        `bson:"name"`
		Email  string        `bson:"email"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make([]Recipient, 0, len(rows))
	for _, row := range rows {
		out = append(out, Recipient{UserID: row.UserID.Hex(), Name: row.Name, Email: row.Email})
	}
	return out, nil
}

func (r *MongoRepository) GetUser(ctx context.Context, id string) (*User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	err = r.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &User{ID: doc.ID.Hex(), Name: doc.Name, Email: doc.Email}, nil
}

func (r *MongoRepository) GetProduct(ctx context.Context, id string) (*Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc productDoc
	err = r.products.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	p := doc.product()
	return &p, nil
}

func (r *MongoRepository) ProductsCreatedSince(ctx context.Context, since time.Time, limit int) ([]Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(max(limit, 1)))

	cur, err := r.products.Find(ctx, productsSinceFilter(since), opts)
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

func (r *MongoRepository) PaidOrdersSince(ctx context.Context, userID string, since time.Time) ([]Order, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}

	cur, err := r.orders.Find(ctx, paidOrdersFilter(oid, since))
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.order())
	}
	return out, nil
}

func (r *MongoRepository) FindSettings(ctx context.Context, userID string) (*Settings, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}

	var doc settingsDoc
	err = r.settings.FindOne(ctx, bson.D{{Key: "user_id", Value: oid}, {Key: "is_active", Value: 1}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.settings(), nil
}

func (r *MongoRepository) UpsertSettings(ctx context.Context, userID string, prefs Preferences, now time.Time) (*Settings, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc settingsDoc
	err = r.settings.FindOneAndUpdate(ctx,
		bson.D{{Key: "user_id", Value: oid}, {Key: "is_active", Value: 1}},
		settingsUpdate(prefs, now),
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.settings(), nil
}

// recipientsPipeline matches active settings with category.subtype enabled
// and joins each with its user. Settings whose user is gone are dropped.
func recipientsPipeline(category, subtype string) (mongo.Pipeline, error) {
	path, err := PreferencePath(category, subtype)
	if err != nil {
		return nil, err
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "is_active", Value: 1},
			{Key: path, Value: true},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UsersCollection},
			{Key: "localField", Value: "user_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "user"},
		}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "user_id", Value: "$user._id"},
			{Key: "name", Value: "$user.name"},
			{Key: "email", Value: "$user.email"},
		}}},
	}, nil
}

func productsSinceFilter(since time.Time) bson.D {
	return bson.D{
		{Key: "created_at", Value: bson.D{{Key: "$gte", Value: since.Unix()}}},
		{Key: "is_active", Value: 1},
	}
}

func paidOrdersFilter(userID bson.ObjectID, since time.Time) bson.D {
	return bson.D{
		{Key: "user_id", Value: userID},
		{Key: "created_at", Value: bson.D{{Key: "$gte", Value: since.Unix()}}},
		{Key: "is_active", Value: 1},
		{Key: "payment_status", Value: "paid"},
	}
}

// settingsUpdate sets prefs and, on insert only, the defaults for every
// other known path. A path is never in both operators.
func settingsUpdate(prefs Preferences, now time.Time) bson.D {
	set := bson.D{{Key: "updated_at", Value: now.Unix()}}
	for _, path := range sortedPaths(prefs) {
		set = append(set, bson.E{Key: path, Value: prefs[path]})
	}

	defaults := DefaultPreferences()
	for path := range prefs {
		delete(defaults, path)
	}
	onInsert := bson.D{{Key: "created_at", Value: now.Unix()}}
	for _, path := range sortedPaths(defaults) {
		onInsert = append(onInsert, bson.E{Key: path, Value: defaults[path]})
	}

	return bson.D{
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: onInsert},
	}
}

func sortedPaths(p Preferences) []string {
	return slices.Sorted(maps.Keys(p))
}

func objectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}
