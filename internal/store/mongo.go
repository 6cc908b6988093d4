package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"farmersupply/internal/models"
)

const (
	productsCollection = "products"
	usersCollection    = "users"
	cartsCollection    = "carts"
	ordersCollection   = "orders"
)

type Mongo struct {
	db *mongo.Database
}

var _ Store = (*Mongo)(nil)

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) Ping(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return m.db.Client().Ping(checkCtx, readpref.Primary())
}

func (m *Mongo) PutProduct(ctx context.Context, product models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	_, err := m.db.Collection(productsCollection).ReplaceOne(
		ctx,
		bson.M{"_id": product.ID},
		product,
		options.Replace().SetUpsert(true),
	)
	return errors.Wrap(err, "upsert product")
}

func (m *Mongo) PutUser(ctx context.Context, user models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := m.db.Collection(usersCollection).ReplaceOne(
		ctx,
		bson.M{"_id": user.ID},
		user,
		options.Replace().SetUpsert(true),
	)
	return errors.Wrap(err, "upsert user")
}

func (m *Mongo) GetProduct(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var raw bson.M
	err := m.db.Collection(productsCollection).FindOne(ctx, bson.M{
		"_id":       id,
		"isDeleted": bson.M{"$ne": true},
	}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, errors.Wrap(err, "find product")
	}
	return normalizeProductDocument(raw)
}

func (m *Mongo) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := bson.M{"isDeleted": bson.M{"$ne": true}}
	if filter.Category != "" {
		query["category"] = bson.M{"$in": []string{filter.Category}}
	}
	if filter.Search != "" {
		query["name"] = bson.M{"$regex": primitive.Regex{Pattern: regexpQuote(filter.Search), Options: "i"}}
	}
	if !filter.SupplierID.IsZero() {
		query["supplier"] = filter.SupplierID
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Skip > 0 {
		findOptions.SetSkip(filter.Skip)
	}
	if filter.Limit > 0 {
		findOptions.SetLimit(filter.Limit)
	}

	cursor, err := m.db.Collection(productsCollection).Find(ctx, query, findOptions)
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	defer cursor.Close(ctx)

	return decodeProducts(ctx, cursor)
}

func (m *Mongo) GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var user models.User
	err := m.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, errors.Wrap(err, "find user")
	}
	return user, nil
}

func (m *Mongo) GetCart(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	var cart models.Cart
	err := m.db.Collection(cartsCollection).FindOne(ctx, bson.M{"user": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cart{}, ErrNotFound
	}
	if err != nil {
		return models.Cart{}, errors.Wrap(err, "find cart")
	}
	return cart, nil
}

func (m *Mongo) SaveCart(ctx context.Context, cart *models.Cart) error {
	next := *cart
	next.Version = cart.Version + 1
	if next.ID.IsZero() {
		next.ID = primitive.NewObjectID()
	}

	if cart.Version == 0 {
		_, err := m.db.Collection(cartsCollection).InsertOne(ctx, next)
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		if err != nil {
			return errors.Wrap(err, "insert cart")
		}
		*cart = next
		return nil
	}

	res, err := m.db.Collection(cartsCollection).ReplaceOne(ctx, bson.M{
		"_id":     next.ID,
		"version": cart.Version,
	}, next)
	if err != nil {
		return errors.Wrap(err, "replace cart")
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	*cart = next
	return nil
}

func (m *Mongo) InsertOrder(ctx context.Context, order *models.Order) error {
	next := *order
	next.Version = 1
	if next.ID.IsZero() {
		next.ID = primitive.NewObjectID()
	}

	_, err := m.db.Collection(ordersCollection).InsertOne(ctx, next)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	if err != nil {
		return errors.Wrap(err, "insert order")
	}
	*order = next
	return nil
}

func (m *Mongo) GetOrder(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	return m.findOrder(ctx, bson.M{"_id": id})
}

func (m *Mongo) FindOrderByReference(ctx context.Context, reference string) (models.Order, error) {
	if reference == "" {
		return models.Order{}, ErrNotFound
	}
	return m.findOrder(ctx, bson.M{"paymentReference": reference})
}

func (m *Mongo) findOrder(ctx context.Context, filter bson.M) (models.Order, error) {
	var order models.Order
	err := m.db.Collection(ordersCollection).FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, errors.Wrap(err, "find order")
	}
	return order, nil
}

func (m *Mongo) UpdateOrder(ctx context.Context, order *models.Order) error {
	next := *order
	next.Version = order.Version + 1

	res, err := m.db.Collection(ordersCollection).ReplaceOne(ctx, bson.M{
		"_id":     order.ID,
		"version": order.Version,
	}, next)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	if err != nil {
		return errors.Wrap(err, "replace order")
	}
	if res.MatchedCount == 0 {
		count, countErr := m.db.Collection(ordersCollection).CountDocuments(ctx, bson.M{"_id": order.ID})
		if countErr == nil && count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	*order = next
	return nil
}

func (m *Mongo) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := bson.M{}
	if !filter.UserID.IsZero() {
		query["user"] = filter.UserID
	}
	if !filter.SupplierID.IsZero() {
		query["items.supplier"] = filter.SupplierID
	}

	cursor, err := m.db.Collection(ordersCollection).Find(
		ctx,
		query,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "find orders")
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return orders, nil
}
