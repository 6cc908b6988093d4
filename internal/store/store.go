// Package store persists products, users, carts and orders.
//
// Carts and orders are written with compare-and-swap on their Version field:
// a write succeeds only when the stored version still equals the version the
// caller read, and the stored version then grows by one. Version 0 means the
// document has never been stored.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmersupply/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("version conflict")
)

type ProductFilter struct {
	Category   string
	Search     string
	SupplierID primitive.ObjectID
	Skip       int64
	Limit      int64
}

type CatalogStore interface {
	GetProduct(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

type CartStore interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) (models.Cart, error)
	// SaveCart inserts a new cart or replaces an existing one and bumps cart.Version.
	SaveCart(ctx context.Context, cart *models.Cart) error
}

type OrderFilter struct {
	UserID     primitive.ObjectID
	SupplierID primitive.ObjectID
}

type OrderStore interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	FindOrderByReference(ctx context.Context, reference string) (models.Order, error)
	// UpdateOrder replaces the order when its version matches and bumps order.Version.
	UpdateOrder(ctx context.Context, order *models.Order) error
	// ListOrders returns matching orders, newest first. A zero filter lists everything.
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
}

// Seeder loads catalog and user fixtures.
type Seeder interface {
	PutProduct(ctx context.Context, product models.Product) error
	PutUser(ctx context.Context, user models.User) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is everything the server needs from one backend.
type Store interface {
	CatalogStore
	UserStore
	CartStore
	OrderStore
	Seeder
	Pinger
}
