package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmersupply/internal/models"
)

// Memory keeps everything in maps guarded by one mutex. Values are copied on
// the way in and out so callers never share slices with the store.
type Memory struct {
	mu       sync.RWMutex
	products map[primitive.ObjectID]models.Product
	users    map[primitive.ObjectID]models.User
	carts    map[primitive.ObjectID]models.Cart
	orders   map[primitive.ObjectID]models.Order
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		products: make(map[primitive.ObjectID]models.Product),
		users:    make(map[primitive.ObjectID]models.User),
		carts:    make(map[primitive.ObjectID]models.Cart),
		orders:   make(map[primitive.ObjectID]models.Order),
	}
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) PutProduct(_ context.Context, product models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
	return nil
}

func (m *Memory) PutUser(_ context.Context, user models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *Memory) GetProduct(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	product, ok := m.products[id]
	if !ok || product.IsDeleted {
		return models.Product{}, ErrNotFound
	}
	product.Normalize()
	return product, nil
}

func (m *Memory) ListProducts(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	m.mu.RLock()
	products := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		if p.IsDeleted || !matchesProduct(p, filter) {
			continue
		}
		p.Normalize()
		products = append(products, p)
	}
	m.mu.RUnlock()

	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return paginate(products, filter.Skip, filter.Limit), nil
}

func matchesProduct(p models.Product, filter ProductFilter) bool {
	if !filter.SupplierID.IsZero() && p.SupplierID != filter.SupplierID {
		return false
	}
	if filter.Category != "" {
		found := false
		for _, c := range p.Category {
			if c == filter.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
		return false
	}
	return true
}

func paginate[T any](items []T, skip, limit int64) []T {
	if skip > 0 {
		if skip >= int64(len(items)) {
			return []T{}
		}
		items = items[skip:]
	}
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

func (m *Memory) GetUser(_ context.Context, id primitive.ObjectID) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (m *Memory) GetCart(_ context.Context, userID primitive.ObjectID) (models.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart, ok := m.carts[userID]
	if !ok {
		return models.Cart{}, ErrNotFound
	}
	return copyCart(cart), nil
}

func (m *Memory) SaveCart(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.carts[cart.UserID]
	switch {
	case cart.Version == 0 && exists:
		return ErrConflict
	case cart.Version != 0 && (!exists || stored.Version != cart.Version):
		return ErrConflict
	}
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	cart.Version++
	m.carts[cart.UserID] = copyCart(*cart)
	return nil
}

func (m *Memory) InsertOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if _, exists := m.orders[order.ID]; exists {
		return ErrConflict
	}
	order.Version = 1
	m.orders[order.ID] = copyOrder(*order)
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return models.Order{}, ErrNotFound
	}
	return copyOrder(order), nil
}

func (m *Memory) FindOrderByReference(_ context.Context, reference string) (models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if reference == "" {
		return models.Order{}, ErrNotFound
	}
	for _, order := range m.orders {
		if order.PaymentReference == reference {
			return copyOrder(order), nil
		}
	}
	return models.Order{}, ErrNotFound
}

func (m *Memory) UpdateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != order.Version {
		return ErrConflict
	}
	order.Version++
	m.orders[order.ID] = copyOrder(*order)
	return nil
}

func (m *Memory) ListOrders(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	m.mu.RLock()
	orders := make([]models.Order, 0)
	for _, order := range m.orders {
		if !filter.UserID.IsZero() && order.UserID != filter.UserID {
			continue
		}
		if !filter.SupplierID.IsZero() && !order.HasSupplier(filter.SupplierID) {
			continue
		}
		orders = append(orders, copyOrder(order))
	}
	m.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func copyCart(c models.Cart) models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	return c
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	return o
}
