package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmersupply/internal/models"
)

func TestMemoryCartCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	userID := primitive.NewObjectID()

	cart := models.Cart{UserID: userID}
	cart.Add(primitive.NewObjectID(), 1)
	require.NoError(t, m.SaveCart(ctx, &cart))
	assert.Equal(t, int64(1), cart.Version)

	first, err := m.GetCart(ctx, userID)
	require.NoError(t, err)
	second, err := m.GetCart(ctx, userID)
	require.NoError(t, err)

	first.Clear()
	require.NoError(t, m.SaveCart(ctx, &first))
	assert.Equal(t, int64(2), first.Version)

	second.Add(primitive.NewObjectID(), 3)
	assert.ErrorIs(t, m.SaveCart(ctx, &second), ErrConflict)

	stored, err := m.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())
}

func TestMemorySecondNewCartConflicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	userID := primitive.NewObjectID()

	a := models.Cart{UserID: userID}
	b := models.Cart{UserID: userID}
	require.NoError(t, m.SaveCart(ctx, &a))
	assert.ErrorIs(t, m.SaveCart(ctx, &b), ErrConflict)
}

func TestMemoryGetCartReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	cart := models.Cart{UserID: userID}
	cart.Add(productID, 2)
	require.NoError(t, m.SaveCart(ctx, &cart))

	loaded, err := m.GetCart(ctx, userID)
	require.NoError(t, err)
	loaded.Items[0].Quantity = 99

	again, err := m.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)
}

func TestMemoryOrderUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	order := models.Order{UserID: primitive.NewObjectID(), Status: models.StatusPending}
	require.NoError(t, m.InsertOrder(ctx, &order))
	assert.Equal(t, int64(1), order.Version)

	stale := order
	order.PaymentReference = "TX-1-abc"
	require.NoError(t, m.UpdateOrder(ctx, &order))
	assert.Equal(t, int64(2), order.Version)

	stale.Status = models.StatusCancelled
	assert.ErrorIs(t, m.UpdateOrder(ctx, &stale), ErrConflict)

	found, err := m.FindOrderByReference(ctx, "TX-1-abc")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = m.FindOrderByReference(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	missing := models.Order{ID: primitive.NewObjectID(), Version: 1}
	assert.ErrorIs(t, m.UpdateOrder(ctx, &missing), ErrNotFound)
}

func TestMemoryListOrdersFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buyer := primitive.NewObjectID()
	supplier := primitive.NewObjectID()
	now := time.Now()

	older := models.Order{UserID: buyer, CreatedAt: now.Add(-time.Hour), Items: []models.OrderItem{{SupplierID: supplier}}}
	newer := models.Order{UserID: buyer, CreatedAt: now}
	other := models.Order{UserID: primitive.NewObjectID(), CreatedAt: now, Items: []models.OrderItem{{SupplierID: supplier}}}
	for _, o := range []*models.Order{&older, &newer, &other} {
		require.NoError(t, m.InsertOrder(ctx, o))
	}

	mine, err := m.ListOrders(ctx, OrderFilter{UserID: buyer})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)

	supplied, err := m.ListOrders(ctx, OrderFilter{SupplierID: supplier})
	require.NoError(t, err)
	assert.Len(t, supplied, 2)

	all, err := m.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryListProducts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	supplier := primitive.NewObjectID()
	now := time.Now()

	require.NoError(t, m.PutProduct(ctx, models.Product{Name: "Teff Seeds", Price: 120, SaleEnabled: true, SalePrice: 100, Category: categories("Seeds"), SupplierID: supplier, CreatedAt: now}))
	require.NoError(t, m.PutProduct(ctx, models.Product{Name: "Urea Fertilizer", Price: 900, Category: categories("Fertilizer"), CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, m.PutProduct(ctx, models.Product{Name: "Old Hoe", Price: 50, IsDeleted: true}))

	all, err := m.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Teff Seeds", all[0].Name)
	assert.True(t, all[0].IsOnSale)

	seeds, err := m.ListProducts(ctx, ProductFilter{Category: "Seeds"})
	require.NoError(t, err)
	assert.Len(t, seeds, 1)

	search, err := m.ListProducts(ctx, ProductFilter{Search: "urea"})
	require.NoError(t, err)
	assert.Len(t, search, 1)

	mine, err := m.ListProducts(ctx, ProductFilter{SupplierID: supplier})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	page, err := m.ListProducts(ctx, ProductFilter{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Urea Fertilizer", page[0].Name)
}

func categories(values ...string) models.StringList {
	return models.StringList(values)
}
