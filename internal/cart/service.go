package cart

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"

	"farmersupply/internal/apperr"
	"farmersupply/internal/cache"
	"farmersupply/internal/identity"
	"farmersupply/internal/models"
	"farmersupply/internal/store"
)

const emptyRetries = 3

type Service struct {
	carts   store.CartStore
	catalog store.CatalogStore
	cache   cache.CartCache
	sfg     singleflight.Group
	now     func() time.Time
}

func NewService(carts store.CartStore, catalog store.CatalogStore, cartCache cache.CartCache) *Service {
	if cartCache == nil {
		cartCache = cache.Noop{}
	}
	return &Service{
		carts:   carts,
		catalog: catalog,
		cache:   cartCache,
		now:     time.Now,
	}
}

// ItemView is a cart line resolved against the live catalog.
// Product is nil when the product has since been removed.
type ItemView struct {
	ProductID primitive.ObjectID `json:"productId"`
	Product   *models.Product    `json:"product"`
	Quantity  int                `json:"quantity"`
	LineTotal float64            `json:"lineTotal"`
}

type View struct {
	ID      primitive.ObjectID `json:"id,omitempty"`
	UserID  primitive.ObjectID `json:"user"`
	Items   []ItemView         `json:"items"`
	Total   float64            `json:"total"`
	Version int64              `json:"version"`
}

// Get returns the caller's cart priced at current catalog prices. A user
// without a cart gets an empty view at version 0.
func (s *Service) Get(ctx context.Context, caller identity.Caller) (View, error) {
	key := caller.ID.Hex()
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			return *cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithError(err).WithField("user", key).Warn("[CART] cache get failed")
		}

		cart, err := s.carts.GetCart(ctx, caller.ID)
		if errors.Is(err, store.ErrNotFound) {
			return models.Cart{UserID: caller.ID, Items: []models.CartItem{}}, nil
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "could not load cart")
		}

		if err := s.cache.Set(ctx, key, &cart); err != nil {
			log.WithError(err).WithField("user", key).Warn("[CART] cache set failed")
		}
		return cart, nil
	})
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, v.(models.Cart))
}

// AddItem adds quantity units of a product, creating the cart on first use.
// A zero quantity means one.
func (s *Service) AddItem(ctx context.Context, caller identity.Caller, productID primitive.ObjectID, quantity int, expectedVersion *int64) (View, error) {
	if quantity < 0 {
		return View{}, apperr.New(apperr.InvalidInput, "quantity must not be negative")
	}
	if quantity == 0 {
		quantity = 1
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return View{}, err
	}

	return s.mutate(ctx, caller, expectedVersion, true, func(cart *models.Cart) error {
		cart.Add(productID, quantity)
		return nil
	})
}

// SetQuantity replaces a line's quantity. Zero removes the line.
func (s *Service) SetQuantity(ctx context.Context, caller identity.Caller, productID primitive.ObjectID, quantity int, expectedVersion *int64) (View, error) {
	if quantity < 0 {
		return View{}, apperr.New(apperr.NotFound, "Invalid quantity for cart item")
	}
	return s.mutate(ctx, caller, expectedVersion, false, func(cart *models.Cart) error {
		if !cart.SetQuantity(productID, quantity) {
			return apperr.New(apperr.NotFound, "Item not found in cart")
		}
		return nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, caller identity.Caller, productID primitive.ObjectID, expectedVersion *int64) (View, error) {
	return s.mutate(ctx, caller, expectedVersion, false, func(cart *models.Cart) error {
		if !cart.Remove(productID) {
			return apperr.New(apperr.NotFound, "Item not found in cart")
		}
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, caller identity.Caller, expectedVersion *int64) (View, error) {
	return s.mutate(ctx, caller, expectedVersion, false, func(cart *models.Cart) error {
		cart.Clear()
		return nil
	})
}

// Snapshot reads the stored cart, bypassing the cache.
func (s *Service) Snapshot(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	return s.carts.GetCart(ctx, userID)
}

// Empty clears a cart after checkout. If the cart changed since the snapshot
// was taken it is reloaded and cleared again.
func (s *Service) Empty(ctx context.Context, snapshot models.Cart) error {
	cart := snapshot
	var err error
	for attempt := 0; attempt < emptyRetries; attempt++ {
		cart.Clear()
		cart.UpdatedAt = s.now()
		err = s.carts.SaveCart(ctx, &cart)
		if err == nil {
			s.invalidate(ctx, cart.UserID)
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		cart, err = s.carts.GetCart(ctx, snapshot.UserID)
		if err != nil {
			return err
		}
	}
	return err
}

func (s *Service) mutate(ctx context.Context, caller identity.Caller, expectedVersion *int64, create bool, apply func(*models.Cart) error) (View, error) {
	cart, err := s.carts.GetCart(ctx, caller.ID)
	switch {
	case errors.Is(err, store.ErrNotFound) && create:
		cart = models.Cart{UserID: caller.ID, Items: []models.CartItem{}, CreatedAt: s.now()}
	case errors.Is(err, store.ErrNotFound):
		return View{}, apperr.New(apperr.NotFound, "Cart not found")
	case err != nil:
		return View{}, apperr.Wrap(apperr.Internal, err, "could not load cart")
	}

	if expectedVersion != nil && *expectedVersion != cart.Version {
		return View{}, apperr.Newf(apperr.Conflict, "cart has changed (version %d, expected %d)", cart.Version, *expectedVersion)
	}

	if err := apply(&cart); err != nil {
		return View{}, err
	}
	cart.UpdatedAt = s.now()

	if err := s.carts.SaveCart(ctx, &cart); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return View{}, apperr.Wrap(apperr.Conflict, err, "cart was modified concurrently, reload and retry")
		}
		return View{}, apperr.Wrap(apperr.Internal, err, "could not save cart")
	}

	s.invalidate(ctx, caller.ID)
	return s.view(ctx, cart)
}

func (s *Service) invalidate(ctx context.Context, userID primitive.ObjectID) {
	if err := s.cache.Delete(ctx, userID.Hex()); err != nil {
		log.WithError(err).WithField("user", userID.Hex()).Warn("[CART] cache invalidation failed")
	}
}

func (s *Service) requireProduct(ctx context.Context, productID primitive.ObjectID) error {
	_, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.New(apperr.NotFound, "Product not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "could not load product")
	}
	return nil
}

// view prices the cart with live catalog prices. This total is for display
// only; orders re-read the catalog when they are created.
func (s *Service) view(ctx context.Context, cart models.Cart) (View, error) {
	out := View{
		ID:      cart.ID,
		UserID:  cart.UserID,
		Items:   make([]ItemView, 0, len(cart.Items)),
		Version: cart.Version,
	}

	var lines []models.OrderItem
	for _, item := range cart.Items {
		line := ItemView{ProductID: item.ProductID, Quantity: item.Quantity}
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		switch {
		case err == nil:
			line.Product = &product
			line.LineTotal = models.LineTotal(product.UnitPrice(), item.Quantity).InexactFloat64()
			lines = append(lines, models.OrderItem{Price: product.UnitPrice(), Quantity: item.Quantity})
		case errors.Is(err, store.ErrNotFound):
		default:
			return View{}, apperr.Wrap(apperr.Internal, err, "could not load product")
		}
		out.Items = append(out.Items, line)
	}
	out.Total = models.OrderTotal(lines)
	return out, nil
}
