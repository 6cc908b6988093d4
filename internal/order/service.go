package order

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmersupply/internal/apperr"
	"farmersupply/internal/identity"
	"farmersupply/internal/models"
	"farmersupply/internal/store"
)

// CartSource is the part of the cart service checkout depends on.
type CartSource interface {
	Snapshot(ctx context.Context, userID primitive.ObjectID) (models.Cart, error)
	Empty(ctx context.Context, snapshot models.Cart) error
}

type Service struct {
	orders  store.OrderStore
	catalog store.CatalogStore
	carts   CartSource
	now     func() time.Time
}

func NewService(orders store.OrderStore, catalog store.CatalogStore, carts CartSource) *Service {
	return &Service{
		orders:  orders,
		catalog: catalog,
		carts:   carts,
		now:     time.Now,
	}
}

// CreateFromCart turns the caller's cart into a pending order. Unit prices are
// read from the catalog here and never change afterwards. The cart is emptied
// after the order is stored; if that fails the order still stands. The
// shipping address may be blank here and supplied when payment starts.
func (s *Service) CreateFromCart(ctx context.Context, caller identity.Caller, shippingAddress string) (View, error) {
	cart, err := s.carts.Snapshot(ctx, caller.ID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && cart.IsEmpty()) {
		return View{}, apperr.New(apperr.InvalidState, "Cart is empty")
	}
	if err != nil {
		return View{}, apperr.Wrap(apperr.Internal, err, "could not load cart")
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return View{}, apperr.Newf(apperr.NotFound, "Product not found: %s", line.ProductID.Hex())
		}
		if err != nil {
			return View{}, apperr.Wrap(apperr.Internal, err, "could not load product")
		}
		items = append(items, models.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			SupplierID: product.SupplierID,
			Quantity:   line.Quantity,
			Price:      product.UnitPrice(),
		})
	}

	now := s.now()
	order := models.Order{
		UserID:          caller.ID,
		Items:           items,
		TotalAmount:     models.OrderTotal(items),
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		ShippingAddress: strings.TrimSpace(shippingAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.InsertOrder(ctx, &order); err != nil {
		return View{}, apperr.Wrap(apperr.Internal, err, "could not create order")
	}

	logger := log.WithFields(log.Fields{"order": order.ID.Hex(), "user": caller.ID.Hex()})
	if err := s.carts.Empty(ctx, cart); err != nil {
		logger.WithError(err).Warn("[ORDER] order created but cart was not cleared")
	}
	logger.WithField("total", order.TotalAmount).Info("[ORDER] order created")

	return s.view(ctx, order), nil
}

func (s *Service) Get(ctx context.Context, caller identity.Caller, orderID primitive.ObjectID) (View, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return View{}, err
	}
	if !caller.IsAdmin() && !caller.Owns(order.UserID) && !(caller.IsSupplier() && order.HasSupplier(caller.ID)) {
		return View{}, apperr.New(apperr.Forbidden, "Unauthorized access to this order")
	}
	return s.view(ctx, order), nil
}

func (s *Service) ListMine(ctx context.Context, caller identity.Caller) ([]View, error) {
	orders, err := s.orders.ListOrders(ctx, store.OrderFilter{UserID: caller.ID})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not load orders")
	}
	return s.views(ctx, orders), nil
}

// ListForSupplier returns the orders that contain at least one of the
// supplier's products, with the supplier's share broken out.
func (s *Service) ListForSupplier(ctx context.Context, caller identity.Caller) ([]SupplierView, error) {
	if !caller.IsSupplier() {
		return nil, apperr.New(apperr.Forbidden, "Only suppliers can view supplier orders")
	}
	orders, err := s.orders.ListOrders(ctx, store.OrderFilter{SupplierID: caller.ID})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not load orders")
	}

	out := make([]SupplierView, 0, len(orders))
	for _, order := range orders {
		view := s.view(ctx, order)
		mine := order.SupplierItems(caller.ID)
		out = append(out, SupplierView{
			View:          view,
			SupplierItems: s.itemViews(ctx, mine),
			SupplierTotal: models.OrderTotal(mine),
		})
	}
	return out, nil
}

func (s *Service) ListAll(ctx context.Context, caller identity.Caller) ([]View, error) {
	if !caller.IsAdmin() {
		return nil, apperr.New(apperr.Forbidden, "Admin access required")
	}
	orders, err := s.orders.ListOrders(ctx, store.OrderFilter{})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not load orders")
	}
	return s.views(ctx, orders), nil
}

// SetDelivered is allowed for admins and for suppliers owning at least one
// line item. Payment state is not consulted.
func (s *Service) SetDelivered(ctx context.Context, caller identity.Caller, orderID primitive.ObjectID, delivered bool, expectedVersion *int64) (View, error) {
	return s.update(ctx, orderID, expectedVersion, func(order *models.Order) error {
		if !caller.IsAdmin() && !(caller.IsSupplier() && order.HasSupplier(caller.ID)) {
			return apperr.New(apperr.Forbidden, "Not authorized to update this order")
		}
		order.SetDelivered(delivered, s.now())
		return nil
	})
}

// SetStatus lets an admin set any status. The owner may only cancel an
// order that is still pending and unpaid.
func (s *Service) SetStatus(ctx context.Context, caller identity.Caller, orderID primitive.ObjectID, status string, expectedVersion *int64) (View, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.ValidOrderStatus(status) {
		return View{}, apperr.New(apperr.InvalidInput, "Invalid status")
	}

	return s.update(ctx, orderID, expectedVersion, func(order *models.Order) error {
		switch {
		case caller.IsAdmin():
		case caller.Owns(order.UserID):
			if status != models.StatusCancelled {
				return apperr.New(apperr.Forbidden, "Customers can only cancel their orders")
			}
			if order.Status != models.StatusPending || order.IsPaid {
				return apperr.New(apperr.InvalidState, "Only pending unpaid orders can be cancelled")
			}
		default:
			return apperr.New(apperr.Forbidden, "Not authorized to update this order")
		}

		order.Status = status
		if status == models.StatusDelivered && !order.IsDelivered {
			order.SetDelivered(true, s.now())
		}
		return nil
	})
}

func (s *Service) update(ctx context.Context, orderID primitive.ObjectID, expectedVersion *int64, apply func(*models.Order) error) (View, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return View{}, err
	}
	if err := apply(&order); err != nil {
		return View{}, err
	}
	if expectedVersion != nil && *expectedVersion != order.Version {
		return View{}, apperr.Newf(apperr.Conflict, "order has changed (version %d, expected %d)", order.Version, *expectedVersion)
	}

	order.UpdatedAt = s.now()
	if err := s.orders.UpdateOrder(ctx, &order); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return View{}, apperr.Wrap(apperr.Conflict, err, "order was modified concurrently, reload and retry")
		}
		return View{}, apperr.Wrap(apperr.Internal, err, "could not update order")
	}

	log.WithFields(log.Fields{
		"order":       order.ID.Hex(),
		"status":      order.Status,
		"isDelivered": order.IsDelivered,
	}).Info("[ORDER] order updated")
	return s.view(ctx, order), nil
}

func (s *Service) load(ctx context.Context, orderID primitive.ObjectID) (models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperr.New(apperr.NotFound, "Order not found")
	}
	if err != nil {
		return models.Order{}, apperr.Wrap(apperr.Internal, err, "could not load order")
	}
	return order, nil
}
