package order

import (
	"context"

	log "github.com/sirupsen/logrus"

	"farmersupply/internal/models"
)

// ItemView is a locked order line plus the product as the catalog shows it now.
type ItemView struct {
	models.OrderItem
	Product *models.Product `json:"product,omitempty"`
}

// View shadows the stored items with catalog-resolved ones.
type View struct {
	models.Order
	Items []ItemView `json:"items"`
}

type SupplierView struct {
	View
	SupplierItems []ItemView `json:"supplierItems"`
	SupplierTotal float64    `json:"supplierTotal"`
}

func (s *Service) view(ctx context.Context, order models.Order) View {
	return View{Order: order, Items: s.itemViews(ctx, order.Items)}
}

func (s *Service) views(ctx context.Context, orders []models.Order) []View {
	out := make([]View, 0, len(orders))
	for _, order := range orders {
		out = append(out, s.view(ctx, order))
	}
	return out
}

// itemViews never fails: display data is best effort, the locked line is authoritative.
func (s *Service) itemViews(ctx context.Context, items []models.OrderItem) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, item := range items {
		view := ItemView{OrderItem: item}
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err == nil {
			view.Product = &product
		} else {
			log.WithError(err).WithField("product", item.ProductID.Hex()).Debug("[ORDER] product not resolved for display")
		}
		out = append(out, view)
	}
	return out
}
