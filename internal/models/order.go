package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

var orderStatuses = []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

func ValidOrderStatus(status string) bool {
	for _, s := range orderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// OrderItem represents a single product entry within an order.
// Name, supplier and price are copied from the catalog when the order is created.
type OrderItem struct {
	ProductID  primitive.ObjectID `bson:"product" json:"productId"`
	Name       string             `bson:"name" json:"name"`
	SupplierID primitive.ObjectID `bson:"supplier" json:"supplier"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	Price      float64            `bson:"price" json:"price"`
}

// Order defines the persisted order document.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"user" json:"user"`
	Items            []OrderItem        `bson:"items" json:"items"`
	TotalAmount      float64            `bson:"totalAmount" json:"totalAmount"`
	Status           string             `bson:"status" json:"status"`
	PaymentStatus    string             `bson:"paymentStatus" json:"paymentStatus"`
	IsPaid           bool               `bson:"isPaid" json:"isPaid"`
	PaidAt           *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	PaymentReference string             `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`
	IsDelivered      bool               `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt      *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	ShippingAddress  string             `bson:"shippingAddress" json:"shippingAddress"`
	Version          int64              `bson:"version" json:"version"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasSupplier reports whether at least one line item belongs to supplierID.
func (o *Order) HasSupplier(supplierID primitive.ObjectID) bool {
	for _, item := range o.Items {
		if item.SupplierID == supplierID {
			return true
		}
	}
	return false
}

// SupplierItems returns the line items owned by supplierID.
func (o *Order) SupplierItems(supplierID primitive.ObjectID) []OrderItem {
	items := make([]OrderItem, 0)
	for _, item := range o.Items {
		if item.SupplierID == supplierID {
			items = append(items, item)
		}
	}
	return items
}

// MarkPaid settles the payment and puts the order into processing, whatever
// status it held before. Paid and processing are always written together.
// PaidAt is only set the first time.
func (o *Order) MarkPaid(now time.Time) {
	o.PaymentStatus = PaymentPaid
	o.IsPaid = true
	if o.PaidAt == nil {
		o.PaidAt = &now
	}
	o.Status = StatusProcessing
}

// ApplyPaymentToken folds a gateway status token into the order and reports
// whether anything changed. A paid order is never downgraded, and a repeated
// success leaves its fulfillment status alone.
func (o *Order) ApplyPaymentToken(token string, now time.Time) bool {
	before := *o
	switch token {
	case "success", "successful":
		if !o.IsPaid {
			o.MarkPaid(now)
		}
	case "failed":
		if !o.IsPaid {
			o.PaymentStatus = PaymentFailed
		}
	default:
		if !o.IsPaid {
			o.PaymentStatus = PaymentPending
		}
	}
	return before.PaymentStatus != o.PaymentStatus ||
		before.Status != o.Status ||
		before.IsPaid != o.IsPaid ||
		(before.PaidAt == nil) != (o.PaidAt == nil)
}

// SetDelivered records the delivery flag and its timestamp.
func (o *Order) SetDelivered(delivered bool, now time.Time) {
	o.IsDelivered = delivered
	if delivered {
		o.DeliveredAt = &now
		o.Status = StatusDelivered
		return
	}
	o.DeliveredAt = nil
}
