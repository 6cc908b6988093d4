package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64            `bson:"price" json:"price"`
	SaleEnabled bool               `bson:"saleEnabled" json:"saleEnabled"`
	SalePrice   float64            `bson:"salePrice" json:"salePrice"`
	IsOnSale    bool               `bson:"-" json:"isOnSale"`
	Category    StringList         `bson:"category" json:"category"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	SupplierID  primitive.ObjectID `bson:"supplier" json:"supplier"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// UnitPrice is the price a buyer pays for one unit right now.
func (p Product) UnitPrice() float64 {
	return EffectivePrice(p.Price, p.SaleEnabled, p.SalePrice)
}

// Normalize fills the derived fields that are never persisted.
func (p *Product) Normalize() {
	p.IsOnSale = IsOnSale(p.Price, p.SaleEnabled, p.SalePrice)
	if p.Category == nil {
		p.Category = StringList{}
	}
}
