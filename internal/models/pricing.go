package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func IsOnSale(price float64, saleEnabled bool, salePrice float64) bool {
	return saleEnabled && salePrice > 0 && salePrice < price
}

func EffectivePrice(price float64, saleEnabled bool, salePrice float64) float64 {
	if IsOnSale(price, saleEnabled, salePrice) {
		return salePrice
	}
	return price
}

// ValidateSale checks a product's sale fields before it is written to the catalog.
func ValidateSale(p Product) error {
	if p.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if !p.SaleEnabled {
		return nil
	}
	if p.SalePrice <= 0 {
		return fmt.Errorf("salePrice must be greater than 0")
	}
	if p.SalePrice >= p.Price {
		return fmt.Errorf("salePrice must be less than price")
	}
	return nil
}

// LineTotal returns quantity × unitPrice without float drift.
func LineTotal(unitPrice float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
}

// OrderTotal sums the locked line prices of an order.
func OrderTotal(items []OrderItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineTotal(item.Price, item.Quantity))
	}
	return total.InexactFloat64()
}
