package cache

import (
	"context"
	"errors"

	"farmersupply/internal/models"
)

var ErrCacheMiss = errors.New("cache miss")

// CartCache holds read-through copies of carts keyed by user id.
type CartCache interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Set(ctx context.Context, userID string, cart *models.Cart) error
	Delete(ctx context.Context, userID string) error
}

// Noop is used when no Redis address is configured. Every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.Cart, error) {
	return nil, ErrCacheMiss
}

func (Noop) Set(context.Context, string, *models.Cart) error {
	return nil
}

func (Noop) Delete(context.Context, string) error {
	return nil
}
