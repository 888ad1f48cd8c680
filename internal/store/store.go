package store

import (
	"context"
	"errors"

	"pedidos/internal/model"
)

var (
	ErrNotFound    = errors.New("order not found")
	ErrDuplicateID = errors.New("order id already exists")
)

// OrderStore holds one collection of orders (active or saved).
type OrderStore interface {
	// List returns every order, newest timestamp first.
	List(ctx context.Context) ([]model.Order, error)
	Get(ctx context.Context, id string) (model.Order, error)
	Append(ctx context.Context, o model.Order) error
	Remove(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	// UpdateFields merges p and recomputes the total.
	UpdateFields(ctx context.Context, id string, p model.OrderPatch) (model.Order, error)
	Count(ctx context.Context) (int, error)
}
