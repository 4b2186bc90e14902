package repository

import (
	"context"

	"github.com/smallbiznis/opsalert/pkg/db/option"
)

// Repository is the narrow store contract the engine depends on: filtered
// reads, single-row lookup and batch insert.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
