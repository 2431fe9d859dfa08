package repository

import (
	"context"

	"github.com/smallbiznis/rentflow/pkg/db/option"
)

// Repository is a thin generic store for rows that need no hand-written SQL.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	Create(ctx context.Context, resource *T) error
	Delete(ctx context.Context, resourceID any) error
}
