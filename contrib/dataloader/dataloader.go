// Package dataloader provides generic batching utilities on top of the
// generated repositories.
//
// The generated finders return rows in database order. Batch loaders
// (github.com/graph-gophers/dataloader/v7, github.com/vikstrous/dataloadgen,
// or hand-rolled ones) require results aligned with the requested keys;
// the helpers here reorder and group repository results accordingly.
//
// A batch function backed by a generated repository:
//
//	func userBatchFn(ctx context.Context, ids []int64) ([]*repo.User, []error) {
//	    users, err := loadUsers(ctx, client, ids) // any IN-style fetch
//	    if err != nil {
//	        return nil, []error{err}
//	    }
//	    return dataloader.OrderByKeys(ids, users, func(u *repo.User) int64 { return u.ID })
//	}
//
// Collection relationships group by the parent key:
//
//	posts, err := client.Post.FindAllByAuthorID(ctx, userID)
//	grouped := dataloader.GroupByKey(posts, func(p *repo.Post) int64 { return p.AuthorID })
package dataloader

import (
	"context"
	"errors"
)

// ErrNotFound is returned for keys with no entity in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads a batch of entities by their keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// OrderByKeys reorders entities to match the order of the requested keys.
// The result has the same length and order as keys; missing entities are
// zero values with ErrNotFound in the corresponding error slot.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// OrderByKeysNoError reorders entities to match the order of the requested
// keys, leaving zero values for missing entities. Use it when absence is
// acceptable, e.g. optional relationships.
func OrderByKeysNoError[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, _ := OrderByKeys(keys, values, keyFn)
	return result
}

// GroupByKey groups entities by a key function. Useful for one-to-many
// relationships where several entities share one foreign key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped entities to match the order of the
// requested keys: ordered[i] holds the group of keys[i], nil when empty.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// CachePrimer primes a loader cache with known values.
type CachePrimer[K comparable, V any] interface {
	Prime(key K, value V)
}

// PrimeMany primes multiple values into a cache. Useful after mutations.
func PrimeMany[K comparable, V any](cache CachePrimer[K, V], values []V, keyFn KeyFunc[K, V]) {
	for _, v := range values {
		cache.Prime(keyFn(v), v)
	}
}

// CacheClearer clears values from a loader cache.
type CacheClearer[K comparable] interface {
	Clear(key K)
}

// ClearMany clears multiple keys from a cache.
func ClearMany[K comparable](cache CacheClearer[K], keys []K) {
	for _, key := range keys {
		cache.Clear(key)
	}
}

// ctxKey is the context key holding the request loaders.
type ctxKey struct{}

// WithLoaders injects a loader bundle into the context, typically from
// request middleware:
//
//	ctx := dataloader.WithLoaders(r.Context(), &Loaders{
//	    User: NewUserLoader(client),
//	    Post: NewPostLoader(client),
//	})
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For extracts the loader bundle from the context. It returns the zero
// value when none was injected.
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}

// BatchResult pairs one loaded value with its per-key error.
type BatchResult[V any] struct {
	Value V
	Error error
}

// NewBatchResult creates a new BatchResult.
func NewBatchResult[V any](value V, err error) BatchResult[V] {
	return BatchResult[V]{Value: value, Error: err}
}

// Results zips separate value and error slices into a BatchResult slice.
func Results[V any](values []V, errs []error) []BatchResult[V] {
	results := make([]BatchResult[V], len(values))
	for i := range values {
		var err error
		if i < len(errs) {
			err = errs[i]
		}
		results[i] = BatchResult[V]{Value: values[i], Error: err}
	}
	return results
}
