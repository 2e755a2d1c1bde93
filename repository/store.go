package repository

import (
	"context"

	"pricewatch/models"
)

// UpdateFunc receives the current collection and returns the one to persist.
// Returning an error aborts the write.
type UpdateFunc func(items []models.TrackedItem) ([]models.TrackedItem, error)

// Store is the tracked-item collection, rewritten atomically as a whole.
type Store interface {
	LoadAll(ctx context.Context) ([]models.TrackedItem, error)
	SaveAll(ctx context.Context, items []models.TrackedItem) error
	// Update runs a load-modify-save cycle under the store's write lock.
	Update(ctx context.Context, fn UpdateFunc) error
}

// AddItem appends item to the store.
func AddItem(ctx context.Context, store Store, item models.TrackedItem) error {
	return store.Update(ctx, func(items []models.TrackedItem) ([]models.TrackedItem, error) {
		return append(items, item), nil
	})
}

// DeleteItem removes the item with the given id, or returns models.ErrNotFound.
func DeleteItem(ctx context.Context, store Store, id string) error {
	return store.Update(ctx, func(items []models.TrackedItem) ([]models.TrackedItem, error) {
		kept := make([]models.TrackedItem, 0, len(items))
		for _, item := range items {
			if item.ID != id {
				kept = append(kept, item)
			}
		}
		if len(kept) == len(items) {
			return nil, models.ErrNotFound
		}
		return kept, nil
	})
}
