package repository

import (
	"context"

	"griya/internal/domain/entity"
)

// ListingRepository resolves the property a given appointment refers to.
// Listing CRUD and search belong to another service.
type ListingRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
}
