package repository

import (
	"context"

	"griya/internal/domain/entity"
)

// UserRepository is the read side of the external user-management
// collaborator. The chat/call core never mutates user documents.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
