package repository

import (
	"context"

	"griya/internal/domain/entity"
)

type CallHistoryRepository interface {
	Create(ctx context.Context, record *entity.CallHistory) error
	GetByID(ctx context.Context, id string) (*entity.CallHistory, error)
	Update(ctx context.Context, record *entity.CallHistory) error

	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.CallHistory, int64, error)
	ListByAppointment(ctx context.Context, appointmentID string) ([]*entity.CallHistory, error)
	Stats(ctx context.Context) (*entity.CallStats, error)
}
