package repository

import (
	"context"
	"errors"

	"griya/internal/domain/entity"
)

// ErrNoChange signals from a Mutate fn that the document is already in the
// desired state. The write is skipped and Mutate returns the current
// document with no error.
var ErrNoChange = errors.New("no change")

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entity.Appointment) error
	GetByID(ctx context.Context, id string) (*entity.Appointment, error)

	// Mutate applies fn to the appointment inside a single-document
	// read-modify-write transaction and returns the stored result. An
	// error returned by fn aborts the write and is propagated unchanged,
	// except ErrNoChange which skips the write and succeeds.
	Mutate(ctx context.Context, id string, fn func(*entity.Appointment) error) (*entity.Appointment, error)

	ListByParticipant(ctx context.Context, userID string) ([]*entity.Appointment, error)
}
