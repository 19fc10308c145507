package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"griya/internal/domain/entity"
	"griya/internal/domain/repository"
	"griya/pkg/errors"
	"griya/pkg/logger"
)

type firestoreAppointmentRepository struct {
	client *firestore.Client
}

func NewFirestoreAppointmentRepository(client *firestore.Client) repository.AppointmentRepository {
	return &firestoreAppointmentRepository{
		client: client,
	}
}

func (r *firestoreAppointmentRepository) Create(ctx context.Context, appointment *entity.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.New().String()
	}

	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	if appointment.Comments == nil {
		appointment.Comments = []entity.Comment{}
	}

	_, err := r.client.Collection("appointments").Doc(appointment.ID).Set(ctx, appointment)
	if err != nil {
		return errors.Internal("Failed to create appointment", err)
	}

	return nil
}

func (r *firestoreAppointmentRepository) GetByID(ctx context.Context, id string) (*entity.Appointment, error) {
	doc, err := r.client.Collection("appointments").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Appointment", err)
		}
		return nil, errors.Internal("Failed to get appointment", err)
	}

	var appointment entity.Appointment
	if err := doc.DataTo(&appointment); err != nil {
		return nil, errors.Internal("Failed to parse appointment data", err)
	}
	appointment.ID = doc.Ref.ID

	return &appointment, nil
}

// Mutate runs fn against the current document state inside a Firestore
// transaction, so comment-array edits are per-document atomic. Errors from
// fn abort the transaction and surface unchanged.
func (r *firestoreAppointmentRepository) Mutate(ctx context.Context, id string, fn func(*entity.Appointment) error) (*entity.Appointment, error) {
	docRef := r.client.Collection("appointments").Doc(id)

	var result entity.Appointment

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Appointment", err)
			}
			return errors.Internal("Failed to get appointment", err)
		}

		var appointment entity.Appointment
		if err := doc.DataTo(&appointment); err != nil {
			return errors.Internal("Failed to parse appointment data", err)
		}
		appointment.ID = doc.Ref.ID

		if err := fn(&appointment); err != nil {
			if err == repository.ErrNoChange {
				result = appointment
				return nil
			}
			return err
		}

		appointment.UpdatedAt = time.Now()
		if appointment.Comments == nil {
			appointment.Comments = []entity.Comment{}
		}

		if err := tx.Set(docRef, &appointment); err != nil {
			return errors.Internal("Failed to update appointment", err)
		}

		result = appointment
		return nil
	})
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.Internal("Appointment transaction failed", err)
	}

	return &result, nil
}

func (r *firestoreAppointmentRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Appointment, error) {
	var appointments []*entity.Appointment

	for _, field := range []string{"buyerId", "sellerId"} {
		query := r.client.Collection("appointments").Where(field, "==", userID)
		docs, err := query.Documents(ctx).GetAll()
		if err != nil {
			logger.Error("Firestore error while fetching appointments for user %s: %v", userID, err)
			return nil, errors.Internal("Failed to fetch appointments", err)
		}

		for _, doc := range docs {
			var appointment entity.Appointment
			if err := doc.DataTo(&appointment); err != nil {
				logger.Warn("Skipping malformed appointment %s: %v", doc.Ref.ID, err)
				continue
			}
			appointment.ID = doc.Ref.ID
			appointments = append(appointments, &appointment)
		}
	}

	return appointments, nil
}
