package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"griya/internal/domain/entity"
	"griya/internal/domain/repository"
	"griya/pkg/errors"
)

type firestoreCallHistoryRepository struct {
	client *firestore.Client
}

func NewFirestoreCallHistoryRepository(client *firestore.Client) repository.CallHistoryRepository {
	return &firestoreCallHistoryRepository{
		client: client,
	}
}

func (r *firestoreCallHistoryRepository) Create(ctx context.Context, record *entity.CallHistory) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.client.Collection("call_history").Doc(record.ID).Set(ctx, record)
	if err != nil {
		return errors.Internal("Failed to create call history", err)
	}

	return nil
}

func (r *firestoreCallHistoryRepository) GetByID(ctx context.Context, id string) (*entity.CallHistory, error) {
	doc, err := r.client.Collection("call_history").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Call history", err)
		}
		return nil, errors.Internal("Failed to get call history", err)
	}

	var record entity.CallHistory
	if err := doc.DataTo(&record); err != nil {
		return nil, errors.Internal("Failed to parse call history data", err)
	}
	record.ID = doc.Ref.ID

	return &record, nil
}

func (r *firestoreCallHistoryRepository) Update(ctx context.Context, record *entity.CallHistory) error {
	record.UpdatedAt = time.Now()

	_, err := r.client.Collection("call_history").Doc(record.ID).Set(ctx, record)
	if err != nil {
		return errors.Internal("Failed to update call history", err)
	}

	return nil
}

func (r *firestoreCallHistoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.CallHistory, int64, error) {
	var records []*entity.CallHistory

	for _, field := range []string{"callerId", "receiverId"} {
		docs, err := r.client.Collection("call_history").Where(field, "==", userID).Documents(ctx).GetAll()
		if err != nil {
			return nil, 0, errors.Internal("Failed to fetch call history", err)
		}

		for _, doc := range docs {
			var record entity.CallHistory
			if err := doc.DataTo(&record); err != nil {
				continue
			}
			record.ID = doc.Ref.ID
			records = append(records, &record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].InitiatedAt.After(records[j].InitiatedAt)
	})

	total := int64(len(records))

	if offset >= len(records) {
		return []*entity.CallHistory{}, total, nil
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}

	return records[offset:end], total, nil
}

func (r *firestoreCallHistoryRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]*entity.CallHistory, error) {
	docs, err := r.client.Collection("call_history").Where("appointmentId", "==", appointmentID).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to fetch call history", err)
	}

	records := make([]*entity.CallHistory, 0, len(docs))
	for _, doc := range docs {
		var record entity.CallHistory
		if err := doc.DataTo(&record); err != nil {
			continue
		}
		record.ID = doc.Ref.ID
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].InitiatedAt.After(records[j].InitiatedAt)
	})

	return records, nil
}

func (r *firestoreCallHistoryRepository) Stats(ctx context.Context) (*entity.CallStats, error) {
	docs, err := r.client.Collection("call_history").Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to fetch call history", err)
	}

	stats := &entity.CallStats{
		ByStatus: make(map[string]int64),
	}

	var connected int64
	for _, doc := range docs {
		var record entity.CallHistory
		if err := doc.DataTo(&record); err != nil {
			continue
		}

		stats.Total++
		stats.ByStatus[record.Status]++
		if record.Duration > 0 {
			stats.TotalDuration += record.Duration
			connected++
		}
	}

	if connected > 0 {
		stats.AverageDuration = float64(stats.TotalDuration) / float64(connected)
	}

	return stats, nil
}
