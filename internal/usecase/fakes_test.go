package usecase

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"griya/internal/domain/entity"
	"griya/internal/domain/repository"
	"griya/internal/infrastructure/notification"
	ws "griya/internal/infrastructure/websocket"
	"griya/pkg/errors"
)

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[string]*entity.Appointment
	writes       int
}

func newFakeAppointmentRepo(appointments ...*entity.Appointment) *fakeAppointmentRepo {
	repo := &fakeAppointmentRepo{appointments: make(map[string]*entity.Appointment)}
	for _, a := range appointments {
		repo.appointments[a.ID] = a
	}
	return repo
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, appointment *entity.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if appointment.ID == "" {
		appointment.ID = uuid.New().String()
	}
	r.appointments[appointment.ID] = appointment
	return nil
}

func (r *fakeAppointmentRepo) GetByID(ctx context.Context, id string) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appointments[id]
	if !ok {
		return nil, errors.NotFound("Appointment", nil)
	}
	clone := *stored
	clone.Comments = append([]entity.Comment(nil), stored.Comments...)
	return &clone, nil
}

func (r *fakeAppointmentRepo) Mutate(ctx context.Context, id string, fn func(*entity.Appointment) error) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appointments[id]
	if !ok {
		return nil, errors.NotFound("Appointment", nil)
	}
	clone := *stored
	clone.Comments = append([]entity.Comment(nil), stored.Comments...)
	if err := fn(&clone); err != nil {
		if err == repository.ErrNoChange {
			return &clone, nil
		}
		return nil, err
	}
	r.appointments[id] = &clone
	r.writes++
	return &clone, nil
}

func (r *fakeAppointmentRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *fakeAppointmentRepo) ListByParticipant(ctx context.Context, userID string) ([]*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.Appointment
	for _, a := range r.appointments {
		if a.IsParticipant(userID) {
			clone := *a
			clone.Comments = append([]entity.Comment(nil), a.Comments...)
			result = append(result, &clone)
		}
	}
	return result, nil
}

type fakeUserRepo struct {
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

type fakeListingRepo struct {
	listings map[string]*entity.Listing
}

func newFakeListingRepo(listings ...*entity.Listing) *fakeListingRepo {
	repo := &fakeListingRepo{listings: make(map[string]*entity.Listing)}
	for _, l := range listings {
		repo.listings[l.ID] = l
	}
	return repo
}

func (r *fakeListingRepo) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	listing, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	return listing, nil
}

type fakeCallHistoryRepo struct {
	mu          sync.Mutex
	records     map[string]*entity.CallHistory
	failUpdates bool
}

func newFakeCallHistoryRepo() *fakeCallHistoryRepo {
	return &fakeCallHistoryRepo{records: make(map[string]*entity.CallHistory)}
}

func (r *fakeCallHistoryRepo) Create(ctx context.Context, record *entity.CallHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.records[record.ID] = &clone
	return nil
}

func (r *fakeCallHistoryRepo) GetByID(ctx context.Context, id string) (*entity.CallHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, errors.NotFound("Call history", nil)
	}
	clone := *record
	return &clone, nil
}

func (r *fakeCallHistoryRepo) Update(ctx context.Context, record *entity.CallHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdates {
		return errors.Internal("Call history update failed", nil)
	}
	if _, ok := r.records[record.ID]; !ok {
		return errors.NotFound("Call history", nil)
	}
	clone := *record
	r.records[record.ID] = &clone
	return nil
}

func (r *fakeCallHistoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.CallHistory, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.CallHistory
	for _, record := range r.records {
		if record.CallerID == userID || record.ReceiverID == userID {
			clone := *record
			result = append(result, &clone)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeCallHistoryRepo) ListByAppointment(ctx context.Context, appointmentID string) ([]*entity.CallHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.CallHistory
	for _, record := range r.records {
		if record.AppointmentID == appointmentID {
			clone := *record
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *fakeCallHistoryRepo) Stats(ctx context.Context) (*entity.CallStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &entity.CallStats{ByStatus: make(map[string]int64)}
	for _, record := range r.records {
		stats.Total++
		stats.ByStatus[record.Status]++
		stats.TotalDuration += record.Duration
	}
	return stats, nil
}

type sentEvent struct {
	Method string // socket | user | room | all
	Target string
	Event  string
	Data   interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{}
}

func (b *fakeBroadcaster) SendToSocket(socketID string, event string, data interface{}) bool {
	b.record(sentEvent{Method: "socket", Target: socketID, Event: event, Data: data})
	return true
}

func (b *fakeBroadcaster) SendToUser(userID string, event string, data interface{}) {
	b.record(sentEvent{Method: "user", Target: userID, Event: event, Data: data})
}

func (b *fakeBroadcaster) BroadcastToRoom(room ws.Room, event string, data interface{}, exceptSocketID string) {
	b.record(sentEvent{Method: "room", Target: room.String(), Event: event, Data: data})
}

func (b *fakeBroadcaster) BroadcastAll(event string, data interface{}) {
	b.record(sentEvent{Method: "all", Event: event, Data: data})
}

func (b *fakeBroadcaster) record(event sentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBroadcaster) eventsNamed(name string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []sentEvent
	for _, event := range b.events {
		if event.Event == name {
			matched = append(matched, event)
		}
	}
	return matched
}

func (b *fakeBroadcaster) eventsForTarget(target string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []sentEvent
	for _, event := range b.events {
		if event.Target == target {
			matched = append(matched, event)
		}
	}
	return matched
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (n *fakeNotifier) Dispatch(ctx context.Context, event notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) Close() error {
	return nil
}

func (n *fakeNotifier) eventsNamed(name string) []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var matched []notification.Event
	for _, event := range n.events {
		if event.Type == name {
			matched = append(matched, event)
		}
	}
	return matched
}
