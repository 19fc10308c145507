package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"griya/internal/domain/entity"
	"griya/internal/domain/repository"
	"griya/internal/infrastructure/notification"
	"griya/pkg/errors"
	"griya/pkg/logger"
)

const (
	defaultMissedCallTimeout = 30 * time.Second

	// How long an unanswered ring is re-surfaced to a receiver who comes
	// online mid-ring.
	ringResurfaceWindow = 5 * time.Minute
)

// callSession is the in-memory state of one live call. It exists only
// between initiate and the terminal transition; the durable record lives in
// the call history collection.
type callSession struct {
	ID            string
	AppointmentID string
	CallerID      string
	ReceiverID    string
	CallType      string
	Status        string

	CallerSocketID   string
	ReceiverSocketID string

	InitiatedAt time.Time
	StartTime   time.Time

	// Signaling sent before the receiver accepts is buffered: a single
	// offer slot (later offers overwrite) and an ordered candidate queue,
	// both flushed right after call-accepted.
	pendingOffer      json.RawMessage
	pendingCandidates []json.RawMessage

	monitors map[string]bool // admin socket IDs

	missedTimer *time.Timer
}

type CallUseCase struct {
	mu       sync.Mutex
	sessions map[string]*callSession
	byUser   map[string]string // user ID -> active call ID

	appointmentRepo repository.AppointmentRepository
	historyRepo     repository.CallHistoryRepository
	userRepo        repository.UserRepository
	broadcaster     Broadcaster
	notifier        notification.Dispatcher

	// MissedCallTimeout is how long a ring may go unanswered. Overridable
	// in tests.
	MissedCallTimeout time.Duration
}

func NewCallUseCase(
	appointmentRepo repository.AppointmentRepository,
	historyRepo repository.CallHistoryRepository,
	userRepo repository.UserRepository,
	broadcaster Broadcaster,
	notifier notification.Dispatcher,
) *CallUseCase {
	return &CallUseCase{
		sessions:          make(map[string]*callSession),
		byUser:            make(map[string]string),
		appointmentRepo:   appointmentRepo,
		historyRepo:       historyRepo,
		userRepo:          userRepo,
		broadcaster:       broadcaster,
		notifier:          notifier,
		MissedCallTimeout: defaultMissedCallTimeout,
	}
}

type InitiateCallInput struct {
	AppointmentID  string
	CallerID       string
	CallerSocketID string
	CallType       string
}

func (uc *CallUseCase) Initiate(ctx context.Context, input InitiateCallInput) (*entity.CallHistory, error) {
	if input.CallType != entity.CallTypeAudio && input.CallType != entity.CallTypeVideo {
		return nil, errors.BadRequest("Unknown call type", nil)
	}

	appointment, err := uc.appointmentRepo.GetByID(ctx, input.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !appointment.IsParticipant(input.CallerID) {
		return nil, errors.Forbidden("You don't have access to this appointment", nil)
	}
	receiverID := appointment.OtherParticipant(input.CallerID)

	uc.mu.Lock()
	if _, busy := uc.byUser[input.CallerID]; busy {
		uc.mu.Unlock()
		return nil, errors.Busy("You are already in another call")
	}
	if _, busy := uc.byUser[receiverID]; busy {
		uc.mu.Unlock()
		return nil, errors.Busy("User is currently in another call")
	}

	now := time.Now()
	session := &callSession{
		ID:             uuid.New().String(),
		AppointmentID:  input.AppointmentID,
		CallerID:       input.CallerID,
		ReceiverID:     receiverID,
		CallType:       input.CallType,
		Status:         entity.CallStatusRinging,
		CallerSocketID: input.CallerSocketID,
		InitiatedAt:    now,
		monitors:       make(map[string]bool),
	}
	session.missedTimer = time.AfterFunc(uc.MissedCallTimeout, func() {
		uc.handleMissedTimeout(session.ID)
	})
	uc.sessions[session.ID] = session
	uc.byUser[input.CallerID] = session.ID
	uc.byUser[receiverID] = session.ID
	uc.mu.Unlock()

	record := &entity.CallHistory{
		ID:            session.ID,
		AppointmentID: input.AppointmentID,
		CallerID:      input.CallerID,
		ReceiverID:    receiverID,
		CallType:      input.CallType,
		Status:        entity.CallStatusInitiated,
		InitiatedAt:   now,
	}
	if err := uc.historyRepo.Create(ctx, record); err != nil {
		uc.removeSession(session.ID)
		return nil, err
	}

	payload := map[string]interface{}{
		"callId":        session.ID,
		"appointmentId": input.AppointmentID,
		"callerId":      input.CallerID,
		"receiverId":    receiverID,
		"callType":      input.CallType,
		"initiatedAt":   now,
	}
	uc.broadcaster.SendToUser(receiverID, "incoming-call", payload)
	uc.broadcaster.SendToSocket(input.CallerSocketID, "call-initiated", payload)

	uc.notifier.Dispatch(ctx, notification.Event{
		Type:          notification.EventCallInitiated,
		CallID:        session.ID,
		AppointmentID: input.AppointmentID,
		CallerID:      input.CallerID,
		ReceiverID:    receiverID,
		CallType:      input.CallType,
		Timestamp:     now,
	})

	return record, nil
}

func (uc *CallUseCase) handleMissedTimeout(callID string) {
	uc.mu.Lock()
	session, ok := uc.sessions[callID]
	if !ok || session.Status == entity.CallStatusAccepted {
		uc.mu.Unlock()
		return
	}
	uc.dropSessionLocked(session)
	uc.mu.Unlock()

	ctx := context.Background()
	if err := uc.finalizeHistory(ctx, callID, entity.CallStatusMissed, "", nil); err != nil {
		logger.Error("Failed to persist missed state for call %s: %v", callID, err)
	}

	payload := map[string]interface{}{
		"callId":        callID,
		"appointmentId": session.AppointmentID,
	}
	uc.broadcaster.SendToUser(session.CallerID, "call-missed", payload)
	uc.broadcaster.SendToUser(session.ReceiverID, "call-missed", payload)

	uc.notifier.Dispatch(ctx, notification.Event{
		Type:          notification.EventCallMissed,
		CallID:        callID,
		AppointmentID: session.AppointmentID,
		CallerID:      session.CallerID,
		ReceiverID:    session.ReceiverID,
		CallType:      session.CallType,
		Timestamp:     time.Now(),
	})
}

// Accept transitions the call to accepted, stamps the shared start time and
// flushes any buffered signaling to the receiver.
func (uc *CallUseCase) Accept(ctx context.Context, callID, userID, socketID string) error {
	uc.mu.Lock()
	session, ok := uc.sessions[callID]
	if !ok {
		uc.mu.Unlock()
		return errors.NotFound("Call", nil)
	}
	if session.ReceiverID != userID {
		uc.mu.Unlock()
		return errors.Forbidden("Only the call receiver can accept", nil)
	}
	if session.Status != entity.CallStatusRinging {
		uc.mu.Unlock()
		return errors.BadRequest("Call is not ringing", nil)
	}

	session.missedTimer.Stop()
	session.Status = entity.CallStatusAccepted
	session.ReceiverSocketID = socketID
	session.StartTime = time.Now()

	startTime := session.StartTime
	callerSocket := session.CallerSocketID
	offer := session.pendingOffer
	candidates := session.pendingCandidates
	session.pendingOffer = nil
	session.pendingCandidates = nil
	uc.mu.Unlock()

	persistErr := uc.updateHistory(ctx, callID, func(record *entity.CallHistory) {
		record.Status = entity.CallStatusAccepted
		record.StartTime = &startTime
	})

	// Both ends compute elapsed duration from this one timestamp.
	payload := map[string]interface{}{
		"callId":    callID,
		"startTime": startTime,
	}
	uc.broadcaster.SendToSocket(callerSocket, "call-accepted", payload)
	uc.broadcaster.SendToSocket(socketID, "call-accepted", payload)

	if offer != nil {
		uc.broadcaster.SendToSocket(socketID, "webrtc-offer", map[string]interface{}{
			"callId": callID,
			"signal": offer,
		})
	}
	for _, candidate := range candidates {
		uc.broadcaster.SendToSocket(socketID, "ice-candidate", map[string]interface{}{
			"callId": callID,
			"signal": candidate,
		})
	}

	return persistErr
}

func (uc *CallUseCase) Reject(ctx context.Context, callID, userID string) error {
	uc.mu.Lock()
	session, ok := uc.sessions[callID]
	if !ok {
		uc.mu.Unlock()
		return errors.NotFound("Call", nil)
	}
	if session.ReceiverID != userID {
		uc.mu.Unlock()
		return errors.Forbidden("Only the call receiver can reject", nil)
	}
	if session.Status != entity.CallStatusRinging {
		uc.mu.Unlock()
		return errors.BadRequest("Call is not ringing", nil)
	}
	uc.dropSessionLocked(session)
	uc.mu.Unlock()

	persistErr := uc.finalizeHistory(ctx, callID, entity.CallStatusRejected, userID, nil)

	uc.broadcaster.SendToUser(session.CallerID, "call-rejected", map[string]interface{}{
		"callId":        callID,
		"appointmentId": session.AppointmentID,
	})

	return persistErr
}

func (uc *CallUseCase) Cancel(ctx context.Context, callID, userID string) error {
	uc.mu.Lock()
	session, ok := uc.sessions[callID]
	if !ok {
		uc.mu.Unlock()
		return errors.NotFound("Call", nil)
	}
	if session.CallerID != userID {
		uc.mu.Unlock()
		return errors.Forbidden("Only the caller can cancel", nil)
	}
	if session.Status == entity.CallStatusAccepted {
		uc.mu.Unlock()
		return errors.BadRequest("Cannot cancel an accepted call", nil)
	}
	uc.dropSessionLocked(session)
	uc.mu.Unlock()

	persistErr := uc.finalizeHistory(ctx, callID, entity.CallStatusCancelled, userID, nil)

	uc.broadcaster.SendToUser(session.ReceiverID, "call-cancelled", map[string]interface{}{
		"callId":        callID,
		"appointmentId": session.AppointmentID,
	})

	return persistErr
}

// End terminates an accepted call. Participants and admins may end; a call
// that is already gone is a no-op, so both sides hanging up at once never
// errors.
func (uc *CallUseCase) End(ctx context.Context, callID, userID string) error {
	uc.mu.Lock()
	session, ok := uc.sessions[callID]
	if !ok {
		uc.mu.Unlock()
		return nil
	}
	if session.CallerID != userID && session.ReceiverID != userID {
		uc.mu.Unlock()
		user, err := uc.userRepo.GetByID(ctx, userID)
		if err != nil || !user.IsAdmin() {
			return errors.Forbidden("You are not part of this call", nil)
		}
		uc.mu.Lock()
		if session, ok = uc.sessions[callID]; !ok {
			uc.mu.Unlock()
			return nil
		}
	}
	uc.dropSessionLocked(session)
	monitors := monitorSocketIDs(session)
	uc.mu.Unlock()

	duration := sessionDuration(session)
	persistErr := uc.finalizeHistory(ctx, callID, entity.CallStatusEnded, userID, &duration)

	payload := map[string]interface{}{
		"callId":        callID,
		"appointmentId": session.AppointmentID,
		"endedBy":       userID,
		"duration":      duration,
	}
	uc.broadcaster.SendToUser(session.CallerID, "call-ended", payload)
	uc.broadcaster.SendToUser(session.ReceiverID, "call-ended", payload)
	for _, monitorSocket := range monitors {
		uc.broadcaster.SendToSocket(monitorSocket, "call-ended", payload)
	}

	uc.notifier.Dispatch(ctx, notification.Event{
		Type:          notification.EventCallEnded,
		CallID:        callID,
		AppointmentID: session.AppointmentID,
		CallerID:      session.CallerID,
		ReceiverID:    session.ReceiverID,
		CallType:      session.CallType,
		Duration:      duration,
		Timestamp:     time.Now(),
	})

	return persistErr
}

// ForceEnd lets an admin terminate a live call. The reason is appended to
// the call record's audit notes with a timestamp; an empty reason falls
// back to a generic policy note.
func (uc *CallUseCase) ForceEnd(ctx context.Context, callID, adminID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "terminated by admin for policy violation"
	}

	admin, err := uc.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin.IsAdmin() {
		return errors.Forbidden("Admin access required", nil)
	}

	uc.mu.Lock()
	session, ok := uc.sessions[callID]
	if !ok {
		uc.mu.Unlock()
		return errors.NotFound("Call", nil)
	}
	uc.dropSessionLocked(session)
	monitors := monitorSocketIDs(session)
	uc.mu.Unlock()

	duration := sessionDuration(session)
	note := fmt.Sprintf("[%s] force-ended by %s: %s", time.Now().Format(time.RFC3339), adminID, reason)
	persistErr := uc.updateHistory(ctx, callID, func(record *entity.CallHistory) {
		now := time.Now()
		record.Status = entity.CallStatusEnded
		record.EndTime = &now
		record.EndedBy = adminID
		record.Duration = duration
		if record.AdminNotes != "" {
			record.AdminNotes += "\n"
		}
		record.AdminNotes += note
	})

	payload := map[string]interface{}{
		"callId":        callID,
		"appointmentId": session.AppointmentID,
		"endedBy":       adminID,
		"forceEnded":    true,
		"reason":        reason,
		"duration":      duration,
	}
	uc.broadcaster.SendToUser(session.CallerID, "call-ended", payload)
	uc.broadcaster.SendToUser(session.ReceiverID, "call-ended", payload)
	for _, monitorSocket := range monitors {
		uc.broadcaster.SendToSocket(monitorSocket, "call-ended", payload)
	}

	uc.notifier.Dispatch(ctx, notification.Event{
		Type:          notification.EventCallForceEnded,
		CallID:        callID,
		AppointmentID: session.AppointmentID,
		CallerID:      session.CallerID,
		ReceiverID:    session.ReceiverID,
		CallType:      session.CallType,
		Reason:        reason,
		Duration:      duration,
		Timestamp:     time.Now(),
	})

	return persistErr
}

type SignalInput struct {
	CallID   string
	UserID   string
	SocketID string
	Event    string // webrtc-offer | webrtc-answer | ice-candidate
	Payload  json.RawMessage
}

// Signal relays WebRTC negotiation between the two participants. Offers
// may only come from the caller and answers only from the receiver; ICE
// candidates flow both ways. Pre-accept signaling from the caller is
// buffered and flushed on accept.
func (uc *CallUseCase) Signal(ctx context.Context, input SignalInput) error {
	uc.mu.Lock()
	session, ok := uc.sessions[input.CallID]
	if !ok {
		uc.mu.Unlock()
		return errors.NotFound("Call", nil)
	}

	fromCaller := input.UserID == session.CallerID
	fromReceiver := input.UserID == session.ReceiverID
	if !fromCaller && !fromReceiver {
		uc.mu.Unlock()
		return errors.Forbidden("You are not part of this call", nil)
	}

	switch input.Event {
	case "webrtc-offer":
		if !fromCaller {
			uc.mu.Unlock()
			return errors.BadRequest("Only the caller sends the offer", nil)
		}
	case "webrtc-answer":
		if !fromReceiver {
			uc.mu.Unlock()
			return errors.BadRequest("Only the receiver sends the answer", nil)
		}
	case "ice-candidate":
	default:
		uc.mu.Unlock()
		return errors.BadRequest("Unknown signaling event", nil)
	}

	// Keep participant sockets current: signaling frames carry the
	// freshest socket for each side.
	if fromCaller {
		session.CallerSocketID = input.SocketID
	} else {
		session.ReceiverSocketID = input.SocketID
	}

	if session.Status != entity.CallStatusAccepted {
		if input.Event == "webrtc-answer" {
			uc.mu.Unlock()
			return errors.BadRequest("Call has not been accepted yet", nil)
		}
		if fromCaller {
			switch input.Event {
			case "webrtc-offer":
				session.pendingOffer = input.Payload
			case "ice-candidate":
				session.pendingCandidates = append(session.pendingCandidates, input.Payload)
			}
			uc.mu.Unlock()
			return nil
		}
		// Only caller frames wait for the accept flush; the caller transport
		// is already attached, so receiver candidates relay straight through.
		callerSocket := session.CallerSocketID
		uc.mu.Unlock()
		uc.broadcaster.SendToSocket(callerSocket, input.Event, map[string]interface{}{
			"callId": input.CallID,
			"signal": input.Payload,
		})
		return nil
	}

	targetSocket := session.ReceiverSocketID
	if fromReceiver {
		targetSocket = session.CallerSocketID
	}
	uc.mu.Unlock()

	uc.broadcaster.SendToSocket(targetSocket, input.Event, map[string]interface{}{
		"callId": input.CallID,
		"signal": input.Payload,
	})

	return nil
}

// MonitorJoin attaches an admin socket as a silent observer. The call must
// be accepted with both participant transports live, otherwise there is
// nothing to bridge to.
func (uc *CallUseCase) MonitorJoin(ctx context.Context, callID, adminID, adminSocketID string) error {
	admin, err := uc.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin.IsAdmin() {
		return errors.Forbidden("Admin access required", nil)
	}

	uc.mu.Lock()
	session, ok := uc.sessions[callID]
	if !ok {
		uc.mu.Unlock()
		return errors.NotFound("Call", nil)
	}
	if session.Status != entity.CallStatusAccepted || session.CallerSocketID == "" || session.ReceiverSocketID == "" {
		uc.mu.Unlock()
		return errors.BadRequest("Call is not in progress", nil)
	}
	session.monitors[adminSocketID] = true
	callerSocket := session.CallerSocketID
	receiverSocket := session.ReceiverSocketID
	info := map[string]interface{}{
		"callId":        session.ID,
		"appointmentId": session.AppointmentID,
		"callerId":      session.CallerID,
		"receiverId":    session.ReceiverID,
		"callType":      session.CallType,
		"startTime":     session.StartTime,
	}
	uc.mu.Unlock()

	uc.broadcaster.SendToSocket(adminSocketID, "admin-monitor-started", info)

	// Each participant opens a separate one-way peer connection toward the
	// monitor, negotiated over the -monitor event variants.
	for role, socketID := range map[string]string{"caller": callerSocket, "receiver": receiverSocket} {
		uc.broadcaster.SendToSocket(socketID, "admin-monitor-request", map[string]interface{}{
			"callId":        callID,
			"adminSocketId": adminSocketID,
			"role":          role,
		})
	}

	return nil
}

type MonitorSignalInput struct {
	CallID        string
	SocketID      string // sender socket
	AdminSocketID string
	Role          string // caller | receiver
	Event         string // webrtc-offer | webrtc-answer | ice-candidate
	Payload       json.RawMessage
}

// MonitorSignal relays negotiation for a monitor leg. Frames are addressed
// by (call, admin socket, participant role): a frame from a participant
// goes to the admin socket, a frame from the monitor goes to the
// participant holding the given role.
func (uc *CallUseCase) MonitorSignal(ctx context.Context, input MonitorSignalInput) error {
	if input.Role != "caller" && input.Role != "receiver" {
		return errors.BadRequest("Unknown monitor role", nil)
	}

	uc.mu.Lock()
	session, ok := uc.sessions[input.CallID]
	if !ok {
		uc.mu.Unlock()
		return errors.NotFound("Call", nil)
	}
	if !session.monitors[input.AdminSocketID] {
		uc.mu.Unlock()
		return errors.BadRequest("No such monitor on this call", nil)
	}

	var targetSocket string
	if session.monitors[input.SocketID] {
		// Monitor -> participant leg.
		if input.Role == "caller" {
			targetSocket = session.CallerSocketID
		} else {
			targetSocket = session.ReceiverSocketID
		}
	} else {
		// Participant -> monitor leg.
		if input.SocketID != session.CallerSocketID && input.SocketID != session.ReceiverSocketID {
			uc.mu.Unlock()
			return errors.Forbidden("You are not part of this call", nil)
		}
		targetSocket = input.AdminSocketID
	}
	uc.mu.Unlock()

	uc.broadcaster.SendToSocket(targetSocket, input.Event+"-monitor", map[string]interface{}{
		"callId":        input.CallID,
		"adminSocketId": input.AdminSocketID,
		"role":          input.Role,
		"signal":        input.Payload,
	})

	return nil
}

// HandleDisconnect cleans up after a socket vanishes: a participant
// transport dropping mid-call is an implicit end, a monitor dropping just
// leaves the monitor set.
func (uc *CallUseCase) HandleDisconnect(socketID, userID string) {
	uc.mu.Lock()
	var affected *callSession
	for _, session := range uc.sessions {
		if session.monitors[socketID] {
			delete(session.monitors, socketID)
		}
		if session.CallerSocketID == socketID || session.ReceiverSocketID == socketID {
			affected = session
		}
	}
	if affected == nil {
		uc.mu.Unlock()
		return
	}
	if affected.Status != entity.CallStatusAccepted && affected.CallerSocketID != socketID {
		// Receiver sockets only attach at accept; nothing to do pre-accept.
		uc.mu.Unlock()
		return
	}
	uc.dropSessionLocked(affected)
	monitors := monitorSocketIDs(affected)
	uc.mu.Unlock()

	// A vanished transport always reads as an end, whether or not the
	// handshake had completed yet.
	ctx := context.Background()
	duration := sessionDuration(affected)
	if err := uc.finalizeHistory(ctx, affected.ID, entity.CallStatusEnded, userID, &duration); err != nil {
		logger.Error("Failed to persist disconnect end of call %s: %v", affected.ID, err)
	}

	payload := map[string]interface{}{
		"callId":        affected.ID,
		"appointmentId": affected.AppointmentID,
		"endedBy":       userID,
		"duration":      duration,
		"reason":        "disconnected",
	}
	uc.broadcaster.SendToUser(affected.CallerID, "call-ended", payload)
	uc.broadcaster.SendToUser(affected.ReceiverID, "call-ended", payload)
	for _, monitorSocket := range monitors {
		uc.broadcaster.SendToSocket(monitorSocket, "call-ended", payload)
	}
}

// HandleUserOnline re-surfaces a still-ringing call to a receiver who just
// connected, so a ring that started seconds before their socket attached is
// not lost.
func (uc *CallUseCase) HandleUserOnline(ctx context.Context, userID string) {
	uc.mu.Lock()
	var pending []*callSession
	for _, session := range uc.sessions {
		if session.ReceiverID == userID && session.Status == entity.CallStatusRinging &&
			time.Since(session.InitiatedAt) < ringResurfaceWindow {
			pending = append(pending, session)
		}
	}
	uc.mu.Unlock()

	for _, session := range pending {
		uc.broadcaster.SendToUser(userID, "incoming-call", map[string]interface{}{
			"callId":        session.ID,
			"appointmentId": session.AppointmentID,
			"callerId":      session.CallerID,
			"receiverId":    session.ReceiverID,
			"callType":      session.CallType,
			"initiatedAt":   session.InitiatedAt,
		})
	}
}

// ActiveCallInfo is the admin-facing snapshot of a live session.
type ActiveCallInfo struct {
	CallID        string    `json:"call_id"`
	AppointmentID string    `json:"appointment_id"`
	CallerID      string    `json:"caller_id"`
	ReceiverID    string    `json:"receiver_id"`
	CallType      string    `json:"call_type"`
	Status        string    `json:"status"`
	InitiatedAt   time.Time `json:"initiated_at"`
	StartTime     time.Time `json:"start_time,omitempty"`
	Monitors      int       `json:"monitors"`
}

func (uc *CallUseCase) ActiveCalls(ctx context.Context, adminID string) ([]ActiveCallInfo, error) {
	admin, err := uc.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, errors.Forbidden("Admin access required", nil)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	calls := make([]ActiveCallInfo, 0, len(uc.sessions))
	for _, session := range uc.sessions {
		calls = append(calls, ActiveCallInfo{
			CallID:        session.ID,
			AppointmentID: session.AppointmentID,
			CallerID:      session.CallerID,
			ReceiverID:    session.ReceiverID,
			CallType:      session.CallType,
			Status:        session.Status,
			InitiatedAt:   session.InitiatedAt,
			StartTime:     session.StartTime,
			Monitors:      len(session.monitors),
		})
	}
	return calls, nil
}

func (uc *CallUseCase) HistoryByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.CallHistory, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uc.historyRepo.ListByUser(ctx, userID, limit, offset)
}

func (uc *CallUseCase) HistoryByAppointment(ctx context.Context, appointmentID, userID string) ([]*entity.CallHistory, error) {
	appointment, err := uc.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appointment.IsParticipant(userID) {
		user, err := uc.userRepo.GetByID(ctx, userID)
		if err != nil || !user.IsAdmin() {
			return nil, errors.Forbidden("You don't have access to this appointment", nil)
		}
	}
	return uc.historyRepo.ListByAppointment(ctx, appointmentID)
}

func (uc *CallUseCase) Stats(ctx context.Context, adminID string) (*entity.CallStats, error) {
	admin, err := uc.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, errors.Forbidden("Admin access required", nil)
	}
	return uc.historyRepo.Stats(ctx)
}

// dropSessionLocked removes the session and frees both participants for new
// calls. Caller holds uc.mu.
func (uc *CallUseCase) dropSessionLocked(session *callSession) {
	if session.missedTimer != nil {
		session.missedTimer.Stop()
	}
	delete(uc.sessions, session.ID)
	if uc.byUser[session.CallerID] == session.ID {
		delete(uc.byUser, session.CallerID)
	}
	if uc.byUser[session.ReceiverID] == session.ID {
		delete(uc.byUser, session.ReceiverID)
	}
}

func (uc *CallUseCase) removeSession(callID string) {
	uc.mu.Lock()
	if session, ok := uc.sessions[callID]; ok {
		uc.dropSessionLocked(session)
	}
	uc.mu.Unlock()
}

func monitorSocketIDs(session *callSession) []string {
	ids := make([]string, 0, len(session.monitors))
	for id := range session.monitors {
		ids = append(ids, id)
	}
	return ids
}

func sessionDuration(session *callSession) int64 {
	if session.StartTime.IsZero() {
		return 0
	}
	return int64(time.Since(session.StartTime).Seconds())
}

func (uc *CallUseCase) finalizeHistory(ctx context.Context, callID, status, endedBy string, duration *int64) error {
	return uc.updateHistory(ctx, callID, func(record *entity.CallHistory) {
		now := time.Now()
		record.Status = status
		record.EndTime = &now
		record.EndedBy = endedBy
		if duration != nil {
			record.Duration = *duration
		}
	})
}

func (uc *CallUseCase) updateHistory(ctx context.Context, callID string, apply func(record *entity.CallHistory)) error {
	record, err := uc.historyRepo.GetByID(ctx, callID)
	if err != nil {
		return err
	}
	apply(record)
	return uc.historyRepo.Update(ctx, record)
}
