package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"griya/internal/domain/entity"
	"griya/pkg/errors"
)

func newCallFixture(t *testing.T) (*CallUseCase, *fakeCallHistoryRepo, *fakeBroadcaster, *fakeNotifier) {
	t.Helper()

	users := newFakeUserRepo(
		&entity.User{ID: "buyer-1", Username: "Budi", Role: entity.RoleUser},
		&entity.User{ID: "seller-1", Username: "Sari", Role: entity.RoleUser},
		&entity.User{ID: "buyer-2", Username: "Rina", Role: entity.RoleUser},
		&entity.User{ID: "admin-1", Username: "Admin", Role: entity.RoleAdmin, Status: entity.StatusApproved},
	)
	appointments := newFakeAppointmentRepo(
		&entity.Appointment{ID: "appt-1", BuyerID: "buyer-1", SellerID: "seller-1"},
		&entity.Appointment{ID: "appt-2", BuyerID: "buyer-2", SellerID: "seller-1"},
	)
	history := newFakeCallHistoryRepo()
	broadcaster := newFakeBroadcaster()
	notifier := newFakeNotifier()

	uc := NewCallUseCase(appointments, history, users, broadcaster, notifier)
	return uc, history, broadcaster, notifier
}

func initiate(t *testing.T, uc *CallUseCase, appointmentID, callerID, socketID string) *entity.CallHistory {
	t.Helper()
	record, err := uc.Initiate(context.Background(), InitiateCallInput{
		AppointmentID:  appointmentID,
		CallerID:       callerID,
		CallerSocketID: socketID,
		CallType:       entity.CallTypeVideo,
	})
	require.NoError(t, err)
	return record
}

func TestInitiateRingsReceiver(t *testing.T) {
	uc, history, broadcaster, notifier := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")

	assert.Equal(t, entity.CallStatusInitiated, record.Status)
	assert.False(t, record.InitiatedAt.IsZero())
	assert.Nil(t, record.StartTime)

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "seller-1", stored.ReceiverID)

	incoming := broadcaster.eventsForTarget("seller-1")
	require.NotEmpty(t, incoming)
	assert.Equal(t, "incoming-call", incoming[0].Event)
	assert.NotEmpty(t, broadcaster.eventsForTarget("sock-caller"))
	assert.NotEmpty(t, notifier.eventsNamed("call-initiated"))
}

func TestOneActiveCallPerUser(t *testing.T) {
	uc, _, _, _ := newCallFixture(t)
	ctx := context.Background()

	initiate(t, uc, "appt-1", "buyer-1", "sock-1")

	// The seller is already ringing in the first call.
	_, err := uc.Initiate(ctx, InitiateCallInput{
		AppointmentID:  "appt-2",
		CallerID:       "buyer-2",
		CallerSocketID: "sock-2",
		CallType:       entity.CallTypeAudio,
	})
	require.Error(t, err)
	assert.Equal(t, "BUSY", errors.CodeOf(err))

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "User is currently in another call", appErr.Message)
}

func TestUnansweredCallGoesMissed(t *testing.T) {
	uc, history, broadcaster, notifier := newCallFixture(t)
	uc.MissedCallTimeout = 30 * time.Millisecond
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")

	require.Eventually(t, func() bool {
		return len(notifier.eventsNamed("call-missed")) == 1
	}, time.Second, 5*time.Millisecond)

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CallStatusMissed, stored.Status)
	assert.NotEmpty(t, broadcaster.eventsNamed("call-missed"))

	// Both parties are free again once the ring expired.
	initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
}

func TestAcceptCancelsMissedTimer(t *testing.T) {
	uc, history, _, _ := newCallFixture(t)
	uc.MissedCallTimeout = 40 * time.Millisecond
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	time.Sleep(100 * time.Millisecond)

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CallStatusAccepted, stored.Status)
	assert.NotNil(t, stored.StartTime)
}

func TestAcceptBroadcastsOneStartTime(t *testing.T) {
	uc, _, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	accepted := broadcaster.eventsNamed("call-accepted")
	require.Len(t, accepted, 2)

	first := accepted[0].Data.(map[string]interface{})["startTime"].(time.Time)
	second := accepted[1].Data.(map[string]interface{})["startTime"].(time.Time)
	assert.True(t, first.Equal(second))
}

func TestAcceptOnlyByReceiver(t *testing.T) {
	uc, _, _, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")

	err := uc.Accept(ctx, record.ID, "buyer-1", "sock-caller")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))
}

func TestPreAcceptSignalingBufferedAndFlushedInOrder(t *testing.T) {
	uc, _, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")

	offer := json.RawMessage(`{"sdp":"offer"}`)
	candidate1 := json.RawMessage(`{"candidate":"one"}`)
	candidate2 := json.RawMessage(`{"candidate":"two"}`)

	require.NoError(t, uc.Signal(ctx, SignalInput{CallID: record.ID, UserID: "buyer-1", SocketID: "sock-caller", Event: "webrtc-offer", Payload: offer}))
	require.NoError(t, uc.Signal(ctx, SignalInput{CallID: record.ID, UserID: "buyer-1", SocketID: "sock-caller", Event: "ice-candidate", Payload: candidate1}))
	require.NoError(t, uc.Signal(ctx, SignalInput{CallID: record.ID, UserID: "buyer-1", SocketID: "sock-caller", Event: "ice-candidate", Payload: candidate2}))

	// An answer cannot exist before the call is accepted.
	err := uc.Signal(ctx, SignalInput{CallID: record.ID, UserID: "seller-1", SocketID: "sock-receiver", Event: "webrtc-answer", Payload: offer})
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))

	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	toReceiver := broadcaster.eventsForTarget("sock-receiver")
	var sequence []string
	for _, event := range toReceiver {
		sequence = append(sequence, event.Event)
	}
	assert.Equal(t, []string{"call-accepted", "webrtc-offer", "ice-candidate", "ice-candidate"}, sequence)

	payloads := []json.RawMessage{
		toReceiver[2].Data.(map[string]interface{})["signal"].(json.RawMessage),
		toReceiver[3].Data.(map[string]interface{})["signal"].(json.RawMessage),
	}
	assert.Equal(t, candidate1, payloads[0])
	assert.Equal(t, candidate2, payloads[1])
}

func TestPreAcceptReceiverCandidateRelaysToCaller(t *testing.T) {
	uc, _, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")

	candidate := json.RawMessage(`{"candidate":"early"}`)
	require.NoError(t, uc.Signal(ctx, SignalInput{CallID: record.ID, UserID: "seller-1", SocketID: "sock-receiver", Event: "ice-candidate", Payload: candidate}))

	// The candidate goes straight to the caller transport.
	toCaller := broadcaster.eventsForTarget("sock-caller")
	require.NotEmpty(t, toCaller)
	last := toCaller[len(toCaller)-1]
	assert.Equal(t, "ice-candidate", last.Event)
	assert.Equal(t, candidate, last.Data.(map[string]interface{})["signal"])

	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	// Nothing was buffered, so the receiver sees only the accept.
	var sequence []string
	for _, event := range broadcaster.eventsForTarget("sock-receiver") {
		sequence = append(sequence, event.Event)
	}
	assert.Equal(t, []string{"call-accepted"}, sequence)
}

func TestSignalRoleValidation(t *testing.T) {
	uc, _, _, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	err := uc.Signal(ctx, SignalInput{CallID: record.ID, UserID: "seller-1", SocketID: "sock-receiver", Event: "webrtc-offer", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))

	err = uc.Signal(ctx, SignalInput{CallID: record.ID, UserID: "buyer-2", SocketID: "sock-x", Event: "ice-candidate", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))
}

func TestCancelAfterAcceptFails(t *testing.T) {
	uc, _, _, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	err := uc.Cancel(ctx, record.ID, "buyer-1")
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))
}

func TestRejectOnlyByReceiver(t *testing.T) {
	uc, history, _, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")

	err := uc.Reject(ctx, record.ID, "buyer-1")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))

	require.NoError(t, uc.Reject(ctx, record.ID, "seller-1"))

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CallStatusRejected, stored.Status)
}

func TestEndIsIdempotent(t *testing.T) {
	uc, history, _, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	require.NoError(t, uc.End(ctx, record.ID, "buyer-1"))
	// The session is gone; the second hang-up is a silent no-op.
	require.NoError(t, uc.End(ctx, record.ID, "seller-1"))

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CallStatusEnded, stored.Status)
	assert.Equal(t, "buyer-1", stored.EndedBy)
	assert.NotNil(t, stored.EndTime)
}

func TestEndAllowedForAdmin(t *testing.T) {
	uc, history, _, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	err := uc.End(ctx, record.ID, "buyer-2")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))

	require.NoError(t, uc.End(ctx, record.ID, "admin-1"))

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CallStatusEnded, stored.Status)
	assert.Equal(t, "admin-1", stored.EndedBy)
}

func TestEndSurfacesHistoryFailure(t *testing.T) {
	uc, history, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	history.failUpdates = true
	err := uc.End(ctx, record.ID, "buyer-1")
	require.Error(t, err)
	assert.Equal(t, "INTERNAL_ERROR", errors.CodeOf(err))

	// The in-memory session is still torn down and both sides notified.
	assert.NotEmpty(t, broadcaster.eventsNamed("call-ended"))
	history.failUpdates = false
	initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
}

func TestMonitorJoinRequiresLiveCall(t *testing.T) {
	uc, _, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")

	err := uc.MonitorJoin(ctx, record.ID, "admin-1", "sock-admin")
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))

	err = uc.MonitorJoin(ctx, record.ID, "buyer-1", "sock-caller")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))

	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))
	require.NoError(t, uc.MonitorJoin(ctx, record.ID, "admin-1", "sock-admin"))

	assert.NotEmpty(t, broadcaster.eventsNamed("admin-monitor-started"))
	assert.Len(t, broadcaster.eventsNamed("admin-monitor-request"), 2)
}

func TestMonitorSignalAddressing(t *testing.T) {
	uc, _, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))
	require.NoError(t, uc.MonitorJoin(ctx, record.ID, "admin-1", "sock-admin"))

	// Participant leg: caller's offer lands on the admin socket.
	require.NoError(t, uc.MonitorSignal(ctx, MonitorSignalInput{
		CallID: record.ID, SocketID: "sock-caller", AdminSocketID: "sock-admin",
		Role: "caller", Event: "webrtc-offer", Payload: json.RawMessage(`{"sdp":"to-monitor"}`),
	}))
	adminEvents := broadcaster.eventsForTarget("sock-admin")
	require.NotEmpty(t, adminEvents)
	assert.Equal(t, "webrtc-offer-monitor", adminEvents[len(adminEvents)-1].Event)

	// Monitor leg: the admin's answer lands on the caller socket.
	require.NoError(t, uc.MonitorSignal(ctx, MonitorSignalInput{
		CallID: record.ID, SocketID: "sock-admin", AdminSocketID: "sock-admin",
		Role: "caller", Event: "webrtc-answer", Payload: json.RawMessage(`{"sdp":"from-monitor"}`),
	}))
	callerEvents := broadcaster.eventsForTarget("sock-caller")
	require.NotEmpty(t, callerEvents)
	assert.Equal(t, "webrtc-answer-monitor", callerEvents[len(callerEvents)-1].Event)
}

func TestForceEndAppendsAuditNote(t *testing.T) {
	uc, history, broadcaster, notifier := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))
	require.NoError(t, uc.MonitorJoin(ctx, record.ID, "admin-1", "sock-admin"))

	err := uc.ForceEnd(ctx, record.ID, "buyer-1", "nope")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))

	require.NoError(t, uc.ForceEnd(ctx, record.ID, "admin-1", "policy violation"))

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CallStatusEnded, stored.Status)
	assert.Equal(t, "admin-1", stored.EndedBy)
	assert.Contains(t, stored.AdminNotes, "policy violation")
	assert.Contains(t, stored.AdminNotes, "admin-1")

	ended := broadcaster.eventsNamed("call-ended")
	require.NotEmpty(t, ended)
	monitorNotified := false
	for _, event := range ended {
		data := event.Data.(map[string]interface{})
		assert.Equal(t, true, data["forceEnded"])
		if event.Target == "sock-admin" {
			monitorNotified = true
		}
	}
	assert.True(t, monitorNotified)
	assert.NotEmpty(t, notifier.eventsNamed("call-force-ended"))

	// The session is gone; a second force-end has nothing to act on.
	err = uc.ForceEnd(ctx, record.ID, "admin-1", "again")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errors.CodeOf(err))
}

func TestForceEndDefaultsEmptyReason(t *testing.T) {
	uc, history, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	require.NoError(t, uc.ForceEnd(ctx, record.ID, "admin-1", "   "))

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.AdminNotes, "terminated by admin for policy violation")

	ended := broadcaster.eventsNamed("call-ended")
	require.NotEmpty(t, ended)
	assert.Equal(t, "terminated by admin for policy violation", ended[0].Data.(map[string]interface{})["reason"])
}

func TestDisconnectEndsCallImplicitly(t *testing.T) {
	uc, history, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
	require.NoError(t, uc.Accept(ctx, record.ID, "seller-1", "sock-receiver"))

	uc.HandleDisconnect("sock-caller", "buyer-1")

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CallStatusEnded, stored.Status)
	assert.NotEmpty(t, broadcaster.eventsNamed("call-ended"))

	// Both users are free to call again.
	initiate(t, uc, "appt-1", "buyer-1", "sock-caller")
}

func TestPreAcceptCallerDropFinalizesEnded(t *testing.T) {
	uc, history, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")

	uc.HandleDisconnect("sock-caller", "buyer-1")

	stored, err := history.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CallStatusEnded, stored.Status)
	assert.Equal(t, int64(0), stored.Duration)

	assert.Empty(t, broadcaster.eventsNamed("call-cancelled"))
	ended := broadcaster.eventsNamed("call-ended")
	require.NotEmpty(t, ended)
	assert.Equal(t, "disconnected", ended[0].Data.(map[string]interface{})["reason"])
}

func TestRingResurfacedWhenReceiverComesOnline(t *testing.T) {
	uc, _, broadcaster, _ := newCallFixture(t)
	ctx := context.Background()

	record := initiate(t, uc, "appt-1", "buyer-1", "sock-caller")

	uc.HandleUserOnline(ctx, "seller-1")

	incoming := broadcaster.eventsForTarget("seller-1")
	count := 0
	for _, event := range incoming {
		if event.Event == "incoming-call" {
			count++
			assert.Equal(t, record.ID, event.Data.(map[string]interface{})["callId"])
		}
	}
	assert.Equal(t, 2, count)
}
