package notification

import (
	"context"
	"time"

	"griya/pkg/logger"
)

const (
	EventCallInitiated  = "call-initiated"
	EventCallMissed     = "call-missed"
	EventCallEnded      = "call-ended"
	EventCallForceEnded = "call-force-ended"
	EventNewMessage     = "new-message"
)

// Event is the payload handed to the notification pipeline. Delivery is
// fire-and-forget: a failed dispatch is logged and never surfaces to the
// operation that triggered it.
type Event struct {
	Type          string    `json:"type"`
	CallID        string    `json:"callId,omitempty"`
	AppointmentID string    `json:"appointmentId,omitempty"`
	CallerID      string    `json:"callerId,omitempty"`
	ReceiverID    string    `json:"receiverId,omitempty"`
	CallType      string    `json:"callType,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Duration      int64     `json:"duration,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
	Close() error
}

// LogDispatcher is the no-broker fallback used in development.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, event Event) {
	logger.Info("Notification %s (call=%s appointment=%s)", event.Type, event.CallID, event.AppointmentID)
}

func (d *LogDispatcher) Close() error {
	return nil
}
