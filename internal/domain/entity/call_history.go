package entity

import "time"

const (
	CallTypeAudio = "audio"
	CallTypeVideo = "video"
)

// Call lifecycle states. "initiated" and "ringing" are live pre-accept
// states; "missed", "rejected" and "cancelled" are the pre-accept exits.
const (
	CallStatusInitiated = "initiated"
	CallStatusRinging   = "ringing"
	CallStatusAccepted  = "accepted"
	CallStatusEnded     = "ended"
	CallStatusRejected  = "rejected"
	CallStatusMissed    = "missed"
	CallStatusCancelled = "cancelled"
)

// CallHistory is the durable audit record of one call attempt. The live
// session lives only in memory; this document is what survives.
type CallHistory struct {
	ID            string `json:"id" firestore:"id"`
	AppointmentID string `json:"appointment_id" firestore:"appointmentId"`
	CallerID      string `json:"caller_id" firestore:"callerId"`
	ReceiverID    string `json:"receiver_id" firestore:"receiverId"`
	CallType      string `json:"call_type" firestore:"callType"`

	Status string `json:"status" firestore:"status"`

	// InitiatedAt is the moment the call was placed. StartTime is stamped
	// at acceptance and is the shared epoch both parties compute elapsed
	// duration from. They are kept as distinct fields.
	InitiatedAt time.Time  `json:"initiated_at" firestore:"initiatedAt"`
	StartTime   *time.Time `json:"start_time,omitempty" firestore:"startTime,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty" firestore:"endTime,omitempty"`

	// Duration in whole seconds, derived from StartTime; zero for calls
	// that never connected.
	Duration int64 `json:"duration" firestore:"duration"`

	EndedBy    string `json:"ended_by,omitempty" firestore:"endedBy,omitempty"`
	AdminNotes string `json:"admin_notes,omitempty" firestore:"adminNotes,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

type CallStats struct {
	Total           int64            `json:"total"`
	ByStatus        map[string]int64 `json:"by_status"`
	TotalDuration   int64            `json:"total_duration"`
	AverageDuration float64          `json:"average_duration"`
}
