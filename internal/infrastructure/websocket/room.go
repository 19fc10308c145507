package websocket

import "fmt"

type RoomKind string

const (
	RoomKindUser        RoomKind = "user"
	RoomKindAppointment RoomKind = "appointment"
	RoomKindAdmin       RoomKind = "admin"
)

// Room is a typed fan-out target. Using a comparable struct instead of
// stitched string keys keeps the user/appointment/admin namespaces from
// ever colliding.
type Room struct {
	Kind RoomKind
	ID   string
}

func UserRoom(userID string) Room {
	return Room{Kind: RoomKindUser, ID: userID}
}

func AppointmentRoom(appointmentID string) Room {
	return Room{Kind: RoomKindAppointment, ID: appointmentID}
}

func AdminRoom() Room {
	return Room{Kind: RoomKindAdmin}
}

func (r Room) String() string {
	if r.ID == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
