package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(socketID, userID, role string) *Client {
	return &Client{
		SocketID: socketID,
		UserID:   userID,
		Role:     role,
		Send:     make(chan []byte, 8),
	}
}

func receive(t *testing.T, client *Client) Envelope {
	t.Helper()
	select {
	case payload := <-client.Send:
		var envelope Envelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		return envelope
	default:
		t.Fatalf("no frame queued for socket %s", client.SocketID)
		return Envelope{}
	}
}

func TestBroadcastToRoomSkipsExcludedSocket(t *testing.T) {
	m := NewManager()
	a := testClient("sock-a", "u1", "user")
	b := testClient("sock-b", "u2", "user")
	c := testClient("sock-c", "u3", "user")
	m.Register(a)
	m.Register(b)
	m.Register(c)

	room := AppointmentRoom("appt-1")
	m.Join(a, room)
	m.Join(b, room)

	m.BroadcastToRoom(room, "typing", map[string]string{"userId": "u1"}, "sock-a")

	assert.Empty(t, a.Send)
	envelope := receive(t, b)
	assert.Equal(t, "typing", envelope.Type)
	assert.Empty(t, c.Send)
}

func TestSendToUserReachesEverySocket(t *testing.T) {
	m := NewManager()
	tab1 := testClient("sock-1", "u1", "user")
	tab2 := testClient("sock-2", "u1", "user")
	other := testClient("sock-3", "u2", "user")
	m.Register(tab1)
	m.Register(tab2)
	m.Register(other)

	m.SendToUser("u1", "incoming-call", map[string]string{"callId": "c1"})

	assert.Equal(t, "incoming-call", receive(t, tab1).Type)
	assert.Equal(t, "incoming-call", receive(t, tab2).Type)
	assert.Empty(t, other.Send)
}

func TestSendToSocketReportsMissingTarget(t *testing.T) {
	m := NewManager()
	a := testClient("sock-a", "u1", "user")
	m.Register(a)

	assert.True(t, m.SendToSocket("sock-a", "ping", nil))
	assert.False(t, m.SendToSocket("sock-gone", "ping", nil))
}

func TestUnregisterCleansRoomsAndPresence(t *testing.T) {
	m := NewManager()
	a := testClient("sock-a", "u1", "user")
	b := testClient("sock-b", "u2", "user")
	m.Register(a)
	m.Register(b)

	room := AppointmentRoom("appt-1")
	m.Join(a, room)
	m.Join(b, room)

	require.True(t, m.UserOnline("u1"))

	var disconnected []string
	m.OnDisconnect(func(client *Client) {
		disconnected = append(disconnected, client.SocketID)
	})

	m.Unregister(a)

	assert.False(t, m.UserOnline("u1"))
	assert.Equal(t, []string{"sock-a"}, disconnected)

	// Fan-out after the unregister only reaches the remaining member.
	m.BroadcastToRoom(room, "typing", nil, "")
	assert.Equal(t, "typing", receive(t, b).Type)

	// Double unregister is a no-op.
	m.Unregister(a)
	assert.Equal(t, []string{"sock-a"}, disconnected)
}

func TestUserOnlineAcrossMultipleSockets(t *testing.T) {
	m := NewManager()
	tab1 := testClient("sock-1", "u1", "user")
	tab2 := testClient("sock-2", "u1", "user")
	m.Register(tab1)
	m.Register(tab2)

	m.Unregister(tab1)
	assert.True(t, m.UserOnline("u1"))

	m.Unregister(tab2)
	assert.False(t, m.UserOnline("u1"))
}

func TestAdminRoomIsDistinctFromUserRooms(t *testing.T) {
	m := NewManager()
	admin := testClient("sock-admin", "a1", "admin")
	user := testClient("sock-user", "u1", "user")
	m.Register(admin)
	m.Register(user)

	m.Join(admin, AdminRoom())
	m.Join(user, UserRoom("u1"))

	m.BroadcastToRoom(AdminRoom(), "admin-alert", nil, "")

	assert.Equal(t, "admin-alert", receive(t, admin).Type)
	assert.Empty(t, user.Send)
}

func TestSlowClientDropsFrameInsteadOfBlocking(t *testing.T) {
	m := NewManager()
	slow := &Client{SocketID: "sock-slow", UserID: "u1", Send: make(chan []byte, 1)}
	m.Register(slow)

	m.SendToSocket("sock-slow", "first", nil)
	// The buffer is full now; the next frame must be dropped, not block.
	done := make(chan struct{})
	go func() {
		m.SendToSocket("sock-slow", "second", nil)
		close(done)
	}()
	<-done

	assert.Equal(t, "first", receive(t, slow).Type)
	assert.Empty(t, slow.Send)
}
