package usecase

import (
	ws "griya/internal/infrastructure/websocket"
)

// Broadcaster is the outbound event surface the use cases push through.
// Implemented by the websocket Manager; tests substitute a recorder.
type Broadcaster interface {
	SendToSocket(socketID string, event string, data interface{}) bool
	SendToUser(userID string, event string, data interface{})
	BroadcastToRoom(room ws.Room, event string, data interface{}, exceptSocketID string)
	BroadcastAll(event string, data interface{})
}
