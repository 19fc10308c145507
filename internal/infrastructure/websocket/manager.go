package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"griya/pkg/logger"
)

// Envelope is the wire shape of every outbound event.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Manager tracks connected clients and their room memberships. All maps are
// guarded by mu; delivery itself is non-blocking so one slow client never
// stalls a broadcast.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client          // by socket ID
	byUser  map[string]map[string]bool  // user ID -> socket IDs
	rooms   map[Room]map[string]*Client // room -> socket ID -> client

	onDisconnect func(client *Client)
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*Client),
		byUser:  make(map[string]map[string]bool),
		rooms:   make(map[Room]map[string]*Client),
	}
}

// OnDisconnect registers a hook invoked after a client is fully removed.
// Must be set before the first Register.
func (m *Manager) OnDisconnect(fn func(client *Client)) {
	m.onDisconnect = fn
}

func (m *Manager) Register(client *Client) {
	m.mu.Lock()
	m.clients[client.SocketID] = client
	if client.UserID != "" {
		if m.byUser[client.UserID] == nil {
			m.byUser[client.UserID] = make(map[string]bool)
		}
		m.byUser[client.UserID][client.SocketID] = true
	}
	m.mu.Unlock()

	logger.Debug("Socket %s registered (user=%s)", client.SocketID, client.UserID)
}

func (m *Manager) Unregister(client *Client) {
	m.mu.Lock()
	if _, ok := m.clients[client.SocketID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, client.SocketID)
	if client.UserID != "" {
		if sockets := m.byUser[client.UserID]; sockets != nil {
			delete(sockets, client.SocketID)
			if len(sockets) == 0 {
				delete(m.byUser, client.UserID)
			}
		}
	}
	for room, members := range m.rooms {
		if _, ok := members[client.SocketID]; ok {
			delete(members, client.SocketID)
			if len(members) == 0 {
				delete(m.rooms, room)
			}
		}
	}
	close(client.Send)
	m.mu.Unlock()

	logger.Debug("Socket %s unregistered (user=%s)", client.SocketID, client.UserID)

	if m.onDisconnect != nil {
		m.onDisconnect(client)
	}
}

func (m *Manager) Join(client *Client, room Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.SocketID]; !ok {
		return
	}
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[string]*Client)
	}
	m.rooms[room][client.SocketID] = client
}

func (m *Manager) Leave(client *Client, room Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := m.rooms[room]
	if members == nil {
		return
	}
	delete(members, client.SocketID)
	if len(members) == 0 {
		delete(m.rooms, room)
	}
}

// UserOnline reports whether the user has at least one registered socket.
func (m *Manager) UserOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID]) > 0
}

// BroadcastToRoom sends an event to every member of room, skipping
// exceptSocketID when non-empty.
func (m *Manager) BroadcastToRoom(room Room, event string, data interface{}, exceptSocketID string) {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		logger.Error("Failed to marshal %s event: %v", event, err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for socketID, client := range m.rooms[room] {
		if socketID == exceptSocketID {
			continue
		}
		m.deliver(client, event, payload)
	}
}

// SendToUser sends an event to every socket the user has open.
func (m *Manager) SendToUser(userID string, event string, data interface{}) {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		logger.Error("Failed to marshal %s event: %v", event, err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for socketID := range m.byUser[userID] {
		if client, ok := m.clients[socketID]; ok {
			m.deliver(client, event, payload)
		}
	}
}

// SendToSocket sends an event to one socket. Returns false when the socket
// is no longer registered.
func (m *Manager) SendToSocket(socketID string, event string, data interface{}) bool {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		logger.Error("Failed to marshal %s event: %v", event, err)
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	client, ok := m.clients[socketID]
	if !ok {
		return false
	}
	m.deliver(client, event, payload)
	return true
}

// BroadcastAll sends an event to every connected socket.
func (m *Manager) BroadcastAll(event string, data interface{}) {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		logger.Error("Failed to marshal %s event: %v", event, err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		m.deliver(client, event, payload)
	}
}

// deliver is non-blocking: a client whose send buffer is full drops the
// frame rather than holding the manager lock. Caller holds at least a read
// lock.
func (m *Manager) deliver(client *Client, event string, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		logger.Warn("Dropping %s frame for slow socket %s", event, client.SocketID)
	}
}

func marshalEnvelope(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      event,
		Data:      data,
		Timestamp: time.Now(),
	})
}
