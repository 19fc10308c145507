package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"griya/internal/domain/repository"
	"griya/internal/infrastructure/presence"
	"griya/internal/usecase"
	"griya/pkg/errors"
	"griya/pkg/logger"

	ws "griya/internal/infrastructure/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	manager     *ws.Manager
	presence    *presence.Tracker
	chatUseCase *usecase.ChatUseCase
	callUseCase *usecase.CallUseCase
	userRepo    repository.UserRepository
}

func NewWebSocketHandler(
	manager *ws.Manager,
	presenceTracker *presence.Tracker,
	chatUseCase *usecase.ChatUseCase,
	callUseCase *usecase.CallUseCase,
	userRepo repository.UserRepository,
) *WebSocketHandler {
	return &WebSocketHandler{
		manager:     manager,
		presence:    presenceTracker,
		chatUseCase: chatUseCase,
		callUseCase: callUseCase,
		userRepo:    userRepo,
	}
}

// HandleConnection upgrades the request and runs the client pumps. Identity
// is optional: anonymous sockets can connect but only presence queries work
// for them.
func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	uid, _ := c.Get("uid").(string)

	role := ""
	if uid != "" {
		if user, err := h.userRepo.GetByID(c.Request().Context(), uid); err == nil {
			role = user.Role
			if !user.IsAdmin() {
				role = "user"
			}
		}
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed: %v", err)
		return err
	}

	client := ws.NewClient(uuid.New().String(), uid, role, conn)
	h.manager.Register(client)

	if client.IsAuthenticated() {
		h.manager.Join(client, ws.UserRoom(uid))
		if client.IsAdmin() {
			h.manager.Join(client, ws.AdminRoom())
		}
		h.presence.MarkActive(context.Background(), uid)
	}

	go client.WritePump()
	client.ReadPump(h.manager, h.handleEvent)

	return nil
}

type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// handleEvent dispatches one inbound frame. Every failure is answered with
// a typed error event on the same socket; the connection itself stays up.
func (h *WebSocketHandler) handleEvent(client *ws.Client, payload []byte) {
	var event inboundEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.sendError(client, "error", "", errors.BadRequest("Malformed event", err))
		return
	}

	ctx := context.Background()

	if client.IsAuthenticated() {
		h.presence.MarkActive(ctx, client.UserID)
	}

	switch event.Type {
	case "user-active":
		// Presence already refreshed above.

	case "check-online":
		h.handleCheckOnline(ctx, client, event.Data)

	case "join-appointment":
		h.handleJoinAppointment(ctx, client, event.Data)

	case "leave-appointment":
		var req struct {
			AppointmentID string `json:"appointmentId"`
		}
		if json.Unmarshal(event.Data, &req) == nil && req.AppointmentID != "" {
			h.manager.Leave(client, ws.AppointmentRoom(req.AppointmentID))
		}

	case "typing":
		h.handleTyping(client, event.Data)

	case "call-initiate":
		h.handleCallInitiate(ctx, client, event.Data)

	case "call-accept":
		h.withCallID(client, event.Data, "call-error", func(callID string) error {
			return h.callUseCase.Accept(ctx, callID, client.UserID, client.SocketID)
		})

	case "call-reject":
		h.withCallID(client, event.Data, "call-error", func(callID string) error {
			return h.callUseCase.Reject(ctx, callID, client.UserID)
		})

	case "call-cancel":
		h.withCallID(client, event.Data, "call-error", func(callID string) error {
			return h.callUseCase.Cancel(ctx, callID, client.UserID)
		})

	case "call-end":
		h.withCallID(client, event.Data, "call-error", func(callID string) error {
			return h.callUseCase.End(ctx, callID, client.UserID)
		})

	case "webrtc-offer", "webrtc-answer", "ice-candidate":
		h.handleSignal(ctx, client, event.Type, event.Data)

	case "webrtc-offer-monitor", "webrtc-answer-monitor", "ice-candidate-monitor":
		h.handleMonitorSignal(ctx, client, event.Type, event.Data)

	case "admin-monitor-join":
		h.withCallID(client, event.Data, "call-monitor-error", func(callID string) error {
			return h.callUseCase.MonitorJoin(ctx, callID, client.UserID, client.SocketID)
		})

	case "admin-force-end-call":
		h.handleForceEnd(ctx, client, event.Data)

	default:
		h.sendError(client, "error", "", errors.BadRequest("Unknown event type", nil))
	}
}

func (h *WebSocketHandler) handleCheckOnline(ctx context.Context, client *ws.Client, data json.RawMessage) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == "" {
		h.sendError(client, "error", "", errors.BadRequest("userId is required", nil))
		return
	}

	online, lastSeen, err := h.presence.IsOnline(ctx, req.UserID)
	if err != nil {
		h.sendError(client, "error", "", errors.Internal("Presence lookup failed", err))
		return
	}

	h.manager.SendToSocket(client.SocketID, "online-status", map[string]interface{}{
		"userId":   req.UserID,
		"online":   online,
		"lastSeen": lastSeen,
	})
}

func (h *WebSocketHandler) handleJoinAppointment(ctx context.Context, client *ws.Client, data json.RawMessage) {
	if !client.IsAuthenticated() {
		h.sendError(client, "error", "", errors.Unauthorized("Authentication required", nil))
		return
	}

	var req struct {
		AppointmentID string `json:"appointmentId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.AppointmentID == "" {
		h.sendError(client, "error", "", errors.BadRequest("appointmentId is required", nil))
		return
	}

	if err := h.chatUseCase.CanAccess(ctx, req.AppointmentID, client.UserID); err != nil {
		h.sendError(client, "error", "", err)
		return
	}

	h.manager.Join(client, ws.AppointmentRoom(req.AppointmentID))
	h.manager.SendToSocket(client.SocketID, "appointment-joined", map[string]interface{}{
		"appointmentId": req.AppointmentID,
	})
}

func (h *WebSocketHandler) handleTyping(client *ws.Client, data json.RawMessage) {
	if !client.IsAuthenticated() {
		return
	}

	var req struct {
		AppointmentID string `json:"appointmentId"`
		IsTyping      bool   `json:"isTyping"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.AppointmentID == "" {
		return
	}

	h.chatUseCase.HandleTyping(req.AppointmentID, client.UserID, client.SocketID, req.IsTyping)
}

func (h *WebSocketHandler) handleCallInitiate(ctx context.Context, client *ws.Client, data json.RawMessage) {
	if !client.IsAuthenticated() {
		h.sendError(client, "call-error", "", errors.Unauthorized("Authentication required", nil))
		return
	}

	var req struct {
		AppointmentID string `json:"appointmentId"`
		CallType      string `json:"callType"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.AppointmentID == "" {
		h.sendError(client, "call-error", "", errors.BadRequest("appointmentId is required", nil))
		return
	}

	_, err := h.callUseCase.Initiate(ctx, usecase.InitiateCallInput{
		AppointmentID:  req.AppointmentID,
		CallerID:       client.UserID,
		CallerSocketID: client.SocketID,
		CallType:       req.CallType,
	})
	if err != nil {
		h.sendError(client, "call-error", "", err)
	}
}

func (h *WebSocketHandler) handleSignal(ctx context.Context, client *ws.Client, eventType string, data json.RawMessage) {
	if !client.IsAuthenticated() {
		h.sendError(client, "call-error", "", errors.Unauthorized("Authentication required", nil))
		return
	}

	var req struct {
		CallID string          `json:"callId"`
		Signal json.RawMessage `json:"signal"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.CallID == "" {
		h.sendError(client, "call-error", "", errors.BadRequest("callId is required", nil))
		return
	}

	err := h.callUseCase.Signal(ctx, usecase.SignalInput{
		CallID:   req.CallID,
		UserID:   client.UserID,
		SocketID: client.SocketID,
		Event:    eventType,
		Payload:  req.Signal,
	})
	if err != nil {
		h.sendError(client, "call-error", req.CallID, err)
	}
}

func (h *WebSocketHandler) handleMonitorSignal(ctx context.Context, client *ws.Client, eventType string, data json.RawMessage) {
	var req struct {
		CallID        string          `json:"callId"`
		AdminSocketID string          `json:"adminSocketId"`
		Role          string          `json:"role"`
		Signal        json.RawMessage `json:"signal"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.CallID == "" {
		h.sendError(client, "call-monitor-error", "", errors.BadRequest("callId is required", nil))
		return
	}

	adminSocketID := req.AdminSocketID
	if client.IsAdmin() && adminSocketID == "" {
		adminSocketID = client.SocketID
	}

	// Inbound monitor events carry the -monitor suffix; strip it so the
	// use case sees the base signaling verb.
	baseEvent := eventType[:len(eventType)-len("-monitor")]

	err := h.callUseCase.MonitorSignal(ctx, usecase.MonitorSignalInput{
		CallID:        req.CallID,
		SocketID:      client.SocketID,
		AdminSocketID: adminSocketID,
		Role:          req.Role,
		Event:         baseEvent,
		Payload:       req.Signal,
	})
	if err != nil {
		h.sendError(client, "call-monitor-error", req.CallID, err)
	}
}

func (h *WebSocketHandler) handleForceEnd(ctx context.Context, client *ws.Client, data json.RawMessage) {
	var req struct {
		CallID string `json:"callId"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.CallID == "" {
		h.sendError(client, "call-force-end-error", "", errors.BadRequest("callId is required", nil))
		return
	}

	if err := h.callUseCase.ForceEnd(ctx, req.CallID, client.UserID, req.Reason); err != nil {
		h.sendError(client, "call-force-end-error", req.CallID, err)
		return
	}

	h.manager.SendToSocket(client.SocketID, "call-force-end-success", map[string]interface{}{
		"callId": req.CallID,
	})
}

func (h *WebSocketHandler) withCallID(client *ws.Client, data json.RawMessage, errorEvent string, fn func(callID string) error) {
	if !client.IsAuthenticated() {
		h.sendError(client, errorEvent, "", errors.Unauthorized("Authentication required", nil))
		return
	}

	var req struct {
		CallID string `json:"callId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.CallID == "" {
		h.sendError(client, errorEvent, "", errors.BadRequest("callId is required", nil))
		return
	}

	if err := fn(req.CallID); err != nil {
		h.sendError(client, errorEvent, req.CallID, err)
	}
}

func (h *WebSocketHandler) sendError(client *ws.Client, event, callID string, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal("An unexpected error occurred", err)
	}

	payload := map[string]interface{}{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if callID != "" {
		payload["callId"] = callID
	}

	h.manager.SendToSocket(client.SocketID, event, payload)
}
