package handler

import (
	"github.com/labstack/echo/v4"

	"griya/internal/usecase"
	"griya/pkg/response"
)

type CallHandler struct {
	callUseCase *usecase.CallUseCase
}

func NewCallHandler(callUseCase *usecase.CallUseCase) *CallHandler {
	return &CallHandler{
		callUseCase: callUseCase,
	}
}

func (h *CallHandler) ListMyCalls(c echo.Context) error {
	uid := c.Get("uid").(string)
	limit, offset := parseLimitOffset(c)

	records, total, err := h.callUseCase.HistoryByUser(c.Request().Context(), uid, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, records, total, limit, offset)
}

func (h *CallHandler) ListByAppointment(c echo.Context) error {
	uid := c.Get("uid").(string)

	records, err := h.callUseCase.HistoryByAppointment(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, records)
}

// EndCall is the HTTP fallback for hanging up when the WebSocket is gone.
func (h *CallHandler) EndCall(c echo.Context) error {
	uid := c.Get("uid").(string)

	if err := h.callUseCase.End(c.Request().Context(), c.Param("id"), uid); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"ended": true})
}

type forceEndRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *CallHandler) ForceEndCall(c echo.Context) error {
	var req forceEndRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	if err := h.callUseCase.ForceEnd(c.Request().Context(), c.Param("id"), uid, req.Reason); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"ended": true, "forceEnded": true})
}

func (h *CallHandler) ListActiveCalls(c echo.Context) error {
	uid := c.Get("uid").(string)

	calls, err := h.callUseCase.ActiveCalls(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, calls)
}

func (h *CallHandler) Stats(c echo.Context) error {
	uid := c.Get("uid").(string)

	stats, err := h.callUseCase.Stats(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, stats)
}
