package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"griya/internal/usecase"
	"griya/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type appendCommentRequest struct {
	Type        string `json:"type" validate:"required,oneof=text image video document audio"`
	Message     string `json:"message"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	VideoURL    string `json:"video_url" validate:"omitempty,url"`
	DocumentURL string `json:"document_url" validate:"omitempty,url"`
	AudioURL    string `json:"audio_url" validate:"omitempty,url"`
	FileName    string `json:"file_name"`
	MimeType    string `json:"mime_type"`
	ReplyTo     string `json:"reply_to"`
}

func (h *ChatHandler) AppendComment(c echo.Context) error {
	var req appendCommentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	comment, err := h.chatUseCase.AppendComment(c.Request().Context(), usecase.AppendCommentInput{
		AppointmentID: c.Param("id"),
		SenderID:      uid,
		Type:          req.Type,
		Message:       req.Message,
		ImageURL:      req.ImageURL,
		VideoURL:      req.VideoURL,
		DocumentURL:   req.DocumentURL,
		AudioURL:      req.AudioURL,
		FileName:      req.FileName,
		MimeType:      req.MimeType,
		ReplyTo:       req.ReplyTo,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, comment)
}

type createAppointmentRequest struct {
	ListingID   string    `json:"listing_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

func (h *ChatHandler) CreateAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	appointment, err := h.chatUseCase.CreateAppointment(c.Request().Context(), usecase.CreateAppointmentInput{
		BuyerID:     uid,
		ListingID:   req.ListingID,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, appointment)
}

func (h *ChatHandler) ListMyAppointments(c echo.Context) error {
	uid := c.Get("uid").(string)

	appointments, err := h.chatUseCase.ListMyAppointments(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, appointments)
}

func (h *ChatHandler) GetAppointment(c echo.Context) error {
	uid := c.Get("uid").(string)

	detail, err := h.chatUseCase.GetAppointmentDetail(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, detail)
}

func (h *ChatHandler) ListComments(c echo.Context) error {
	uid := c.Get("uid").(string)

	comments, err := h.chatUseCase.ListComments(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, comments)
}

type editCommentRequest struct {
	Message string `json:"message" validate:"required"`
}

func (h *ChatHandler) EditComment(c echo.Context) error {
	var req editCommentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	comment, err := h.chatUseCase.EditComment(c.Request().Context(), c.Param("id"), c.Param("commentId"), uid, req.Message)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, comment)
}

func (h *ChatHandler) DeleteComment(c echo.Context) error {
	uid := c.Get("uid").(string)

	err := h.chatUseCase.DeleteCommentForEveryone(c.Request().Context(), c.Param("id"), uid, []string{c.Param("commentId")})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"deleted": true})
}

type bulkDeleteRequest struct {
	CommentIDs []string `json:"comment_ids" validate:"required,min=1"`
}

func (h *ChatHandler) BulkDeleteComments(c echo.Context) error {
	var req bulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	err := h.chatUseCase.DeleteCommentForEveryone(c.Request().Context(), c.Param("id"), uid, req.CommentIDs)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"deleted": len(req.CommentIDs)})
}

func (h *ChatHandler) RemoveCommentForMe(c echo.Context) error {
	uid := c.Get("uid").(string)

	err := h.chatUseCase.RemoveCommentForMe(c.Request().Context(), c.Param("id"), c.Param("commentId"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"removed": true})
}

type clearAllRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *ChatHandler) ClearAllComments(c echo.Context) error {
	var req clearAllRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	err := h.chatUseCase.ClearAllComments(c.Request().Context(), c.Param("id"), uid, req.Password)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"cleared": true})
}

func (h *ChatHandler) StarComment(c echo.Context) error {
	uid := c.Get("uid").(string)

	starred, err := h.chatUseCase.StarComment(c.Request().Context(), c.Param("id"), c.Param("commentId"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"starred": starred})
}

type pinCommentRequest struct {
	Pinned      bool   `json:"pinned"`
	Duration    string `json:"duration" validate:"omitempty,oneof=24hrs 7days 30days custom"`
	CustomHours int    `json:"custom_hours"`
}

func (h *ChatHandler) PinComment(c echo.Context) error {
	var req pinCommentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	comment, err := h.chatUseCase.PinComment(c.Request().Context(), usecase.PinCommentInput{
		AppointmentID: c.Param("id"),
		CommentID:     c.Param("commentId"),
		UserID:        uid,
		Pinned:        req.Pinned,
		Duration:      req.Duration,
		CustomHours:   req.CustomHours,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, comment)
}

type reactRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

func (h *ChatHandler) ReactToComment(c echo.Context) error {
	var req reactRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	comment, err := h.chatUseCase.ReactToComment(c.Request().Context(), c.Param("id"), c.Param("commentId"), uid, req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, comment)
}

func (h *ChatHandler) MarkAllRead(c echo.Context) error {
	uid := c.Get("uid").(string)

	err := h.chatUseCase.MarkAllRead(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"read": true})
}

func (h *ChatHandler) ListActivePins(c echo.Context) error {
	uid := c.Get("uid").(string)

	pins, err := h.chatUseCase.ListActivePins(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, pins)
}

func (h *ChatHandler) ListStarred(c echo.Context) error {
	uid := c.Get("uid").(string)

	starred, err := h.chatUseCase.ListStarred(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, starred)
}

type chatLockRequest struct {
	Password string `json:"password" validate:"required,min=4"`
}

func (h *ChatHandler) SetChatLock(c echo.Context) error {
	var req chatLockRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	err := h.chatUseCase.SetChatLock(c.Request().Context(), c.Param("id"), uid, req.Password)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"locked": true})
}

func (h *ChatHandler) VerifyChatLock(c echo.Context) error {
	var req chatLockRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	err := h.chatUseCase.VerifyChatLock(c.Request().Context(), c.Param("id"), uid, req.Password)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"access_granted": true})
}

func (h *ChatHandler) CloseChat(c echo.Context) error {
	uid := c.Get("uid").(string)

	err := h.chatUseCase.CloseChat(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"closed": true})
}

func (h *ChatHandler) ForgotChatLock(c echo.Context) error {
	uid := c.Get("uid").(string)

	err := h.chatUseCase.ForgotChatLock(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"reset": true})
}

func parseLimitOffset(c echo.Context) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
