package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"griya/internal/domain/entity"
	"griya/internal/domain/repository"
	"griya/internal/infrastructure/notification"
	"griya/internal/infrastructure/presence"
	ws "griya/internal/infrastructure/websocket"
	"griya/pkg/errors"
	"griya/pkg/logger"
)

const deletedMessagePlaceholder = "This message has been deleted"

type ChatUseCase struct {
	appointmentRepo repository.AppointmentRepository
	listingRepo     repository.ListingRepository
	userRepo        repository.UserRepository
	presence        *presence.Tracker
	broadcaster     Broadcaster
	notifier        notification.Dispatcher
}

func NewChatUseCase(
	appointmentRepo repository.AppointmentRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	presenceTracker *presence.Tracker,
	broadcaster Broadcaster,
	notifier notification.Dispatcher,
) *ChatUseCase {
	return &ChatUseCase{
		appointmentRepo: appointmentRepo,
		listingRepo:     listingRepo,
		userRepo:        userRepo,
		presence:        presenceTracker,
		broadcaster:     broadcaster,
		notifier:        notifier,
	}
}

type CreateAppointmentInput struct {
	BuyerID     string
	ListingID   string
	ScheduledAt time.Time
}

// CreateAppointment books a viewing on a listing and opens its chat. The
// seller side is resolved from the listing document.
func (uc *ChatUseCase) CreateAppointment(ctx context.Context, input CreateAppointmentInput) (*entity.Appointment, error) {
	listing, err := uc.listingRepo.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == input.BuyerID {
		return nil, errors.BadRequest("You cannot book your own listing", nil)
	}

	appointment := &entity.Appointment{
		ListingID:   input.ListingID,
		BuyerID:     input.BuyerID,
		SellerID:    listing.SellerID,
		ScheduledAt: input.ScheduledAt,
		Status:      "scheduled",
	}
	if err := uc.appointmentRepo.Create(ctx, appointment); err != nil {
		return nil, err
	}

	uc.broadcaster.SendToUser(listing.SellerID, "appointment-created", map[string]interface{}{
		"appointmentId": appointment.ID,
		"listingId":     input.ListingID,
		"buyerId":       input.BuyerID,
		"scheduledAt":   input.ScheduledAt,
	})

	return appointment, nil
}

// ListMyAppointments returns the caller's appointments, honoring the
// per-side hidden flags.
func (uc *ChatUseCase) ListMyAppointments(ctx context.Context, userID string) ([]*entity.Appointment, error) {
	appointments, err := uc.appointmentRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	visible := make([]*entity.Appointment, 0, len(appointments))
	for _, appointment := range appointments {
		if appointment.BuyerID == userID && appointment.HiddenForBuyer {
			continue
		}
		if appointment.SellerID == userID && appointment.HiddenForSeller {
			continue
		}
		visible = append(visible, appointment)
	}
	return visible, nil
}

type AppointmentDetail struct {
	Appointment *entity.Appointment `json:"appointment"`
	Listing     *entity.Listing     `json:"listing,omitempty"`
}

// GetAppointmentDetail returns the appointment together with its listing
// document. A missing listing is not an error; the appointment stands on
// its own.
func (uc *ChatUseCase) GetAppointmentDetail(ctx context.Context, appointmentID, userID string) (*AppointmentDetail, error) {
	appointment, _, err := uc.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: appointment}
	if appointment.ListingID != "" {
		listing, err := uc.listingRepo.GetByID(ctx, appointment.ListingID)
		if err != nil {
			if !errors.Is(err, "NOT_FOUND") {
				logger.Warn("Failed to load listing %s: %v", appointment.ListingID, err)
			}
		} else {
			detail.Listing = listing
		}
	}
	return detail, nil
}

// CanAccess checks room access for a user without returning the document.
func (uc *ChatUseCase) CanAccess(ctx context.Context, appointmentID, userID string) error {
	_, _, err := uc.authorize(ctx, appointmentID, userID)
	return err
}

type AppendCommentInput struct {
	AppointmentID string
	SenderID      string
	Type          string
	Message       string
	ImageURL      string
	VideoURL      string
	DocumentURL   string
	AudioURL      string
	FileName      string
	MimeType      string
	ReplyTo       string
}

// authorize loads the appointment and checks that userID is a participant
// or an approved admin. Returns the appointment and whether the caller is
// acting as admin.
func (uc *ChatUseCase) authorize(ctx context.Context, appointmentID, userID string) (*entity.Appointment, bool, error) {
	appointment, err := uc.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, false, err
	}

	if appointment.IsParticipant(userID) {
		return appointment, false, nil
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, false, errors.Forbidden("You don't have access to this appointment", nil)
		}
		return nil, false, err
	}
	if !user.IsAdmin() {
		return nil, false, errors.Forbidden("You don't have access to this appointment", nil)
	}

	return appointment, true, nil
}

// recipients returns the users who should receive a comment from sender:
// the other participant for a buyer/seller sender, both participants for an
// admin sender.
func recipients(appointment *entity.Appointment, senderID string) []string {
	if other := appointment.OtherParticipant(senderID); other != "" {
		return []string{other}
	}
	return []string{appointment.BuyerID, appointment.SellerID}
}

func (uc *ChatUseCase) AppendComment(ctx context.Context, input AppendCommentInput) (*entity.Comment, error) {
	if err := validateCommentPayload(input); err != nil {
		return nil, err
	}

	appointment, _, err := uc.authorize(ctx, input.AppointmentID, input.SenderID)
	if err != nil {
		return nil, err
	}

	sender, err := uc.userRepo.GetByID(ctx, input.SenderID)
	if err != nil {
		return nil, err
	}

	targets := recipients(appointment, input.SenderID)

	// Delivery is evaluated at append time: any intended recipient online
	// means the message lands as delivered straight away.
	now := time.Now()
	comment := entity.Comment{
		ID:          uuid.New().String(),
		SenderID:    input.SenderID,
		SenderName:  sender.Username,
		Type:        input.Type,
		Message:     input.Message,
		ImageURL:    input.ImageURL,
		VideoURL:    input.VideoURL,
		DocumentURL: input.DocumentURL,
		AudioURL:    input.AudioURL,
		FileName:    input.FileName,
		MimeType:    input.MimeType,
		ReplyTo:     input.ReplyTo,
		Status:      entity.CommentStatusSent,
		Timestamp:   now,
		ReadBy:      []string{input.SenderID},
	}

	anyOnline := false
	for _, target := range targets {
		online, _, perr := uc.presence.IsOnline(ctx, target)
		if perr != nil {
			logger.Warn("Presence check failed for %s: %v", target, perr)
			continue
		}
		if online {
			anyOnline = true
			break
		}
	}
	if anyOnline {
		comment.Status = entity.CommentStatusDelivered
		comment.DeliveredAt = &now
	}

	updated, err := uc.appointmentRepo.Mutate(ctx, input.AppointmentID, func(a *entity.Appointment) error {
		if input.ReplyTo != "" && a.FindComment(input.ReplyTo) == nil {
			return errors.BadRequest("Replied-to message not found", nil)
		}
		a.Comments = append(a.Comments, comment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	stored := updated.FindComment(comment.ID)

	uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(input.AppointmentID), "comment-added", map[string]interface{}{
		"appointmentId": input.AppointmentID,
		"comment":       stored,
	}, "")
	for _, target := range targets {
		uc.broadcaster.SendToUser(target, "comment-added", map[string]interface{}{
			"appointmentId": input.AppointmentID,
			"comment":       stored,
		})
	}

	if !anyOnline {
		uc.notifier.Dispatch(ctx, notification.Event{
			Type:          notification.EventNewMessage,
			AppointmentID: input.AppointmentID,
			CallerID:      input.SenderID,
			Timestamp:     now,
		})
	}

	return stored, nil
}

func validateCommentPayload(input AppendCommentInput) error {
	switch input.Type {
	case entity.CommentTypeText:
		if strings.TrimSpace(input.Message) == "" {
			return errors.BadRequest("Message text is required", nil)
		}
	case entity.CommentTypeImage:
		if input.ImageURL == "" {
			return errors.BadRequest("Image URL is required", nil)
		}
	case entity.CommentTypeVideo:
		if input.VideoURL == "" {
			return errors.BadRequest("Video URL is required", nil)
		}
	case entity.CommentTypeDocument:
		if input.DocumentURL == "" {
			return errors.BadRequest("Document URL is required", nil)
		}
	case entity.CommentTypeAudio:
		if input.AudioURL == "" {
			return errors.BadRequest("Audio URL is required", nil)
		}
	default:
		return errors.BadRequest("Unknown comment type", nil)
	}
	return nil
}

// EditComment replaces the text of a text comment. Editing to the same
// trimmed content is a no-op that emits nothing.
func (uc *ChatUseCase) EditComment(ctx context.Context, appointmentID, commentID, userID, newMessage string) (*entity.Comment, error) {
	newMessage = strings.TrimSpace(newMessage)
	if newMessage == "" {
		return nil, errors.BadRequest("Message text is required", nil)
	}

	_, isAdmin, err := uc.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}

	changed := false
	updated, err := uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		comment := a.FindComment(commentID)
		if comment == nil {
			return errors.NotFound("Comment", nil)
		}
		if comment.Deleted {
			return errors.BadRequest("Cannot edit a deleted message", nil)
		}
		if comment.SenderID != userID && !isAdmin {
			return errors.Forbidden("Only the sender can edit this message", nil)
		}
		if comment.Type != entity.CommentTypeText {
			return errors.BadRequest("Only text messages can be edited", nil)
		}
		if strings.TrimSpace(comment.Message) == newMessage {
			return repository.ErrNoChange
		}
		now := time.Now()
		comment.Message = newMessage
		comment.Edited = true
		comment.EditedAt = &now
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	stored := updated.FindComment(commentID)
	if changed {
		uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(appointmentID), "comment-updated", map[string]interface{}{
			"appointmentId": appointmentID,
			"comment":       stored,
		}, "")
	}

	return stored, nil
}

// DeleteCommentForEveryone tombstones comments. The original content is
// captured on the first deletion only, so repeated deletes cannot overwrite
// provenance. Ids that are missing or (for non-admin actors) not owned by
// the actor are skipped rather than failing the batch; a single-id call
// keeps the strict error so a plain delete still reports what went wrong.
func (uc *ChatUseCase) DeleteCommentForEveryone(ctx context.Context, appointmentID, userID string, commentIDs []string) error {
	if len(commentIDs) == 0 {
		return errors.BadRequest("No messages selected", nil)
	}

	_, isAdmin, err := uc.authorize(ctx, appointmentID, userID)
	if err != nil {
		return err
	}

	strict := len(commentIDs) == 1

	var deletedIDs []string
	_, err = uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		deletedIDs = deletedIDs[:0]
		for _, commentID := range commentIDs {
			comment := a.FindComment(commentID)
			if comment == nil {
				if strict {
					return errors.NotFound("Comment", nil)
				}
				continue
			}
			if comment.SenderID != userID && !isAdmin {
				if strict {
					return errors.Forbidden("Only the sender can delete this message", nil)
				}
				continue
			}
			if comment.Deleted {
				continue
			}
			now := time.Now()
			comment.OriginalMessage = comment.Message
			comment.OriginalImageURL = comment.ImageURL
			comment.Deleted = true
			comment.DeletedBy = userID
			comment.DeletedAt = &now
			comment.Message = deletedMessagePlaceholder
			comment.ImageURL = ""
			comment.VideoURL = ""
			comment.DocumentURL = ""
			comment.AudioURL = ""
			deletedIDs = append(deletedIDs, commentID)
		}
		if len(deletedIDs) == 0 {
			return repository.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(deletedIDs) > 0 {
		uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(appointmentID), "comment-deleted", map[string]interface{}{
			"appointmentId": appointmentID,
			"commentIds":    deletedIDs,
			"deletedBy":     userID,
		}, "")
	}

	return nil
}

// RemoveCommentForMe hides a comment from the caller only. Idempotent.
func (uc *ChatUseCase) RemoveCommentForMe(ctx context.Context, appointmentID, commentID, userID string) error {
	if _, _, err := uc.authorize(ctx, appointmentID, userID); err != nil {
		return err
	}

	_, err := uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		comment := a.FindComment(commentID)
		if comment == nil {
			return errors.NotFound("Comment", nil)
		}
		if comment.RemovedForUser(userID) {
			return repository.ErrNoChange
		}
		comment.RemovedFor = append(comment.RemovedFor, userID)
		return nil
	})
	return err
}

// ClearAllComments wipes the appointment's entire chat. Admin-only, and the
// admin must re-enter their account password to confirm.
func (uc *ChatUseCase) ClearAllComments(ctx context.Context, appointmentID, adminID, password string) error {
	admin, err := uc.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin.IsAdmin() {
		return errors.Forbidden("Admin access required", nil)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return errors.Unauthorized("Incorrect password", nil)
	}

	_, err = uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		if len(a.Comments) == 0 {
			return errors.BadRequest("Chat is already empty", nil)
		}
		a.Comments = []entity.Comment{}
		return nil
	})
	if err != nil {
		return err
	}

	uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(appointmentID), "chat-cleared", map[string]interface{}{
		"appointmentId": appointmentID,
		"clearedBy":     adminID,
	}, "")

	return nil
}

// StarComment toggles the caller's star on a comment.
func (uc *ChatUseCase) StarComment(ctx context.Context, appointmentID, commentID, userID string) (bool, error) {
	if _, _, err := uc.authorize(ctx, appointmentID, userID); err != nil {
		return false, err
	}

	starred := false
	_, err := uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		comment := a.FindComment(commentID)
		if comment == nil {
			return errors.NotFound("Comment", nil)
		}
		if comment.StarredByUser(userID) {
			kept := comment.StarredBy[:0]
			for _, id := range comment.StarredBy {
				if id != userID {
					kept = append(kept, id)
				}
			}
			comment.StarredBy = kept
			return nil
		}
		comment.StarredBy = append(comment.StarredBy, userID)
		starred = true
		return nil
	})
	return starred, err
}

type PinCommentInput struct {
	AppointmentID string
	CommentID     string
	UserID        string
	Pinned        bool
	Duration      string
	CustomHours   int
}

func (uc *ChatUseCase) PinComment(ctx context.Context, input PinCommentInput) (*entity.Comment, error) {
	_, _, err := uc.authorize(ctx, input.AppointmentID, input.UserID)
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if input.Pinned {
		now := time.Now()
		switch input.Duration {
		case entity.PinDuration24Hours:
			t := now.Add(24 * time.Hour)
			expiresAt = &t
		case entity.PinDuration7Days:
			t := now.Add(7 * 24 * time.Hour)
			expiresAt = &t
		case entity.PinDuration30Days:
			t := now.Add(30 * 24 * time.Hour)
			expiresAt = &t
		case entity.PinDurationCustom:
			if input.CustomHours <= 0 {
				return nil, errors.BadRequest("Custom pin duration must be positive", nil)
			}
			t := now.Add(time.Duration(input.CustomHours) * time.Hour)
			expiresAt = &t
		default:
			return nil, errors.BadRequest("Unknown pin duration", nil)
		}
	}

	updated, err := uc.appointmentRepo.Mutate(ctx, input.AppointmentID, func(a *entity.Appointment) error {
		comment := a.FindComment(input.CommentID)
		if comment == nil {
			return errors.NotFound("Comment", nil)
		}
		if comment.Deleted {
			return errors.BadRequest("Cannot pin a deleted message", nil)
		}
		if input.Pinned {
			now := time.Now()
			comment.Pinned = true
			comment.PinnedBy = input.UserID
			comment.PinnedAt = &now
			comment.PinDuration = input.Duration
			comment.PinExpiresAt = expiresAt
		} else {
			comment.Pinned = false
			comment.PinnedBy = ""
			comment.PinnedAt = nil
			comment.PinDuration = ""
			comment.PinExpiresAt = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stored := updated.FindComment(input.CommentID)
	uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(input.AppointmentID), "comment-pinned", map[string]interface{}{
		"appointmentId": input.AppointmentID,
		"comment":       stored,
		"pinned":        input.Pinned,
	}, "")

	return stored, nil
}

// ReactToComment enforces at most one reaction per user per comment:
// reacting with the same emoji again removes it, a different emoji replaces
// the existing one.
func (uc *ChatUseCase) ReactToComment(ctx context.Context, appointmentID, commentID, userID, emoji string) (*entity.Comment, error) {
	if emoji == "" {
		return nil, errors.BadRequest("Emoji is required", nil)
	}

	_, _, err := uc.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated, err := uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		comment := a.FindComment(commentID)
		if comment == nil {
			return errors.NotFound("Comment", nil)
		}

		kept := comment.Reactions[:0]
		removedSame := false
		for _, reaction := range comment.Reactions {
			if reaction.UserID == userID {
				if reaction.Emoji == emoji {
					removedSame = true
				}
				continue
			}
			kept = append(kept, reaction)
		}
		comment.Reactions = kept

		if !removedSame {
			comment.Reactions = append(comment.Reactions, entity.Reaction{
				Emoji:     emoji,
				UserID:    userID,
				UserName:  user.Username,
				Timestamp: time.Now(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stored := updated.FindComment(commentID)
	uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(appointmentID), "comment-reaction", map[string]interface{}{
		"appointmentId": appointmentID,
		"comment":       stored,
	}, "")

	return stored, nil
}

// MarkAllRead marks every message the caller has not yet read. The status
// field only ever moves forward; a message still in sent jumps straight to
// read.
func (uc *ChatUseCase) MarkAllRead(ctx context.Context, appointmentID, userID string) error {
	if _, _, err := uc.authorize(ctx, appointmentID, userID); err != nil {
		return err
	}

	var readIDs []string
	_, err := uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		now := time.Now()
		for i := range a.Comments {
			comment := &a.Comments[i]
			if comment.SenderID == userID || comment.ReadByUser(userID) {
				continue
			}
			comment.ReadBy = append(comment.ReadBy, userID)
			if comment.Status != entity.CommentStatusRead {
				comment.Status = entity.CommentStatusRead
				comment.ReadAt = &now
			}
			readIDs = append(readIDs, comment.ID)
		}
		if len(readIDs) == 0 {
			return repository.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(readIDs) > 0 {
		uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(appointmentID), "messages-read", map[string]interface{}{
			"appointmentId": appointmentID,
			"commentIds":    readIDs,
			"readBy":        userID,
		}, "")
	}

	return nil
}

func (uc *ChatUseCase) ListComments(ctx context.Context, appointmentID, userID string) ([]entity.Comment, error) {
	appointment, _, err := uc.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}

	comments := make([]entity.Comment, 0, len(appointment.Comments))
	for _, comment := range appointment.Comments {
		if comment.RemovedForUser(userID) {
			continue
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

// ListActivePins filters, never sweeps: expired pins stay pinned in storage
// and simply stop appearing here.
func (uc *ChatUseCase) ListActivePins(ctx context.Context, appointmentID, userID string) ([]entity.Comment, error) {
	appointment, _, err := uc.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var pins []entity.Comment
	for _, comment := range appointment.Comments {
		if comment.Deleted || comment.RemovedForUser(userID) {
			continue
		}
		if comment.PinActive(now) {
			pins = append(pins, comment)
		}
	}
	return pins, nil
}

func (uc *ChatUseCase) ListStarred(ctx context.Context, appointmentID, userID string) ([]entity.Comment, error) {
	appointment, _, err := uc.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}

	var starred []entity.Comment
	for _, comment := range appointment.Comments {
		if comment.RemovedForUser(userID) {
			continue
		}
		if comment.StarredByUser(userID) {
			starred = append(starred, comment)
		}
	}
	return starred, nil
}

// SetChatLock puts a password gate on the caller's side of the chat.
func (uc *ChatUseCase) SetChatLock(ctx context.Context, appointmentID, userID, password string) error {
	if len(password) < 4 {
		return errors.BadRequest("Chat lock password must be at least 4 characters", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal("Failed to hash chat lock password", err)
	}

	_, err = uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		if !a.IsParticipant(userID) {
			return errors.Forbidden("You don't have access to this appointment", nil)
		}
		lock := &entity.ChatLock{
			Enabled:      true,
			PasswordHash: string(hash),
			SetAt:        time.Now(),
		}
		if userID == a.BuyerID {
			a.BuyerChatLock = lock
		} else {
			a.SellerChatLock = lock
		}
		return nil
	})
	return err
}

// VerifyChatLock checks the password and grants the transient access flag.
func (uc *ChatUseCase) VerifyChatLock(ctx context.Context, appointmentID, userID, password string) error {
	_, err := uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		if !a.IsParticipant(userID) {
			return errors.Forbidden("You don't have access to this appointment", nil)
		}
		lock := a.ChatLockFor(userID)
		if lock == nil || !lock.Enabled {
			return errors.BadRequest("Chat is not locked", nil)
		}
		if bcrypt.CompareHashAndPassword([]byte(lock.PasswordHash), []byte(password)) != nil {
			return errors.Unauthorized("Incorrect chat lock password", nil)
		}
		lock.AccessGranted = true
		return nil
	})
	return err
}

// CloseChat resets the caller's transient access flag so the lock applies
// again next time they open the conversation.
func (uc *ChatUseCase) CloseChat(ctx context.Context, appointmentID, userID string) error {
	_, err := uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		if !a.IsParticipant(userID) {
			return errors.Forbidden("You don't have access to this appointment", nil)
		}
		lock := a.ChatLockFor(userID)
		if lock == nil || !lock.AccessGranted {
			return repository.ErrNoChange
		}
		lock.AccessGranted = false
		return nil
	})
	return err
}

// ForgotChatLock is the escape hatch for a lost chat-lock password: the
// lock is removed and the entire conversation is irreversibly cleared.
func (uc *ChatUseCase) ForgotChatLock(ctx context.Context, appointmentID, userID string) error {
	_, err := uc.appointmentRepo.Mutate(ctx, appointmentID, func(a *entity.Appointment) error {
		if !a.IsParticipant(userID) {
			return errors.Forbidden("You don't have access to this appointment", nil)
		}
		lock := a.ChatLockFor(userID)
		if lock == nil || !lock.Enabled {
			return errors.BadRequest("Chat is not locked", nil)
		}
		if userID == a.BuyerID {
			a.BuyerChatLock = nil
		} else {
			a.SellerChatLock = nil
		}
		a.Comments = []entity.Comment{}
		return nil
	})
	if err != nil {
		return err
	}

	uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(appointmentID), "chat-cleared", map[string]interface{}{
		"appointmentId": appointmentID,
		"clearedBy":     userID,
		"reason":        "forgot-chat-lock",
	}, "")

	return nil
}

// HandleUserOnline flips the user's pending inbound messages from sent to
// delivered across all their appointments. Called on the offline-to-online
// presence edge.
func (uc *ChatUseCase) HandleUserOnline(ctx context.Context, userID string) {
	appointments, err := uc.appointmentRepo.ListByParticipant(ctx, userID)
	if err != nil {
		logger.Error("Failed to list appointments for delivery sweep of %s: %v", userID, err)
		return
	}

	for _, appointment := range appointments {
		pending := false
		for _, comment := range appointment.Comments {
			if comment.SenderID != userID && comment.Status == entity.CommentStatusSent && !comment.ReadByUser(userID) {
				pending = true
				break
			}
		}
		if !pending {
			continue
		}

		var deliveredIDs []string
		_, err := uc.appointmentRepo.Mutate(ctx, appointment.ID, func(a *entity.Appointment) error {
			now := time.Now()
			for i := range a.Comments {
				comment := &a.Comments[i]
				if comment.SenderID == userID || comment.Status != entity.CommentStatusSent || comment.ReadByUser(userID) {
					continue
				}
				comment.Status = entity.CommentStatusDelivered
				comment.DeliveredAt = &now
				deliveredIDs = append(deliveredIDs, comment.ID)
			}
			return nil
		})
		if err != nil {
			logger.Error("Delivery sweep failed for appointment %s: %v", appointment.ID, err)
			continue
		}

		if len(deliveredIDs) > 0 {
			uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(appointment.ID), "message-delivered", map[string]interface{}{
				"appointmentId": appointment.ID,
				"commentIds":    deliveredIDs,
			}, "")
			if other := appointment.OtherParticipant(userID); other != "" {
				uc.broadcaster.SendToUser(other, "message-delivered", map[string]interface{}{
					"appointmentId": appointment.ID,
					"commentIds":    deliveredIDs,
				})
			}
		}
	}
}

// HandleTyping relays a typing indicator to the rest of the appointment
// room. Best-effort; no persistence.
func (uc *ChatUseCase) HandleTyping(appointmentID, userID, socketID string, isTyping bool) {
	uc.broadcaster.BroadcastToRoom(ws.AppointmentRoom(appointmentID), "typing", map[string]interface{}{
		"appointmentId": appointmentID,
		"userId":        userID,
		"isTyping":      isTyping,
	}, socketID)
}
