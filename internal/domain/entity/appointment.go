package entity

import "time"

// Comment content variants. Each comment carries exactly one payload.
const (
	CommentTypeText     = "text"
	CommentTypeImage    = "image"
	CommentTypeVideo    = "video"
	CommentTypeDocument = "document"
	CommentTypeAudio    = "audio"
)

// Delivery states for a comment. Transitions are monotonic:
// sent -> delivered -> read, with sent -> read permitted when a recipient
// reads before a delivery event was recorded.
const (
	CommentStatusSent      = "sent"
	CommentStatusDelivered = "delivered"
	CommentStatusRead      = "read"
)

const (
	PinDuration24Hours = "24hrs"
	PinDuration7Days   = "7days"
	PinDuration30Days  = "30days"
	PinDurationCustom  = "custom"
)

type Reaction struct {
	Emoji     string    `json:"emoji" firestore:"emoji"`
	UserID    string    `json:"user_id" firestore:"userId"`
	UserName  string    `json:"user_name" firestore:"userName"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

type Comment struct {
	ID         string `json:"id" firestore:"id"`
	SenderID   string `json:"sender_id" firestore:"senderId"`
	SenderName string `json:"sender_name" firestore:"senderName"`
	Type       string `json:"type" firestore:"type"`

	Message     string `json:"message,omitempty" firestore:"message,omitempty"`
	ImageURL    string `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	VideoURL    string `json:"video_url,omitempty" firestore:"videoUrl,omitempty"`
	DocumentURL string `json:"document_url,omitempty" firestore:"documentUrl,omitempty"`
	AudioURL    string `json:"audio_url,omitempty" firestore:"audioUrl,omitempty"`
	FileName    string `json:"file_name,omitempty" firestore:"fileName,omitempty"`
	MimeType    string `json:"mime_type,omitempty" firestore:"mimeType,omitempty"`

	ReplyTo string `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`

	Status      string     `json:"status" firestore:"status"`
	Timestamp   time.Time  `json:"timestamp" firestore:"timestamp"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" firestore:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty" firestore:"readAt,omitempty"`
	ReadBy      []string   `json:"read_by" firestore:"readBy"`

	Deleted   bool       `json:"deleted,omitempty" firestore:"deleted,omitempty"`
	DeletedBy string     `json:"deleted_by,omitempty" firestore:"deletedBy,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" firestore:"deletedAt,omitempty"`
	// Original content is preserved exactly once, on the first deletion,
	// so the tombstone keeps its provenance.
	OriginalMessage  string `json:"original_message,omitempty" firestore:"originalMessage,omitempty"`
	OriginalImageURL string `json:"original_image_url,omitempty" firestore:"originalImageUrl,omitempty"`

	RemovedFor []string `json:"removed_for,omitempty" firestore:"removedFor,omitempty"`

	Edited   bool       `json:"edited,omitempty" firestore:"edited,omitempty"`
	EditedAt *time.Time `json:"edited_at,omitempty" firestore:"editedAt,omitempty"`

	StarredBy []string `json:"starred_by,omitempty" firestore:"starredBy,omitempty"`

	Pinned       bool       `json:"pinned,omitempty" firestore:"pinned,omitempty"`
	PinnedBy     string     `json:"pinned_by,omitempty" firestore:"pinnedBy,omitempty"`
	PinnedAt     *time.Time `json:"pinned_at,omitempty" firestore:"pinnedAt,omitempty"`
	PinExpiresAt *time.Time `json:"pin_expires_at,omitempty" firestore:"pinExpiresAt,omitempty"`
	PinDuration  string     `json:"pin_duration,omitempty" firestore:"pinDuration,omitempty"`

	Reactions []Reaction `json:"reactions,omitempty" firestore:"reactions,omitempty"`
}

// PinActive reports whether the comment counts as pinned at the given
// moment. Expired pins are filtered out by readers, never swept.
func (c *Comment) PinActive(now time.Time) bool {
	if !c.Pinned {
		return false
	}
	if c.PinExpiresAt == nil {
		return true
	}
	return c.PinExpiresAt.After(now)
}

func (c *Comment) ReadByUser(userID string) bool {
	for _, id := range c.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Comment) RemovedForUser(userID string) bool {
	for _, id := range c.RemovedFor {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Comment) StarredByUser(userID string) bool {
	for _, id := range c.StarredBy {
		if id == userID {
			return true
		}
	}
	return false
}

// ChatLock is the optional password gate one participant side can put on
// the appointment conversation. AccessGranted is transient and resets when
// that participant closes the chat view.
type ChatLock struct {
	Enabled       bool      `json:"enabled" firestore:"enabled"`
	PasswordHash  string    `json:"-" firestore:"passwordHash,omitempty"`
	AccessGranted bool      `json:"access_granted" firestore:"accessGranted"`
	SetAt         time.Time `json:"set_at" firestore:"setAt"`
}

type Appointment struct {
	ID        string `json:"id" firestore:"id"`
	ListingID string `json:"listing_id" firestore:"listingId"`
	BuyerID   string `json:"buyer_id" firestore:"buyerId"`
	SellerID  string `json:"seller_id" firestore:"sellerId"`

	ScheduledAt time.Time `json:"scheduled_at" firestore:"scheduledAt"`
	Status      string    `json:"status" firestore:"status"`

	Comments []Comment `json:"comments" firestore:"comments"`

	BuyerChatLock  *ChatLock `json:"buyer_chat_lock,omitempty" firestore:"buyerChatLock,omitempty"`
	SellerChatLock *ChatLock `json:"seller_chat_lock,omitempty" firestore:"sellerChatLock,omitempty"`

	// Visibility flags hide the appointment from the respective list views
	// without deleting any data.
	HiddenForBuyer  bool `json:"hidden_for_buyer,omitempty" firestore:"hiddenForBuyer,omitempty"`
	HiddenForSeller bool `json:"hidden_for_seller,omitempty" firestore:"hiddenForSeller,omitempty"`
	HiddenFromAdmin bool `json:"hidden_from_admin,omitempty" firestore:"hiddenFromAdmin,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (a *Appointment) IsParticipant(userID string) bool {
	return userID == a.BuyerID || userID == a.SellerID
}

// OtherParticipant returns the counterpart of userID, or "" when userID is
// not a participant.
func (a *Appointment) OtherParticipant(userID string) string {
	switch userID {
	case a.BuyerID:
		return a.SellerID
	case a.SellerID:
		return a.BuyerID
	}
	return ""
}

func (a *Appointment) FindComment(commentID string) *Comment {
	for i := range a.Comments {
		if a.Comments[i].ID == commentID {
			return &a.Comments[i]
		}
	}
	return nil
}

// ChatLockFor returns the lock owned by the given participant side.
func (a *Appointment) ChatLockFor(userID string) *ChatLock {
	switch userID {
	case a.BuyerID:
		return a.BuyerChatLock
	case a.SellerID:
		return a.SellerChatLock
	}
	return nil
}
