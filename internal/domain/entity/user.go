package entity

import "time"

const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleRootAdmin = "root-admin"

	StatusPending  = "pending"
	StatusApproved = "approved"
)

type User struct {
	ID       string `json:"id" firestore:"id"`
	Email    string `json:"email" firestore:"email"`
	Username string `json:"username" firestore:"username"`
	Phone    string `json:"phone,omitempty" firestore:"phone,omitempty"`
	Role     string `json:"role" firestore:"role"`
	Status   string `json:"status" firestore:"status"`

	// PasswordHash is re-verified on destructive admin operations such as
	// clearing an appointment's chat. Login itself is handled by Firebase.
	PasswordHash string `json:"-" firestore:"passwordHash,omitempty"`

	AvatarURL    string    `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`
	LastSeen     time.Time `json:"last_seen" firestore:"lastSeen"`
	OnlineStatus string    `json:"online_status" firestore:"onlineStatus"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// IsAdmin reports whether the user may act in the admin capacity. A plain
// admin additionally needs an approved status; root admins always qualify.
func (u *User) IsAdmin() bool {
	if u.Role == RoleRootAdmin {
		return true
	}
	return u.Role == RoleAdmin && u.Status == StatusApproved
}
