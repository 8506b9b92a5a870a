// Package profiles stores the display profile of each signed-in user.
package profiles

import (
	"strings"
	"time"

	"github.com/JaimeStill/microfinder/internal/auth"
)

// Profile is keyed by the auth user id.
type Profile struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// UpdateCommand replaces both editable fields.
type UpdateCommand struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// Identity reports the signed-in user.
type Identity interface {
	User() (auth.User, bool)
}

const (
	defaultUsername = "user"
	defaultFullName = "New User"
)

// Default derives the profile created on first visit.
func Default(u auth.User) Profile {
	username := metadataString(u, "username")
	if username == "" {
		local, _, _ := strings.Cut(u.Email, "@")
		username = strings.TrimSpace(local)
	}
	if username == "" {
		username = defaultUsername
	}

	fullName := u.FullName()
	if fullName == "" {
		fullName = defaultFullName
	}

	return Profile{ID: u.ID, Username: username, FullName: fullName, Email: u.Email}
}

func metadataString(u auth.User, key string) string {
	s, _ := u.UserMetadata[key].(string)
	return strings.TrimSpace(s)
}
