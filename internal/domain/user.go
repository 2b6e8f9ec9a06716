package domain

import (
	"slices"
	"time"
)

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleAdmin grants full administrative access, including every library file.
	RoleAdmin Role = "admin"
	// RoleUser grants access scoped by explicit book and tag grants.
	RoleUser Role = "user"
)

// GrantAll is the sentinel grant value meaning "every book" or "every tag".
const GrantAll = "all"

// Permissions defines which e-library content a user may access.
// Books holds decimal BookID strings (or the GrantAll sentinel);
// Tags holds tag slugs (or the sentinel). Both lists are additive:
// matching either one is enough to read a book's files.
type Permissions struct {
	Books []string `json:"books"`
	Tags  []string `json:"tags"`
}

// AllowsBook reports whether the permissions grant access to the given BookID string.
func (p Permissions) AllowsBook(bookID string) bool {
	return slices.Contains(p.Books, GrantAll) || slices.Contains(p.Books, bookID)
}

// AllowsAnyTag reports whether the permissions grant access to any of the given tags.
func (p Permissions) AllowsAnyTag(tags []string) bool {
	if slices.Contains(p.Tags, GrantAll) {
		return len(tags) > 0
	}
	for _, tag := range tags {
		if slices.Contains(p.Tags, tag) {
			return true
		}
	}
	return false
}

// CanAccess is the single authorization predicate for e-library content.
// It is total over the closed role set: admins bypass all grants, users
// need a book grant OR a tag grant (matching either one admits the user —
// the grants are additive, not both-required), anything else is denied.
//
// Both the file gate and the catalog listing go through this function so
// the two can never disagree about what a caller may see.
func CanAccess(role Role, perms Permissions, book *Book) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleUser:
		return perms.AllowsBook(book.BookIDString()) || perms.AllowsAnyTag(book.Tags)
	default:
		// Unknown role: deny.
		return false
	}
}

// User represents an account in the system.
type User struct {
	Record
	Email        string      `json:"email"`
	PasswordHash string      `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	Role         Role        `json:"role"`
	DisplayName  string      `json:"display_name"`
	AvatarColor  string      `json:"avatar_color,omitempty"`
	LastLoginAt  time.Time   `json:"last_login_at"`
	Permissions  Permissions `json:"permissions"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanAccess reports whether the user may read the given book's files.
func (u *User) CanAccess(book *Book) bool {
	return CanAccess(u.Role, u.Permissions, book)
}

// Session represents an active login with its refresh token.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash,omitempty"` // Stored hashed, filter from API responses
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
}

// Touch updates the session's last seen timestamp.
func (s *Session) Touch() {
	s.LastSeenAt = time.Now()
}

// IsExpired checks if the session has passed its expiration time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
