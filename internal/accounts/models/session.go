package models

import (
	"time"

	id "vatfiler/pkg/domain"
)

// Session is a logged-in browser. Token is the opaque cookie value.
type Session struct {
	Token     string         `json:"-"`
	AccountID id.AccountID   `json:"account_id"`
	Email     string         `json:"email"`
	Role      id.AccountType `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// IsExpired reports whether the session is no longer usable at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
