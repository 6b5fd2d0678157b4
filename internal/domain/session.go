package domain

import "time"

// SessionTTL is the lifetime of an issued session token and of the cookie
// carrying it. Both are derived from this one value.
const SessionTTL = time.Hour

// SessionCookieName is the cookie the verify endpoint sets.
const SessionCookieName = "authToken"

// Session is the result of a successful code redemption.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
