package domain

import "time"

// CodeTTL is how long a freshly issued verification code can be redeemed.
const CodeTTL = time.Hour

// VerificationCode is a one-time magic-link code bound to a user.
// Redeeming it deletes it, so a code is never accepted twice.
type VerificationCode struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Code       string    `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Expired reports whether the code is past its validity window at now.
func (v *VerificationCode) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// LoginRequest is the body of POST /auth/login. The address is not checked for
// shape: a malformed one fails the directory lookup like any unknown one.
type LoginRequest struct {
	UserEmail string `json:"user_email" validate:"required,max=320"`
}
