package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string for verification code rows and email message ids.
// ulid.Make draws from a process-wide monotonic source, so ids minted in the
// same millisecond still sort in creation order.
func New() string {
	return ulid.Make().String()
}
