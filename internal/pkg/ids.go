package pkg

import "github.com/google/uuid"

// NewID - random identifier for rooms and local sessions.
func NewID() string {
	return uuid.NewString()
}

// NewSessionID - identifier of a connected UI context, stored in the session cookie.
func NewSessionID() string {
	return uuid.NewString()
}
