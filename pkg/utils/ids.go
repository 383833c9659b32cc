package utils

import "github.com/google/uuid"

// NewRequestID returns a random request correlation id.
func NewRequestID() string {
	return uuid.NewString()
}

// ValidRequestID accepts client supplied ids that are short printable tokens.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		if r < '!' || r > '~' {
			return false
		}
	}
	return true
}
