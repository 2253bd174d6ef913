package utils

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a random UUID as 32 lowercase hex chars, the id format used
// by every table and by sessions.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
