package model

import "time"

// Session is a server-side record backing one issued credential. A login
// creates two of them: a short-lived access session and a long-lived
// refresh session. Sessions are immutable; renewal always creates a new one.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	IP         string    `json:"ip"`
	IsRefresh  bool      `json:"is_refresh"`
	ValidUntil time.Time `json:"valid_until"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the session is no longer usable at now.
// A session whose validity ends exactly at now is already expired.
func (s Session) Expired(now time.Time) bool {
	return !s.ValidUntil.After(now)
}
