package entity

import "time"

// Session is the server-side record of the currently valid token pair for a user.
// Only one session per user exists; issuing a new pair replaces it.
type Session struct {
	UserID    string
	Email     string
	Name      string
	SID       string
	CreatedAt time.Time
}
