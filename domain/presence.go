package domain

import "time"

// Status values persisted by the presence tracker.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// UserStatus is the last-known presence of one user in one channel.
// Exactly one current record exists per (channel, username); a transition
// overwrites the previous record. Offline records are sticky: leaving a
// channel marks the user offline, it does not delete the record.
type UserStatus struct {
	Username string    `json:"username"`
	Status   string    `json:"status"`
	At       time.Time `json:"timestamp"`
}

// Online reports whether the status marks the user as connected.
func (s UserStatus) Online() bool {
	return s.Status == StatusOnline
}
