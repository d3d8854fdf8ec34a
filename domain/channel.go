// This file defines Channel metadata owned by the relational store.
// The messaging core treats channel existence and ownership as read-only
// input validated before a session is created.
package domain

import "time"

// Channel is the metadata record for one named channel.
type Channel struct {
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account in the relational metadata store.
// The password hash never leaves the auth boundary.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
