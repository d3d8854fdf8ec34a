// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// Messages are immutable once written.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// HeartbeatToken is the application-level keepalive text some clients send
// to keep intermediary proxies from closing an idle connection. It is not
// a chat message: it must never be persisted, broadcast, or returned from
// history reads. Transport-level ping/pong liveness is a separate layer.
const HeartbeatToken = "ping"

// Message represents an immutable chat or system record for one channel.
type Message struct {
	ID       uuid.UUID
	Channel  string
	Username string
	Content  string
	Lang     string // ISO 639-1 code detected at post time, empty if unknown
	System   bool   // true for join/leave notices
	At       time.Time
}

// IsHeartbeat reports whether the record carries the keepalive token.
func (m Message) IsHeartbeat() bool {
	return m.Content == HeartbeatToken
}
