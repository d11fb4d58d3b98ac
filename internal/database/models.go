package database

import (
	"time"
)

// ActivityKind classifies an incoming interaction for the per-user
// activity counters.
type ActivityKind string

const (
	ActivityText     ActivityKind = "text"
	ActivityPhoto    ActivityKind = "photo"
	ActivityDocument ActivityKind = "document"
)

// UserProfile tracks a user's first/last interaction times and monotonic
// per-kind message counters. Created on first interaction, never deleted.
type UserProfile struct {
	UserID    int64     `db:"user_id"`
	FirstSeen time.Time `db:"first_seen"`
	LastSeen  time.Time `db:"last_seen"`

	MessageCount  int64 `db:"message_count"`
	PhotoCount    int64 `db:"photo_count"`
	DocumentCount int64 `db:"document_count"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TotalActivity returns the sum of all per-kind counters.
func (p *UserProfile) TotalActivity() int64 {
	return p.MessageCount + p.PhotoCount + p.DocumentCount
}

// QuotaRecord counts chargeable requests a user made on a given calendar
// day. The date is a YYYY-MM-DD marker; a stored date different from today
// means the count is stale and logically zero. One row per user, overwritten
// on rollover rather than accumulated. Admins never get a row.
type QuotaRecord struct {
	UserID int64  `db:"user_id"`
	Date   string `db:"date"`
	Count  int    `db:"count"`
}

// MemoryEntry is one (prompt, response) exchange in a user's conversation
// window, ordered by creation time with the autoincrement id as tie-break.
type MemoryEntry struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Prompt    string    `db:"prompt"`
	Response  string    `db:"response"`
	CreatedAt time.Time `db:"created_at"`
}

// SessionStateRow is the persisted per-user session marker. The state
// column holds a symbolic tag validated by the session package.
type SessionStateRow struct {
	UserID    int64     `db:"user_id"`
	State     string    `db:"state"`
	UpdatedAt time.Time `db:"updated_at"`
}
