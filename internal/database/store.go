package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the data access layer. It is the sole owner of the users,
// quota_records, memory_entries, session_states, and premium_users tables;
// the manager packages never touch the database directly.
//
// Every mutating operation runs inside its own transaction so that two
// concurrent requests for the same user cannot interleave a read and a
// write inconsistently.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertUserActivity creates the user profile on first interaction and
	// bumps last_seen plus the counter matching kind on every one after.
	UpsertUserActivity(ctx context.Context, userID int64, kind ActivityKind) error

	// GetUserProfile retrieves a user profile. Returns nil, nil if not found.
	GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error)

	// GetAllUserProfiles retrieves all user profiles.
	GetAllUserProfiles(ctx context.Context) ([]*UserProfile, error)

	// GetQuotaRecord retrieves a user's quota row. Returns nil, nil if not found.
	GetQuotaRecord(ctx context.Context, userID int64) (*QuotaRecord, error)

	// IncrementQuota atomically increments the user's count for the given
	// date, resetting the row to (date, 1) when the stored date differs.
	IncrementQuota(ctx context.Context, userID int64, date string) error

	// InsertMemoryEntry appends an exchange and evicts the oldest entries
	// beyond limit in the same transaction.
	InsertMemoryEntry(ctx context.Context, entry *MemoryEntry, limit int) error

	// GetMemoryEntries returns a user's window in chronological order
	// (oldest first, id as tie-break).
	GetMemoryEntries(ctx context.Context, userID int64) ([]MemoryEntry, error)

	// DeleteMemoryEntries removes all of a user's entries. Idempotent.
	DeleteMemoryEntries(ctx context.Context, userID int64) error

	// GetSessionState returns the stored state tag, or "" when absent.
	GetSessionState(ctx context.Context, userID int64) (string, error)

	// SetSessionState upserts the state tag for a user. Last write wins.
	SetSessionState(ctx context.Context, userID int64, state string) error

	// ClearSessionState removes the user's state row. Idempotent.
	ClearSessionState(ctx context.Context, userID int64) error

	// DeleteStaleSessionStates removes states not updated since the cutoff
	// and returns how many were removed.
	DeleteStaleSessionStates(ctx context.Context, cutoff time.Time) (int64, error)

	// IsPremium reports premium set membership.
	IsPremium(ctx context.Context, userID int64) (bool, error)

	// AddPremium inserts into the premium set. Idempotent.
	AddPremium(ctx context.Context, userID int64) error

	// RemovePremium deletes from the premium set. Idempotent.
	RemovePremium(ctx context.Context, userID int64) error

	// ListPremium returns all premium user ids.
	ListPremium(ctx context.Context) ([]int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn inside a transaction with the usual rollback-on-failure
// handling. fn must use the passed tx for all statements.
func (s *sqlxStore) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "op", op, "error", err)
		return fmt.Errorf("failed to begin transaction for %s: %w", op, err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "op", op, "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "op", op, "error", err)
		return fmt.Errorf("failed to commit %s: %w", op, err)
	}
	tx = nil
	return nil
}

// UpsertUserActivity creates or updates the user's profile row and bumps
// the counter matching the activity kind.
func (s *sqlxStore) UpsertUserActivity(ctx context.Context, userID int64, kind ActivityKind) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}

	var counter string
	switch kind {
	case ActivityText:
		counter = "message_count"
	case ActivityPhoto:
		counter = "photo_count"
	case ActivityDocument:
		counter = "document_count"
	default:
		return fmt.Errorf("unknown activity kind %q", kind)
	}

	now := time.Now().UTC()

	// The counter column name comes from the switch above, never from input.
	query := fmt.Sprintf(`
        INSERT INTO users (user_id, first_seen, last_seen, %[1]s, created_at, updated_at)
        VALUES (?, ?, ?, 1, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            last_seen = excluded.last_seen,
            %[1]s = %[1]s + 1,
            updated_at = excluded.updated_at;
    `, counter)

	err := s.inTx(ctx, "upsert user activity", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, userID, now, now, now, now)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting user activity", "user_id", userID, "kind", kind, "error", err)
		return fmt.Errorf("failed to upsert activity for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "User activity recorded", "user_id", userID, "kind", kind)
	return nil
}

// GetUserProfile retrieves a user profile by user ID. Returns nil, nil if not found.
func (s *sqlxStore) GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profile UserProfile
	query := `SELECT user_id, first_seen, last_seen, message_count, photo_count, document_count, created_at, updated_at
	          FROM users WHERE user_id = ?`

	err := s.db.GetContext(ctx, &profile, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user profile", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user profile for user %d: %w", userID, err)
	}

	return &profile, nil
}

// GetAllUserProfiles retrieves all user profiles ordered by first_seen.
func (s *sqlxStore) GetAllUserProfiles(ctx context.Context) ([]*UserProfile, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profiles []*UserProfile
	query := `SELECT user_id, first_seen, last_seen, message_count, photo_count, document_count, created_at, updated_at
	          FROM users ORDER BY first_seen ASC`

	if err := s.db.SelectContext(ctx, &profiles, query); err != nil {
		s.logger.ErrorContext(ctx, "Error getting all user profiles", "error", err)
		return nil, fmt.Errorf("failed to get all user profiles: %w", err)
	}

	return profiles, nil
}

// GetQuotaRecord retrieves a user's quota row. Returns nil, nil if not found.
func (s *sqlxStore) GetQuotaRecord(ctx context.Context, userID int64) (*QuotaRecord, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var record QuotaRecord
	query := `SELECT user_id, date, count FROM quota_records WHERE user_id = ?`

	err := s.db.GetContext(ctx, &record, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting quota record", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get quota record for user %d: %w", userID, err)
	}

	return &record, nil
}

// IncrementQuota increments the user's count for the given date in a single
// upsert. A stored date different from the given one means the count is
// stale, so the row is reset to (date, 1) instead of incremented. The whole
// read-modify-write happens in one statement inside a transaction, so
// concurrent calls for the same user never lose increments.
func (s *sqlxStore) IncrementQuota(ctx context.Context, userID int64, date string) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}
	if date == "" {
		return fmt.Errorf("date cannot be empty")
	}

	query := `
        INSERT INTO quota_records (user_id, date, count)
        VALUES (?, ?, 1)
        ON CONFLICT(user_id) DO UPDATE SET
            count = CASE WHEN quota_records.date = excluded.date THEN quota_records.count + 1 ELSE 1 END,
            date = excluded.date;
    `

	err := s.inTx(ctx, "increment quota", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, userID, date)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error incrementing quota", "user_id", userID, "date", date, "error", err)
		return fmt.Errorf("failed to increment quota for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Quota incremented", "user_id", userID, "date", date)
	return nil
}

// InsertMemoryEntry appends a new exchange and deletes the oldest entries
// in excess of limit within the same transaction, so no subsequent read can
// observe more than limit entries.
func (s *sqlxStore) InsertMemoryEntry(ctx context.Context, entry *MemoryEntry, limit int) error {
	if entry == nil {
		return fmt.Errorf("cannot insert nil memory entry")
	}
	if entry.UserID == 0 {
		return fmt.Errorf("memory entry must have a non-zero user_id")
	}
	if limit <= 0 {
		return fmt.Errorf("memory limit must be positive, got %d", limit)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := s.inTx(ctx, "insert memory entry", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
            INSERT INTO memory_entries (user_id, prompt, response, created_at)
            VALUES (?, ?, ?, ?);
        `, entry.UserID, entry.Prompt, entry.Response, entry.CreatedAt)
		if err != nil {
			return err
		}

		if id, idErr := res.LastInsertId(); idErr == nil {
			entry.ID = id
		} else {
			s.logger.WarnContext(ctx, "Could not retrieve last insert ID for memory entry",
				"user_id", entry.UserID, "error", idErr)
		}

		// Keep only the limit newest entries; (created_at, id) ascending
		// defines oldest, with id as the tie-break for equal timestamps.
		_, err = tx.ExecContext(ctx, `
            DELETE FROM memory_entries
            WHERE user_id = ? AND id NOT IN (
                SELECT id FROM memory_entries
                WHERE user_id = ?
                ORDER BY created_at DESC, id DESC
                LIMIT ?
            );
        `, entry.UserID, entry.UserID, limit)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error inserting memory entry", "user_id", entry.UserID, "error", err)
		return fmt.Errorf("failed to insert memory entry for user %d: %w", entry.UserID, err)
	}

	s.logger.DebugContext(ctx, "Memory entry saved", "user_id", entry.UserID, "entry_id", entry.ID)
	return nil
}

// GetMemoryEntries returns the user's window in chronological order.
func (s *sqlxStore) GetMemoryEntries(ctx context.Context, userID int64) ([]MemoryEntry, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var entries []MemoryEntry
	query := `
        SELECT id, user_id, prompt, response, created_at
        FROM memory_entries
        WHERE user_id = ?
        ORDER BY created_at ASC, id ASC;
    `

	if err := s.db.SelectContext(ctx, &entries, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error getting memory entries", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get memory entries for user %d: %w", userID, err)
	}

	return entries, nil
}

// DeleteMemoryEntries removes all of a user's entries. Idempotent.
func (s *sqlxStore) DeleteMemoryEntries(ctx context.Context, userID int64) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE user_id = ?`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting memory entries", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete memory entries for user %d: %w", userID, err)
	}

	count, _ := result.RowsAffected()
	s.logger.DebugContext(ctx, "Deleted memory entries", "user_id", userID, "count", count)
	return nil
}

// GetSessionState returns the stored state tag, or "" when no row exists.
func (s *sqlxStore) GetSessionState(ctx context.Context, userID int64) (string, error) {
	if userID == 0 {
		return "", fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	var state string
	err := s.db.GetContext(ctx, &state, `SELECT state FROM session_states WHERE user_id = ?`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting session state", "user_id", userID, "error", err)
		return "", fmt.Errorf("failed to get session state for user %d: %w", userID, err)
	}

	return state, nil
}

// SetSessionState upserts the user's state row. Last write wins.
func (s *sqlxStore) SetSessionState(ctx context.Context, userID int64, state string) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}
	if state == "" {
		return fmt.Errorf("state cannot be empty, use ClearSessionState")
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO session_states (user_id, state, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            state = excluded.state,
            updated_at = excluded.updated_at;
    `

	err := s.inTx(ctx, "set session state", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, userID, state, now)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error setting session state", "user_id", userID, "state", state, "error", err)
		return fmt.Errorf("failed to set session state for user %d: %w", userID, err)
	}

	return nil
}

// ClearSessionState removes the user's state row. Idempotent.
func (s *sqlxStore) ClearSessionState(ctx context.Context, userID int64) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_states WHERE user_id = ?`, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error clearing session state", "user_id", userID, "error", err)
		return fmt.Errorf("failed to clear session state for user %d: %w", userID, err)
	}

	return nil
}

// DeleteStaleSessionStates removes states not updated since the cutoff.
func (s *sqlxStore) DeleteStaleSessionStates(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM session_states WHERE updated_at < ?`, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting stale session states", "error", err)
		return 0, fmt.Errorf("failed to delete stale session states: %w", err)
	}

	count, _ := result.RowsAffected()
	if count > 0 {
		s.logger.InfoContext(ctx, "Deleted stale session states", "count", count)
	}
	return count, nil
}

// IsPremium reports whether the user is in the premium set.
func (s *sqlxStore) IsPremium(ctx context.Context, userID int64) (bool, error) {
	if userID == 0 {
		return false, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	var one int
	err := s.db.GetContext(ctx, &one, `SELECT 1 FROM premium_users WHERE user_id = ?`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error checking premium membership", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to check premium for user %d: %w", userID, err)
	}

	return true, nil
}

// AddPremium inserts the user into the premium set. Idempotent.
func (s *sqlxStore) AddPremium(ctx context.Context, userID int64) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}

	err := s.inTx(ctx, "add premium", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO premium_users (user_id) VALUES (?)`, userID)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adding premium user", "user_id", userID, "error", err)
		return fmt.Errorf("failed to add premium for user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Premium granted", "user_id", userID)
	return nil
}

// RemovePremium deletes the user from the premium set. Idempotent.
func (s *sqlxStore) RemovePremium(ctx context.Context, userID int64) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}

	err := s.inTx(ctx, "remove premium", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM premium_users WHERE user_id = ?`, userID)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error removing premium user", "user_id", userID, "error", err)
		return fmt.Errorf("failed to remove premium for user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Premium revoked", "user_id", userID)
	return nil
}

// ListPremium returns all premium user ids.
func (s *sqlxStore) ListPremium(ctx context.Context) ([]int64, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT user_id FROM premium_users ORDER BY user_id ASC`); err != nil {
		s.logger.ErrorContext(ctx, "Error listing premium users", "error", err)
		return nil, fmt.Errorf("failed to list premium users: %w", err)
	}

	return ids, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
// VACUUM must run outside a transaction in SQLite.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
