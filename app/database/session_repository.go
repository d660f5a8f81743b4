package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/veni-vici/app/discover"
)

var ErrSessionNotFound = errors.New("session not found")

var _ SessionRepository = (*SessionStore)(nil)

// SessionStore handles database operations for discovery sessions
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

func (r *SessionStore) CreateSession(sessionID string, bans []discover.BanEntry) error {
	now := time.Now().UTC().Unix()

	return r.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO sessions (id, created_at, updated_at)
			VALUES (?, ?, ?)
		`, sessionID, now, now)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return insertBans(tx, sessionID, bans)
	})
}

func (r *SessionStore) GetSession(sessionID string) (*Session, error) {
	var createdAt, updatedAt int64
	err := r.db.QueryRow(`
		SELECT created_at, updated_at FROM sessions WHERE id = ?
	`, sessionID).Scan(&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	bans, err := r.GetBans(sessionID)
	if err != nil {
		return nil, err
	}
	seen, err := r.GetSeen(sessionID)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        sessionID,
		Bans:      bans,
		SeenIDs:   seen,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		UpdatedAt: time.Unix(updatedAt, 0).UTC(),
	}, nil
}

func (r *SessionStore) DeleteSession(sessionID string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return n > 0, nil
}

func (r *SessionStore) SessionCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (r *SessionStore) GetBans(sessionID string) ([]discover.BanEntry, error) {
	return queryBans(r.db, sessionID)
}

// UpdateBans applies fn to the stored bans inside one transaction and stores
// the result when fn reports a change.
func (r *SessionStore) UpdateBans(sessionID string, fn func([]discover.BanEntry) ([]discover.BanEntry, bool)) ([]discover.BanEntry, bool, error) {
	var result []discover.BanEntry
	var changed bool

	err := r.withTx(func(tx *sql.Tx) error {
		if err := touchSession(tx, sessionID); err != nil {
			return err
		}
		current, err := queryBans(tx, sessionID)
		if err != nil {
			return err
		}

		result, changed = fn(current)
		if !changed {
			return nil
		}
		if _, err := tx.Exec(`DELETE FROM session_bans WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("failed to clear bans: %w", err)
		}
		return insertBans(tx, sessionID, result)
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func queryBans(q querier, sessionID string) ([]discover.BanEntry, error) {
	rows, err := q.Query(`
		SELECT field, value FROM session_bans
		WHERE session_id = ?
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bans: %w", err)
	}
	defer rows.Close()

	bans := []discover.BanEntry{}
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("failed to scan ban: %w", err)
		}
		bans = append(bans, discover.BanEntry{Field: discover.BanField(field), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get bans: %w", err)
	}
	return bans, nil
}

func (r *SessionStore) GetSeen(sessionID string) ([]int64, error) {
	return querySeen(r.db, sessionID)
}

// UpdateSeen applies fn to the stored seen ids inside one transaction and
// stores the result.
func (r *SessionStore) UpdateSeen(sessionID string, fn func([]int64) []int64) error {
	return r.withTx(func(tx *sql.Tx) error {
		if err := touchSession(tx, sessionID); err != nil {
			return err
		}
		current, err := querySeen(tx, sessionID)
		if err != nil {
			return err
		}
		return replaceSeen(tx, sessionID, fn(current))
	})
}

func querySeen(q querier, sessionID string) ([]int64, error) {
	rows, err := q.Query(`
		SELECT item_id FROM session_seen
		WHERE session_id = ?
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seen ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seen id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get seen ids: %w", err)
	}
	return ids, nil
}

func (r *SessionStore) ReplaceSeen(sessionID string, ids []int64) error {
	return r.withTx(func(tx *sql.Tx) error {
		if err := touchSession(tx, sessionID); err != nil {
			return err
		}
		return replaceSeen(tx, sessionID, ids)
	})
}

func (r *SessionStore) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func touchSession(tx *sql.Tx, sessionID string) error {
	res, err := tx.Exec(`
		UPDATE sessions SET updated_at = ? WHERE id = ?
	`, time.Now().UTC().Unix(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func replaceSeen(tx *sql.Tx, sessionID string, ids []int64) error {
	if _, err := tx.Exec(`DELETE FROM session_seen WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear seen ids: %w", err)
	}
	for i, id := range ids {
		_, err := tx.Exec(`
			INSERT INTO session_seen (session_id, position, item_id)
			VALUES (?, ?, ?)
		`, sessionID, i, id)
		if err != nil {
			return fmt.Errorf("failed to store seen id: %w", err)
		}
	}
	return nil
}

func insertBans(tx *sql.Tx, sessionID string, bans []discover.BanEntry) error {
	for i, ban := range bans {
		_, err := tx.Exec(`
			INSERT INTO session_bans (session_id, position, field, value)
			VALUES (?, ?, ?, ?)
		`, sessionID, i, string(ban.Field), ban.Value)
		if err != nil {
			return fmt.Errorf("failed to store ban: %w", err)
		}
	}
	return nil
}
