package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/scriptreach/scriptreach/internal/model"
	"github.com/scriptreach/scriptreach/internal/utils"
)

// loadPersisted reads the single cached session row, if any. A corrupt or
// unreadable row is treated as "no session" rather than an error: worst
// case the user signs in again.
func loadPersisted(db *sql.DB) *model.Session {
	if db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var payload string
	err := db.QueryRowContext(ctx,
		"SELECT payload FROM session_cache WHERE id=1").Scan(&payload)
	if err != nil {
		return nil
	}
	var s model.Session
	if json.Unmarshal([]byte(payload), &s) != nil {
		return nil
	}
	// Older rows may predate the subject/expiry columns in the payload;
	// recover them from the token itself.
	if s.SubjectID == "" || s.ExpiresAt.IsZero() {
		if sub, exp, err := utils.InspectAccessToken(s.AccessToken); err == nil {
			if s.SubjectID == "" {
				s.SubjectID = sub
			}
			if s.ExpiresAt.IsZero() {
				s.ExpiresAt = exp
			}
		}
	}
	if s.AccessToken == "" {
		return nil
	}
	return &s
}

// savePersisted upserts the cached session row, or deletes it when s is nil.
func savePersisted(db *sql.DB, s *model.Session) error {
	if db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if s == nil {
		_, err := db.ExecContext(ctx, "DELETE FROM session_cache WHERE id=1")
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO session_cache (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		string(payload), time.Now().UTC())
	return err
}
