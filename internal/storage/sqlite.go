package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"tripfriend_bot/internal/model"
	"tripfriend_bot/migrations"
)

const (
	timeLayout = "2006-01-02T15:04:05Z"
	dateLayout = "2006-01-02"
)

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Each :memory: connection is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetSession returns the stored session of a chat or ErrNotFound.
func (s *SQLite) GetSession(ctx context.Context, chatID int64) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, state, city, start_date, end_date, type_filter, excursions, updated_at
		 FROM sessions WHERE chat_id = ?`, chatID,
	)

	var sess model.Session
	var state, typeFilter, excursions, updated string
	var start, end sql.NullString
	err := row.Scan(&sess.ChatID, &state, &sess.City, &start, &end, &typeFilter, &excursions, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.State = model.State(state)
	sess.Type = model.TypeFilter(typeFilter)
	if start.Valid {
		sess.StartDate, _ = time.Parse(dateLayout, start.String)
	}
	if end.Valid {
		sess.EndDate, _ = time.Parse(dateLayout, end.String)
	}
	sess.UpdatedAt, _ = time.Parse(timeLayout, updated)
	if err := json.Unmarshal([]byte(excursions), &sess.Excursions); err != nil {
		return nil, fmt.Errorf("decode excursions: %w", err)
	}
	if len(sess.Excursions) == 0 {
		sess.Excursions = nil
	}
	return &sess, nil
}

// SaveSession inserts or replaces the session of a chat. A zero UpdatedAt is
// set to the current time.
func (s *SQLite) SaveSession(ctx context.Context, sess *model.Session) error {
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}
	excursions, err := encodeExcursions(sess.Excursions)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id, state, city, start_date, end_date, type_filter, excursions, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   state = excluded.state,
		   city = excluded.city,
		   start_date = excluded.start_date,
		   end_date = excluded.end_date,
		   type_filter = excluded.type_filter,
		   excursions = excluded.excursions,
		   updated_at = excluded.updated_at`,
		sess.ChatID, string(sess.State), sess.City, nullDate(sess.StartDate), nullDate(sess.EndDate),
		string(sess.Type), excursions, sess.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes the session of a chat. Deleting a missing session is not an error.
func (s *SQLite) DeleteSession(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions not updated since before.
func (s *SQLite) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE updated_at < ?`, before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func nullDate(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	v := t.UTC().Format(dateLayout)
	return &v
}

func encodeExcursions(list []model.Excursion) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode excursions: %w", err)
	}
	return string(data), nil
}
