// Package storage defines the session persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"tripfriend_bot/internal/model"
)

// ErrNotFound is returned when a chat has no stored session.
var ErrNotFound = errors.New("session not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	GetSession(ctx context.Context, chatID int64) (*model.Session, error)
	SaveSession(ctx context.Context, s *model.Session) error
	DeleteSession(ctx context.Context, chatID int64) error
	// DeleteExpiredSessions removes sessions last updated before the given
	// time and returns how many were removed.
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
