// Package repository provides session storage implementations
package repository

import (
	"errors"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
)

// ErrSessionNotFound is returned when no session exists for a chat
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository defines the interface for conversation session storage.
// Implementations must be safe for concurrent use.
type SessionRepository interface {
	GetSession(chatID int64) (*entities.Session, error)
	SaveSession(session *entities.Session) error
	DeleteSession(chatID int64) error
	DeleteSessionsBefore(cutoff time.Time) (int, error)
	Close() error
}
