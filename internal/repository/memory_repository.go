package repository

import (
	"sync"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
)

// MemorySessionRepository keeps sessions in a map
type MemorySessionRepository struct {
	sessions map[int64]entities.Session
	mutex    sync.RWMutex
}

// NewMemorySessionRepository creates an empty in-memory repository
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[int64]entities.Session),
	}
}

// GetSession returns a copy of the stored session
func (r *MemorySessionRepository) GetSession(chatID int64) (*entities.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	session, ok := r.sessions[chatID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// SaveSession stores the session and stamps its update time
func (r *MemorySessionRepository) SaveSession(session *entities.Session) error {
	session.UpdatedAt = time.Now()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored := *session
	stored.Cities = append([]string(nil), session.Cities...)
	stored.LastForecast = append([]entities.CityForecast(nil), session.LastForecast...)
	r.sessions[session.ChatID] = stored
	return nil
}

// DeleteSession removes the chat's session if present
func (r *MemorySessionRepository) DeleteSession(chatID int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.sessions, chatID)
	return nil
}

// DeleteSessionsBefore removes sessions not updated since cutoff
func (r *MemorySessionRepository) DeleteSessionsBefore(cutoff time.Time) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	deleted := 0
	for chatID, session := range r.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(r.sessions, chatID)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op
func (r *MemorySessionRepository) Close() error {
	return nil
}

var _ SessionRepository = (*MemorySessionRepository)(nil)
