package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultSQLiteDSN keeps sessions in a shared in-memory database
const DefaultSQLiteDSN = "file:sessions?mode=memory&cache=shared"

// SQLiteSessionRepository implements SessionRepository using SQLite
type SQLiteSessionRepository struct {
	db  *sql.DB
	DSN string
}

// NewSQLiteSessionRepository opens the database and creates the sessions table
func NewSQLiteSessionRepository(dsn string) (*SQLiteSessionRepository, error) {
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}

	log.Printf("Opening session database at %s", dsn)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A shared in-memory database lives as long as one connection does
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS sessions (
		chat_id INTEGER PRIMARY KEY,
		stage TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteSessionRepository{
		db:  db,
		DSN: dsn,
	}, nil
}

// Close closes the database connection
func (r *SQLiteSessionRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetSession loads the chat's session
func (r *SQLiteSessionRepository) GetSession(chatID int64) (*entities.Session, error) {
	var data string
	err := r.db.QueryRow(`SELECT data FROM sessions WHERE chat_id = ?`, chatID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session %d: %w", chatID, err)
	}

	var session entities.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %d: %w", chatID, err)
	}
	return &session, nil
}

// SaveSession upserts the session and stamps its update time
func (r *SQLiteSessionRepository) SaveSession(session *entities.Session) error {
	session.UpdatedAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %d: %w", session.ChatID, err)
	}

	_, err = r.db.Exec(`
		INSERT INTO sessions(chat_id, stage, data, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
		stage=excluded.stage,
		data=excluded.data,
		updated_at=excluded.updated_at`,
		session.ChatID,
		string(session.Stage),
		string(data),
		session.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %d: %w", session.ChatID, err)
	}
	return nil
}

// DeleteSession removes the chat's session if present
func (r *SQLiteSessionRepository) DeleteSession(chatID int64) error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete session %d: %w", chatID, err)
	}
	return nil
}

// DeleteSessionsBefore removes sessions not updated since cutoff
func (r *SQLiteSessionRepository) DeleteSessionsBefore(cutoff time.Time) (int, error) {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE updated_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return int(n), nil
}

var _ SessionRepository = (*SQLiteSessionRepository)(nil)
