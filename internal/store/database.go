package store

import (
	"fmt"
	"time"

	"aria-access-backend/internal/db"
)

// Interaction is one audited tool invocation.
type Interaction struct {
	SessionID string
	Tool      string
	Input     string
	Success   bool
	Outcome   string
	CreatedAt time.Time
}

// InteractionStore persists the tool-invocation audit log in PostgreSQL.
// It is optional; the server runs without it when no DB_URL is configured.
type InteractionStore struct {
	db *db.DB
}

func NewInteractionStore(database *db.DB) *InteractionStore {
	return &InteractionStore{db: database}
}

func (s *InteractionStore) Save(i Interaction) error {
	if i.SessionID == "" || i.Tool == "" {
		return fmt.Errorf("session_id and tool are required")
	}
	_, err := s.db.Exec(`
		INSERT INTO interactions (session_id, tool, input, success, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, i.SessionID, i.Tool, i.Input, i.Success, i.Outcome)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

// Recent returns the newest interactions for a session, newest first.
func (s *InteractionStore) Recent(sessionID string, limit int) ([]Interaction, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT session_id, tool, input, success, outcome, created_at
		FROM interactions
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var i Interaction
		if err := rows.Scan(&i.SessionID, &i.Tool, &i.Input, &i.Success, &i.Outcome, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
