package store

import (
	"database/sql"
	"time"
)

// WatchlistStore watchlist storage
type WatchlistStore struct {
	db *sql.DB
}

// WatchlistEntry a ticker the user follows
type WatchlistEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Ticker    string    `json:"ticker"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *WatchlistStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS watchlist (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, ticker)
		)
	`)
	return err
}

// Create inserts a watchlist entry
func (s *WatchlistStore) Create(e *WatchlistEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO watchlist (id, user_id, ticker) VALUES (?, ?, ?)
	`, e.ID, e.UserID, e.Ticker)
	return err
}

// List returns a user's watchlist in insertion order
func (s *WatchlistStore) List(userID string) ([]*WatchlistEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, ticker, created_at FROM watchlist
		WHERE user_id = ? ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*WatchlistEntry
	for rows.Next() {
		var e WatchlistEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Ticker, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries a user owns (entitlement checks)
func (s *WatchlistStore) Count(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM watchlist WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// Delete removes an entry by id, scoped by owner
func (s *WatchlistStore) Delete(userID, entryID string) error {
	_, err := s.db.Exec(`DELETE FROM watchlist WHERE id = ? AND user_id = ?`, entryID, userID)
	return err
}
