package store

import (
	"database/sql"
	"time"
)

// StrategyStore strategy storage
type StrategyStore struct {
	db *sql.DB
}

// Strategy reference record. UserID is empty for shared/predefined strategies
// visible to every account; those rows cannot be deleted through the API.
type Strategy struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"` // empty = shared
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Filename    string    `json:"filename"` // strategy file the engine loads
	CreatedAt   time.Time `json:"created_at"`
}

// IsShared reports whether the strategy is a predefined shared one
func (st *Strategy) IsShared() bool {
	return st.UserID == ""
}

func (s *StrategyStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS py_strategies (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			filename TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// initDefaultData seeds the predefined strategies every account can use
func (s *StrategyStore) initDefaultData() error {
	defaults := []struct {
		id, name, description, filename string
	}{
		{"sma", "SMA Crossover", "Simple moving average crossover", "sma.py"},
		{"rsi", "RSI", "Relative strength index mean reversion", "rsi.py"},
		{"super_trend", "SuperTrend", "ATR-based trend follower", "super_trend.py"},
		{"kst", "KST", "Know Sure Thing momentum oscillator", "kst.py"},
		{"keltner_channel", "Keltner Channel", "Volatility channel breakout", "keltner_channel.py"},
		{"stochastic_oscilator", "Stochastic Oscillator", "Stochastic %K/%D signals", "stochastic_oscilator.py"},
		{"trend_follow", "Trend Follow", "Basic trend following", "trend_follow.py"},
	}

	for _, d := range defaults {
		_, err := s.db.Exec(`
			INSERT INTO py_strategies (id, user_id, name, description, filename)
			VALUES (?, NULL, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, d.id, d.name, d.description, d.filename)
		if err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a user-owned strategy
func (s *StrategyStore) Create(st *Strategy) error {
	var userID interface{}
	if st.UserID != "" {
		userID = st.UserID
	}
	_, err := s.db.Exec(`
		INSERT INTO py_strategies (id, user_id, name, description, filename)
		VALUES (?, ?, ?, ?, ?)
	`, st.ID, userID, st.Name, st.Description, st.Filename)
	return err
}

// Get fetches a strategy visible to the user (owned or shared)
func (s *StrategyStore) Get(userID, strategyID string) (*Strategy, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, name, description, filename, created_at
		FROM py_strategies WHERE id = ? AND (user_id = ? OR user_id IS NULL)
	`, strategyID, userID)
	return scanStrategy(row)
}

// List returns shared strategies plus the user's own
func (s *StrategyStore) List(userID string) ([]*Strategy, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, name, description, filename, created_at
		FROM py_strategies WHERE user_id = ? OR user_id IS NULL
		ORDER BY user_id IS NULL DESC, created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var strategies []*Strategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, st)
	}
	return strategies, rows.Err()
}

// CountOwned returns the number of strategies a user owns, excluding shared
// ones (entitlement checks)
func (s *StrategyStore) CountOwned(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM py_strategies WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// Update edits a user-owned strategy. The owner-scoped WHERE clause makes the
// call a no-op for shared rows and other users' rows.
func (s *StrategyStore) Update(st *Strategy) error {
	_, err := s.db.Exec(`
		UPDATE py_strategies SET name = ?, description = ?, filename = ?
		WHERE id = ? AND user_id = ?
	`, st.Name, st.Description, st.Filename, st.ID, st.UserID)
	return err
}

// Delete removes a user-owned strategy; shared strategies are untouched
func (s *StrategyStore) Delete(userID, strategyID string) error {
	_, err := s.db.Exec(`
		DELETE FROM py_strategies WHERE id = ? AND user_id = ?
	`, strategyID, userID)
	return err
}

func scanStrategy(row rowScanner) (*Strategy, error) {
	var st Strategy
	var userID sql.NullString
	var createdAt string
	err := row.Scan(&st.ID, &userID, &st.Name, &st.Description, &st.Filename, &createdAt)
	if err != nil {
		return nil, err
	}
	st.UserID = userID.String
	st.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	return &st, nil
}
