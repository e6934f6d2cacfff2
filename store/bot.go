package store

import (
	"database/sql"
	"time"
)

// Bot status values. Status records operator intent in the registry; the
// in-session tracked set, not this column, drives polling.
const (
	BotStatusActive   = "active"
	BotStatusInactive = "inactive"
)

// BotStore bot registry storage
type BotStore struct {
	db *sql.DB
}

// Bot trading bot record
type Bot struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"bot_name"`
	StrategyID  string    `json:"strategy_id"`
	StockSymbol string    `json:"stock_symbol"` // empty when no instrument assigned
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *BotStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bots (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			bot_name TEXT NOT NULL,
			strategy_id TEXT NOT NULL,
			stock_symbol TEXT,
			status TEXT NOT NULL DEFAULT 'inactive',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_bots_user ON bots(user_id)`)
	return err
}

// Create inserts a bot record
func (s *BotStore) Create(bot *Bot) error {
	if bot.Status == "" {
		bot.Status = BotStatusInactive
	}
	var symbol interface{}
	if bot.StockSymbol != "" {
		symbol = bot.StockSymbol
	}
	_, err := s.db.Exec(`
		INSERT INTO bots (id, user_id, bot_name, strategy_id, stock_symbol, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, bot.ID, bot.UserID, bot.Name, bot.StrategyID, symbol, bot.Status)
	return err
}

// Get fetches a bot scoped by owner. Returns sql.ErrNoRows when the id does
// not resolve or belongs to another user.
func (s *BotStore) Get(userID, botID string) (*Bot, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, bot_name, strategy_id, stock_symbol, status, created_at
		FROM bots WHERE id = ? AND user_id = ?
	`, botID, userID)
	return scanBot(row)
}

// List returns bots owned by a user, optionally filtered by status
func (s *BotStore) List(userID, status string) ([]*Bot, error) {
	query := `
		SELECT id, user_id, bot_name, strategy_id, stock_symbol, status, created_at
		FROM bots WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}

// Count returns the number of bots a user owns (entitlement checks)
func (s *BotStore) Count(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM bots WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// UpdateStatus records operator intent in the registry
func (s *BotStore) UpdateStatus(userID, botID, status string) error {
	_, err := s.db.Exec(`
		UPDATE bots SET status = ? WHERE id = ? AND user_id = ?
	`, status, botID, userID)
	return err
}

// Delete removes a bot record by id, scoped by owner
func (s *BotStore) Delete(userID, botID string) error {
	_, err := s.db.Exec(`DELETE FROM bots WHERE id = ? AND user_id = ?`, botID, userID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBot(row rowScanner) (*Bot, error) {
	var bot Bot
	var symbol sql.NullString
	var createdAt string
	err := row.Scan(&bot.ID, &bot.UserID, &bot.Name, &bot.StrategyID, &symbol, &bot.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	bot.StockSymbol = symbol.String
	bot.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	return &bot, nil
}
