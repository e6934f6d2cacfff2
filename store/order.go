package store

import (
	"database/sql"
	"time"
)

// OrderStore order feed storage. The remote engine appends executed orders to
// bot_orders; this subsystem only reads them for display.
type OrderStore struct {
	db *sql.DB
}

// BotOrder an executed order reported by the engine
type BotOrder struct {
	ID        int64     `json:"id"`
	BotID     string    `json:"bot_id"`
	UserID    string    `json:"user_id"`
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	Type      string    `json:"type"` // BUY/SELL
	CreatedAt time.Time `json:"created_at"`
}

func (s *OrderStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bot_orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			price REAL NOT NULL,
			type TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_bot_orders_user ON bot_orders(user_id, id)`)
	return err
}

// Insert appends an order record. In production the engine writes through the
// same table; this path exists for tooling and tests.
func (s *OrderStore) Insert(o *BotOrder) error {
	res, err := s.db.Exec(`
		INSERT INTO bot_orders (bot_id, user_id, ticker, price, type)
		VALUES (?, ?, ?, ?, ?)
	`, o.BotID, o.UserID, o.Ticker, o.Price, o.Type)
	if err != nil {
		return err
	}
	o.ID, _ = res.LastInsertId()
	return nil
}

// ListByUser returns all orders visible to a user in append order
func (s *OrderStore) ListByUser(userID string) ([]*BotOrder, error) {
	rows, err := s.db.Query(`
		SELECT id, bot_id, user_id, ticker, price, type, created_at
		FROM bot_orders WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*BotOrder
	for rows.Next() {
		var o BotOrder
		var createdAt string
		if err := rows.Scan(&o.ID, &o.BotID, &o.UserID, &o.Ticker, &o.Price, &o.Type, &createdAt); err != nil {
			return nil, err
		}
		o.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}
