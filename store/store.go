// Package store provides unified database storage layer
// All database operations should go through this package
package store

import (
	"database/sql"
	"fmt"
	"sync"

	"botdeck/logger"

	_ "modernc.org/sqlite"
)

// Store unified data storage interface
type Store struct {
	db *sql.DB

	// Sub-stores (lazy initialization)
	user      *UserStore
	bot       *BotStore
	strategy  *StrategyStore
	watchlist *WatchlistStore
	order     *OrderStore

	mu sync.RWMutex
}

// New creates new Store instance backed by SQLite
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite does not tolerate concurrent writers on one connection pool
	db.SetMaxOpenConns(1)

	s := &Store{db: db}

	// Initialize all table structures
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize table structure: %w", err)
	}

	// Initialize default data
	if err := s.initDefaultData(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize default data: %w", err)
	}

	logger.Infof("✅ Database initialized: %s", dbPath)
	return s, nil
}

// NewFromDB creates Store from existing database connection
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// initTables initializes all database tables
func (s *Store) initTables() error {
	// Initialize in dependency order
	if err := s.User().initTables(); err != nil {
		return fmt.Errorf("failed to initialize user tables: %w", err)
	}
	if err := s.Strategy().initTables(); err != nil {
		return fmt.Errorf("failed to initialize strategy tables: %w", err)
	}
	if err := s.Bot().initTables(); err != nil {
		return fmt.Errorf("failed to initialize bot tables: %w", err)
	}
	if err := s.Watchlist().initTables(); err != nil {
		return fmt.Errorf("failed to initialize watchlist tables: %w", err)
	}
	if err := s.Order().initTables(); err != nil {
		return fmt.Errorf("failed to initialize order tables: %w", err)
	}
	return nil
}

// initDefaultData initializes default data
func (s *Store) initDefaultData() error {
	return s.Strategy().initDefaultData()
}

// User gets user storage
func (s *Store) User() *UserStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		s.user = &UserStore{db: s.db}
	}
	return s.user
}

// Bot gets bot storage
func (s *Store) Bot() *BotStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bot == nil {
		s.bot = &BotStore{db: s.db}
	}
	return s.bot
}

// Strategy gets strategy storage
func (s *Store) Strategy() *StrategyStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.strategy == nil {
		s.strategy = &StrategyStore{db: s.db}
	}
	return s.strategy
}

// Watchlist gets watchlist storage
func (s *Store) Watchlist() *WatchlistStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchlist == nil {
		s.watchlist = &WatchlistStore{db: s.db}
	}
	return s.watchlist
}

// Order gets order storage
func (s *Store) Order() *OrderStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		s.order = &OrderStore{db: s.db}
	}
	return s.order
}

// Close closes database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB gets underlying database connection
func (s *Store) DB() *sql.DB {
	return s.db
}

// Transaction executes transaction
func (s *Store) Transaction(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
