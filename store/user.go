package store

import (
	"database/sql"
	"time"
)

// UserStore user storage
type UserStore struct {
	db *sql.DB
}

// User account record. IsSubscribed is flipped by the payment verification
// boundary and gates plan limits.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	OTPSecret    string    `json:"-"`
	OTPVerified  bool      `json:"otp_verified"`
	IsSubscribed bool      `json:"is_subscribed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *UserStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			otp_secret TEXT,
			otp_verified BOOLEAN DEFAULT 0,
			is_subscribed BOOLEAN DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TRIGGER IF NOT EXISTS update_users_updated_at
		AFTER UPDATE ON users
		BEGIN
			UPDATE users SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
		END
	`)
	return err
}

// Create creates a user
func (s *UserStore) Create(user *User) error {
	_, err := s.db.Exec(`
		INSERT INTO users (id, email, password_hash, otp_secret, otp_verified, is_subscribed)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.PasswordHash, user.OTPSecret, user.OTPVerified, user.IsSubscribed)
	return err
}

// GetByEmail gets a user by email
func (s *UserStore) GetByEmail(email string) (*User, error) {
	return s.scanOne(`
		SELECT id, email, password_hash, otp_secret, otp_verified, is_subscribed, created_at, updated_at
		FROM users WHERE email = ?
	`, email)
}

// GetByID gets a user by ID
func (s *UserStore) GetByID(userID string) (*User, error) {
	return s.scanOne(`
		SELECT id, email, password_hash, otp_secret, otp_verified, is_subscribed, created_at, updated_at
		FROM users WHERE id = ?
	`, userID)
}

func (s *UserStore) scanOne(query string, arg string) (*User, error) {
	var user User
	var createdAt, updatedAt string
	err := s.db.QueryRow(query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.OTPSecret,
		&user.OTPVerified, &user.IsSubscribed, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	user.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updatedAt)
	return &user, nil
}

// UpdateOTPVerified updates OTP verification status
func (s *UserStore) UpdateOTPVerified(userID string, verified bool) error {
	_, err := s.db.Exec(`UPDATE users SET otp_verified = ? WHERE id = ?`, verified, userID)
	return err
}

// UpdatePassword updates password hash
func (s *UserStore) UpdatePassword(userID, passwordHash string) error {
	_, err := s.db.Exec(`
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, passwordHash, userID)
	return err
}

// SetSubscribed flips the subscription flag (payment boundary)
func (s *UserStore) SetSubscribed(userID string, subscribed bool) error {
	_, err := s.db.Exec(`UPDATE users SET is_subscribed = ? WHERE id = ?`, subscribed, userID)
	return err
}
