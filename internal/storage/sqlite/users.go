package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/justkalesh/foodhunt101-sub000/internal/models"
	"github.com/justkalesh/foodhunt101-sub000/internal/storage"
)

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, email, active_split_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.DisplayName, user.Email, user.ActiveSplitID, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Email, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, email, active_split_id, created_at
		 FROM users WHERE id = ?`, userID,
	).Scan(&user.ID, &user.DisplayName, &user.Email, &user.ActiveSplitID, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetActiveSplit updates the user's active-split pointer, last-write-wins.
// An empty splitID clears the pointer. A missing user is not an error:
// the pointer is a best-effort display hint and leave flows clear it
// before any existence checks.
func (s *SQLiteStore) SetActiveSplit(ctx context.Context, userID, splitID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET active_split_id = ? WHERE id = ?", splitID, userID)
	if err != nil {
		return fmt.Errorf("failed to set active split: %w", err)
	}
	return nil
}
