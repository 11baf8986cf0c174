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

const splitColumns = `id, creator_id, creator_name, vendor_id, vendor_name, dish_name,
	total_price, people_needed, time_note, split_time, is_closed, version, created_at`

// CreateSplit persists a new split and its membership rows.
func (s *SQLiteStore) CreateSplit(ctx context.Context, split *models.MealSplit) error {
	// Generate IDs if not set
	if split.ID == "" {
		split.ID = uuid.New().String()
	}
	if split.CreatedAt == 0 {
		split.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO splits (`+splitColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		split.ID, split.CreatorID, split.CreatorName, split.VendorID, split.VendorName,
		split.DishName, split.TotalPrice, split.PeopleNeeded, split.TimeNote,
		split.SplitTime, split.IsClosed, split.Version, split.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert split: %w", err)
	}

	for i, userID := range split.PeopleJoinedIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO split_members (split_id, user_id, position) VALUES (?, ?, ?)",
			split.ID, userID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSplit retrieves a split by ID, including its ordered membership.
func (s *SQLiteStore) GetSplit(ctx context.Context, splitID string) (*models.MealSplit, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+splitColumns+" FROM splits WHERE id = ?", splitID)

	split, err := scanSplit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("split %s: %w", splitID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split: %w", err)
	}

	split.PeopleJoinedIDs, err = loadMembers(ctx, s.db, splitID)
	if err != nil {
		return nil, err
	}
	return split, nil
}

// UpdateSplit rewrites the split's mutable fields and membership, guarded
// by the version the caller read. The version column is the critical
// section: two concurrent accepts on the same split cannot both win.
func (s *SQLiteStore) UpdateSplit(ctx context.Context, split *models.MealSplit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE splits
		 SET creator_id = ?, creator_name = ?, people_needed = ?, time_note = ?,
		     split_time = ?, is_closed = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		split.CreatorID, split.CreatorName, split.PeopleNeeded, split.TimeNote,
		split.SplitTime, split.IsClosed, split.ID, split.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update split: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		// Distinguish a lost race from a missing row.
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM splits WHERE id = ?", split.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("split %s: %w", split.ID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check split existence: %w", err)
		}
		return fmt.Errorf("split %s: %w", split.ID, storage.ErrVersionConflict)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM split_members WHERE split_id = ?", split.ID); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}
	for i, userID := range split.PeopleJoinedIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO split_members (split_id, user_id, position) VALUES (?, ?, ?)",
			split.ID, userID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	split.Version++
	return nil
}

// ListOpenSplits returns all open splits, newest first.
func (s *SQLiteStore) ListOpenSplits(ctx context.Context) ([]*models.MealSplit, error) {
	return s.listSplits(ctx,
		"SELECT "+splitColumns+" FROM splits WHERE is_closed = 0 ORDER BY created_at DESC")
}

// ListOpenSplitsByMember returns the open splits userID belongs to.
func (s *SQLiteStore) ListOpenSplitsByMember(ctx context.Context, userID string) ([]*models.MealSplit, error) {
	return s.listSplits(ctx,
		`SELECT `+splitColumns+` FROM splits
		 WHERE is_closed = 0
		   AND id IN (SELECT split_id FROM split_members WHERE user_id = ?)
		 ORDER BY created_at DESC`, userID)
}

// ListClosedSplitsByMember returns the closed splits userID belongs to.
func (s *SQLiteStore) ListClosedSplitsByMember(ctx context.Context, userID string) ([]*models.MealSplit, error) {
	return s.listSplits(ctx,
		`SELECT `+splitColumns+` FROM splits
		 WHERE is_closed = 1
		   AND id IN (SELECT split_id FROM split_members WHERE user_id = ?)
		 ORDER BY created_at DESC`, userID)
}

// ListExpiredOpenSplits returns open splits whose planned time has passed.
func (s *SQLiteStore) ListExpiredOpenSplits(ctx context.Context, now int64) ([]*models.MealSplit, error) {
	return s.listSplits(ctx,
		`SELECT `+splitColumns+` FROM splits
		 WHERE is_closed = 0 AND split_time > 0 AND split_time < ?
		 ORDER BY created_at DESC`, now)
}

func (s *SQLiteStore) listSplits(ctx context.Context, query string, args ...any) ([]*models.MealSplit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer rows.Close()

	var splits []*models.MealSplit
	for rows.Next() {
		split, err := scanSplit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	for _, split := range splits {
		split.PeopleJoinedIDs, err = loadMembers(ctx, s.db, split.ID)
		if err != nil {
			return nil, err
		}
	}
	return splits, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSplit(row scanner) (*models.MealSplit, error) {
	split := &models.MealSplit{}
	err := row.Scan(
		&split.ID, &split.CreatorID, &split.CreatorName, &split.VendorID,
		&split.VendorName, &split.DishName, &split.TotalPrice, &split.PeopleNeeded,
		&split.TimeNote, &split.SplitTime, &split.IsClosed, &split.Version,
		&split.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return split, nil
}

func loadMembers(ctx context.Context, q querier, splitID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT user_id FROM split_members WHERE split_id = ? ORDER BY position",
		splitID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}
