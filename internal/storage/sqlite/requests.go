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

// CreateRequest inserts a new join request. The UNIQUE (split_id,
// requester_id) constraint turns a repeat ask into storage.ErrDuplicate.
func (s *SQLiteStore) CreateRequest(ctx context.Context, req *models.SplitRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt == 0 {
		req.CreatedAt = time.Now().Unix()
	}
	if req.Status == "" {
		req.Status = models.RequestPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO split_requests (id, split_id, requester_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		req.ID, req.SplitID, req.RequesterID, req.Status, req.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("request for split %s by %s: %w", req.SplitID, req.RequesterID, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// GetRequest retrieves a join request by ID.
func (s *SQLiteStore) GetRequest(ctx context.Context, requestID string) (*models.SplitRequest, error) {
	req := &models.SplitRequest{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, split_id, requester_id, status, created_at FROM split_requests WHERE id = ?",
		requestID,
	).Scan(&req.ID, &req.SplitID, &req.RequesterID, &req.Status, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", requestID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// UpdateRequestStatus sets the status of a request.
func (s *SQLiteStore) UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE split_requests SET status = ? WHERE id = ?", status, requestID)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("request %s: %w", requestID, storage.ErrNotFound)
	}
	return nil
}

// DeleteRequest removes a request row.
func (s *SQLiteStore) DeleteRequest(ctx context.Context, requestID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM split_requests WHERE id = ?", requestID)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return nil
}

// CountRequestsSince counts the requests a user submitted at or after the
// given Unix time, across all splits and statuses. This backs the
// fixed-slot rate limit, so accepted and rejected requests still count.
func (s *SQLiteStore) CountRequestsSince(ctx context.Context, userID string, since int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM split_requests WHERE requester_id = ? AND created_at >= ?",
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}
