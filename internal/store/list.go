package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
)

// CreateList inserts a new list. ID and timestamps are assigned here.
func (s *Store) CreateList(ctx context.Context, list *domain.List) error {
	list.ID = uuid.New()
	list.CreatedAt = time.Now()
	list.UpdatedAt = list.CreatedAt

	query := `INSERT INTO lists (id, shortcode, name, description, from_email, from_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query, list.ID, list.Shortcode, list.Name,
		list.Description, list.FromEmail, list.FromName, list.CreatedAt, list.UpdatedAt)
	return err
}

// GetList retrieves a list by ID. Returns (nil, nil) when absent.
func (s *Store) GetList(ctx context.Context, listID uuid.UUID) (*domain.List, error) {
	query := `SELECT id, shortcode, name, description, from_email, from_name, created_at, updated_at
		FROM lists WHERE id = $1`

	list := &domain.List{}
	err := s.db.QueryRowContext(ctx, query, listID).Scan(
		&list.ID, &list.Shortcode, &list.Name, &list.Description,
		&list.FromEmail, &list.FromName, &list.CreatedAt, &list.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return list, err
}

// GetListByShortcode retrieves a list by its public shortcode.
// Returns (nil, nil) when absent.
func (s *Store) GetListByShortcode(ctx context.Context, shortcode string) (*domain.List, error) {
	query := `SELECT id, shortcode, name, description, from_email, from_name, created_at, updated_at
		FROM lists WHERE shortcode = $1`

	list := &domain.List{}
	err := s.db.QueryRowContext(ctx, query, shortcode).Scan(
		&list.ID, &list.Shortcode, &list.Name, &list.Description,
		&list.FromEmail, &list.FromName, &list.CreatedAt, &list.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return list, err
}

// GetLists retrieves all lists ordered by name.
func (s *Store) GetLists(ctx context.Context) ([]*domain.List, error) {
	query := `SELECT id, shortcode, name, description, from_email, from_name, created_at, updated_at
		FROM lists ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []*domain.List
	for rows.Next() {
		list := &domain.List{}
		err := rows.Scan(&list.ID, &list.Shortcode, &list.Name, &list.Description,
			&list.FromEmail, &list.FromName, &list.CreatedAt, &list.UpdatedAt)
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// UpdateList persists mutable list fields.
func (s *Store) UpdateList(ctx context.Context, list *domain.List) error {
	query := `UPDATE lists SET name = $2, description = $3, from_email = $4, from_name = $5, updated_at = NOW()
		WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, list.ID, list.Name, list.Description,
		list.FromEmail, list.FromName)
	return err
}

// DeleteList removes a list. Subscribers and campaigns cascade at the
// schema level.
func (s *Store) DeleteList(ctx context.Context, listID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id = $1`, listID)
	return err
}

// ListShortcodeExists reports whether a shortcode is already taken by a list.
func (s *Store) ListShortcodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM lists WHERE shortcode = $1)`, code).Scan(&exists)
	return exists, err
}

// GetListStats returns subscriber counts by status for one list.
func (s *Store) GetListStats(ctx context.Context, listID uuid.UUID) (*domain.ListStats, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE status = 'subscribed'),
		COUNT(*) FILTER (WHERE status = 'unsubscribed')
		FROM subscribers WHERE list_id = $1`

	stats := &domain.ListStats{}
	err := s.db.QueryRowContext(ctx, query, listID).Scan(&stats.Subscribed, &stats.Unsubscribed)
	return stats, err
}
