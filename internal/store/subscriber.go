package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
)

const subscriberColumns = `id, list_id, email, first_name, last_name, status,
	verification_token, unsubscribe_token, subscribed_at, unsubscribed_at, created_at, updated_at`

func scanSubscriber(row interface{ Scan(...interface{}) error }) (*domain.Subscriber, error) {
	sub := &domain.Subscriber{}
	err := row.Scan(&sub.ID, &sub.ListID, &sub.Email, &sub.FirstName, &sub.LastName,
		&sub.Status, &sub.VerificationToken, &sub.UnsubscribeToken,
		&sub.SubscribedAt, &sub.UnsubscribedAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateSubscriber inserts a subscriber, failing on a duplicate email
// within the list.
func (s *Store) CreateSubscriber(ctx context.Context, sub *domain.Subscriber) error {
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.SubscribedAt.IsZero() {
		sub.SubscribedAt = now
	}

	query := `INSERT INTO subscribers (id, list_id, email, first_name, last_name, status,
		verification_token, unsubscribe_token, subscribed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query, sub.ID, sub.ListID, sub.Email,
		sub.FirstName, sub.LastName, sub.Status, sub.VerificationToken,
		sub.UnsubscribeToken, sub.SubscribedAt, sub.CreatedAt, sub.UpdatedAt)
	return err
}

// CreateSubscriberIfAbsent inserts a subscriber unless the email already
// exists on the list. The first write wins; later rows for the same email
// never overwrite. Returns true if a row was inserted.
func (s *Store) CreateSubscriberIfAbsent(ctx context.Context, sub *domain.Subscriber) (bool, error) {
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.SubscribedAt.IsZero() {
		sub.SubscribedAt = now
	}

	query := `INSERT INTO subscribers (id, list_id, email, first_name, last_name, status,
		verification_token, unsubscribe_token, subscribed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (list_id, email) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, sub.ID, sub.ListID, sub.Email,
		sub.FirstName, sub.LastName, sub.Status, sub.VerificationToken,
		sub.UnsubscribeToken, sub.SubscribedAt, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetSubscriber retrieves a subscriber by ID. Returns (nil, nil) when absent.
func (s *Store) GetSubscriber(ctx context.Context, subID uuid.UUID) (*domain.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE id = $1`
	sub, err := scanSubscriber(s.db.QueryRowContext(ctx, query, subID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

// GetSubscriberByEmail retrieves a subscriber by list and normalized email.
// Returns (nil, nil) when absent.
func (s *Store) GetSubscriberByEmail(ctx context.Context, listID uuid.UUID, email string) (*domain.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE list_id = $1 AND email = $2`
	sub, err := scanSubscriber(s.db.QueryRowContext(ctx, query, listID, domain.NormalizeEmail(email)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

// GetSubscribers retrieves a page of subscribers for a list plus the total
// count, newest first.
func (s *Store) GetSubscribers(ctx context.Context, listID uuid.UUID, limit, offset int) ([]*domain.Subscriber, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscribers WHERE list_id = $1`, listID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + subscriberColumns + ` FROM subscribers
		WHERE list_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.db.QueryContext(ctx, query, listID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var subs []*domain.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, sub)
	}
	return subs, total, rows.Err()
}

// GetSubscribedRecipients returns the currently subscribed members of a
// list. The delivery job reads this once at start; membership changes after
// the snapshot do not affect an in-flight send.
func (s *Store) GetSubscribedRecipients(ctx context.Context, listID uuid.UUID) ([]*domain.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers
		WHERE list_id = $1 AND status = 'subscribed' ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// CountSubscribed returns the number of subscribed members on a list.
func (s *Store) CountSubscribed(ctx context.Context, listID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscribers WHERE list_id = $1 AND status = 'subscribed'`, listID).Scan(&n)
	return n, err
}

// UpdateSubscriber persists mutable profile fields.
func (s *Store) UpdateSubscriber(ctx context.Context, sub *domain.Subscriber) error {
	query := `UPDATE subscribers SET first_name = $2, last_name = $3, status = $4,
		unsubscribed_at = $5, updated_at = NOW() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, sub.ID, sub.FirstName, sub.LastName,
		sub.Status, sub.UnsubscribedAt)
	return err
}

// DeleteSubscriber removes a subscriber row entirely.
func (s *Store) DeleteSubscriber(ctx context.Context, subID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = $1`, subID)
	return err
}

// VerifySubscriber clears the verification token matching the given value.
// Returns the verified subscriber, or (nil, nil) when no row matches.
func (s *Store) VerifySubscriber(ctx context.Context, token string) (*domain.Subscriber, error) {
	query := `UPDATE subscribers SET verification_token = NULL, updated_at = NOW()
		WHERE verification_token = $1
		RETURNING ` + subscriberColumns
	sub, err := scanSubscriber(s.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

// UnsubscribeByToken flips the subscriber matching the token to
// unsubscribed. The update is idempotent at the row level: status and
// unsubscribed_at only change on the first call. Returns the subscriber
// after the update, or (nil, nil) when the token matches nothing.
func (s *Store) UnsubscribeByToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	query := `UPDATE subscribers SET
		status = 'unsubscribed',
		unsubscribed_at = COALESCE(unsubscribed_at, NOW()),
		updated_at = NOW()
		WHERE unsubscribe_token = $1
		RETURNING ` + subscriberColumns
	sub, err := scanSubscriber(s.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}
