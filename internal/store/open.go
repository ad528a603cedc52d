package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InsertOpen records that a subscriber opened a campaign. The table has a
// unique constraint on (campaign_id, subscriber_id), so repeat opens are
// absorbed by ON CONFLICT DO NOTHING. Returns true only when this call
// inserted the first open for the pair.
func (s *Store) InsertOpen(ctx context.Context, campaignID, subscriberID uuid.UUID) (bool, error) {
	query := `INSERT INTO campaign_opens (campaign_id, subscriber_id, opened_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (campaign_id, subscriber_id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, campaignID, subscriberID, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountOpens returns the number of distinct subscribers who opened a
// campaign.
func (s *Store) CountOpens(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaign_opens WHERE campaign_id = $1`, campaignID).Scan(&n)
	return n, err
}
